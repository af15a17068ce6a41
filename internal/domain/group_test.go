package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCreateGroupRequestValidateOrder(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour).Format(time.RFC3339)

	tests := []struct {
		name string
		req  CreateGroupRequest
		want error
	}{
		{"valid", CreateGroupRequest{Restaurant: "Pizza", Expiration: future, Loc: "Harper Library"}, nil},
		{"empty restaurant wins over bad expiration", CreateGroupRequest{Restaurant: "", Expiration: "garbage", Loc: "nowhere"}, ErrRestaurantRequired},
		{"restaurant too long", CreateGroupRequest{Restaurant: strings.Repeat("x", MaxRestaurantLen+1), Expiration: future, Loc: "Harper Library"}, ErrRestaurantTooLong},
		{"bad expiration wins over bad location", CreateGroupRequest{Restaurant: "Pizza", Expiration: "garbage", Loc: "nowhere"}, ErrInvalidExpiration},
		{"expiration in the past", CreateGroupRequest{Restaurant: "Pizza", Expiration: now.Add(-time.Minute).Format(time.RFC3339), Loc: "Harper Library"}, ErrExpirationInPast},
		{"expiration exactly now", CreateGroupRequest{Restaurant: "Pizza", Expiration: now.Format(time.RFC3339), Loc: "Harper Library"}, ErrExpirationInPast},
		{"bad location", CreateGroupRequest{Restaurant: "Pizza", Expiration: future, Loc: "Mansueto Library"}, ErrInvalidLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			if err := tt.req.Validate(now); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateGroupRequestNormalizeTrims(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	req := CreateGroupRequest{
		Restaurant: "  Pizza  ",
		Expiration: now.Add(time.Hour).Format(time.RFC3339),
		Loc:        " Harper Library ",
	}
	req.Normalize()
	if err := req.Validate(now); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if req.Restaurant != "Pizza" {
		t.Errorf("restaurant = %q, want trimmed", req.Restaurant)
	}
	if got := req.ExpiresAt(); !got.Equal(now.Add(time.Hour)) {
		t.Errorf("expires at %v, want %v", got, now.Add(time.Hour))
	}
}

func TestOrderGroupIsExpired(t *testing.T) {
	exp := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	g := OrderGroup{Expiration: exp}

	if g.IsExpired(exp.Add(-time.Second)) {
		t.Error("group expired before its expiration")
	}
	if !g.IsExpired(exp) {
		t.Error("group not expired at exactly its expiration")
	}
	if !g.IsExpired(exp.Add(time.Second)) {
		t.Error("group not expired after its expiration")
	}
}

func TestIsValidLocation(t *testing.T) {
	for _, loc := range ValidLocations {
		if !IsValidLocation(loc) {
			t.Errorf("%q rejected", loc)
		}
	}
	for _, loc := range []string{"", "harper library", "Harper", "Mansueto Library"} {
		if IsValidLocation(loc) {
			t.Errorf("%q accepted", loc)
		}
	}
}
