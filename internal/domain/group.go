package domain

import (
	"strings"
	"time"
)

// OrderGroup is a time-boxed, location-scoped group order. The owner is
// denormalized onto the group row and must always hold a membership while
// the row exists.
type OrderGroup struct {
	ID         int64     `json:"id"`
	OwnerID    int64     `json:"owner_id"`
	Restaurant string    `json:"restaurant"`
	Expiration time.Time `json:"expiration"`
	Loc        string    `json:"loc"`
	IsOpen     bool      `json:"is_open"`
	CreatedAt  time.Time `json:"created_at"`
}

func (g *OrderGroup) IsExpired(now time.Time) bool {
	return !now.Before(g.Expiration)
}

type Membership struct {
	ID       int64     `json:"id"`
	OrderID  int64     `json:"order_id"`
	UserID   int64     `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupSummary is a list-active row: participant identifiers only, no
// contact details while the group is still open.
type GroupSummary struct {
	ID               int64     `json:"id"`
	OwnerID          int64     `json:"owner_id"`
	Restaurant       string    `json:"restaurant"`
	Expiration       time.Time `json:"expiration"`
	Loc              string    `json:"loc"`
	ParticipantCount int       `json:"participant_count"`
	Participants     []int64   `json:"participants"`
}

// MemberDetail carries the contact info revealed once a group is confirmed.
type MemberDetail struct {
	UserID   int64     `json:"user_id"`
	Name     string    `json:"name"`
	Cell     string    `json:"cell"`
	IsOwner  bool      `json:"is_owner"`
	JoinedAt time.Time `json:"joined_at"`
}

type GroupDetail struct {
	ID         int64          `json:"id"`
	OwnerID    int64          `json:"owner_id"`
	Restaurant string         `json:"restaurant"`
	Expiration time.Time      `json:"expiration"`
	Loc        string         `json:"loc"`
	IsOpen     bool           `json:"is_open"`
	Members    []MemberDetail `json:"members"`
}

// ExpiringGroup feeds the expiring-soon notification: just enough to
// address every member.
type ExpiringGroup struct {
	ID           int64     `json:"id"`
	Restaurant   string    `json:"restaurant"`
	Expiration   time.Time `json:"expiration"`
	MemberEmails []string  `json:"member_emails"`
}

// ValidLocations is the fixed set of campus meetup points.
var ValidLocations = []string{
	"Regenstein Library",
	"Harper Library",
	"John Crerar Library",
}

func IsValidLocation(loc string) bool {
	for _, l := range ValidLocations {
		if l == loc {
			return true
		}
	}
	return false
}

const MaxRestaurantLen = 120

type CreateGroupRequest struct {
	OwnerID    int64  `json:"owner_id"`
	Restaurant string `json:"restaurant"`
	Expiration string `json:"expiration"`
	Loc        string `json:"loc"`

	expiresAt time.Time
}

func (r *CreateGroupRequest) Normalize() {
	r.Restaurant = strings.TrimSpace(r.Restaurant)
	r.Loc = strings.TrimSpace(r.Loc)
}

// Validate checks fields in a fixed order: restaurant, expiration, location.
// Owner existence is checked later, inside the create transaction.
func (r *CreateGroupRequest) Validate(now time.Time) error {
	if r.Restaurant == "" {
		return ErrRestaurantRequired
	}
	if len(r.Restaurant) > MaxRestaurantLen {
		return ErrRestaurantTooLong
	}
	expiresAt, err := time.Parse(time.RFC3339, r.Expiration)
	if err != nil {
		return ErrInvalidExpiration
	}
	if !expiresAt.After(now) {
		return ErrExpirationInPast
	}
	if !IsValidLocation(r.Loc) {
		return ErrInvalidLocation
	}
	r.expiresAt = expiresAt
	return nil
}

// ExpiresAt returns the parsed expiration; only valid after Validate.
func (r *CreateGroupRequest) ExpiresAt() time.Time {
	return r.expiresAt
}

type JoinGroupRequest struct {
	UserID int64 `json:"user_id"`
}

type LeaveGroupRequest struct {
	UserID int64 `json:"user_id"`
}

type UpdateStatusRequest struct {
	IsOpen bool `json:"is_open"`
}
