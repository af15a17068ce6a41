package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eckinger/uchomp/internal/domain"
	"github.com/eckinger/uchomp/pkg/config"
	"github.com/go-chi/chi/v5"
)

// ---------- Stub services ----------

type stubIdentityService struct {
	requestCodeFn     func(ctx context.Context, req *domain.SendCodeRequest) (string, error)
	verifyCodeFn      func(ctx context.Context, req *domain.VerifyCodeRequest) (string, error)
	completeProfileFn func(ctx context.Context, req *domain.UpdateProfileRequest) error
	checkProfileFn    func(ctx context.Context, email string) (bool, error)
}

func (s *stubIdentityService) RequestCode(ctx context.Context, req *domain.SendCodeRequest) (string, error) {
	return s.requestCodeFn(ctx, req)
}

func (s *stubIdentityService) VerifyCode(ctx context.Context, req *domain.VerifyCodeRequest) (string, error) {
	return s.verifyCodeFn(ctx, req)
}

func (s *stubIdentityService) CompleteProfile(ctx context.Context, req *domain.UpdateProfileRequest) error {
	return s.completeProfileFn(ctx, req)
}

func (s *stubIdentityService) CheckProfile(ctx context.Context, email string) (bool, error) {
	return s.checkProfileFn(ctx, email)
}

type stubGroupService struct {
	createFn       func(ctx context.Context, req *domain.CreateGroupRequest) (int64, error)
	joinFn         func(ctx context.Context, orderID, userID int64) error
	leaveFn        func(ctx context.Context, orderID, userID int64) error
	updateStatusFn func(ctx context.Context, orderID int64, isOpen bool) error
	deleteFn       func(ctx context.Context, orderID int64) error
	listActiveFn   func(ctx context.Context) ([]domain.GroupSummary, error)
	getDetailFn    func(ctx context.Context, orderID int64) (*domain.GroupDetail, error)
}

func (s *stubGroupService) Create(ctx context.Context, req *domain.CreateGroupRequest) (int64, error) {
	return s.createFn(ctx, req)
}

func (s *stubGroupService) Join(ctx context.Context, orderID, userID int64) error {
	return s.joinFn(ctx, orderID, userID)
}

func (s *stubGroupService) Leave(ctx context.Context, orderID, userID int64) error {
	return s.leaveFn(ctx, orderID, userID)
}

func (s *stubGroupService) UpdateStatus(ctx context.Context, orderID int64, isOpen bool) error {
	return s.updateStatusFn(ctx, orderID, isOpen)
}

func (s *stubGroupService) Delete(ctx context.Context, orderID int64) error {
	return s.deleteFn(ctx, orderID)
}

func (s *stubGroupService) ListActive(ctx context.Context) ([]domain.GroupSummary, error) {
	return s.listActiveFn(ctx)
}

func (s *stubGroupService) GetDetail(ctx context.Context, orderID int64) (*domain.GroupDetail, error) {
	return s.getDetailFn(ctx, orderID)
}

// ---------- Helpers ----------

func newTestRouter(identity *stubIdentityService, group *stubGroupService, devMode bool) http.Handler {
	cfg := &config.Config{}
	cfg.Email.DevMode = devMode

	h := New(identity, group, nil, cfg)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// ---------- Tests ----------

func TestSendCodeDevModeEchoesCode(t *testing.T) {
	identity := &stubIdentityService{
		requestCodeFn: func(_ context.Context, req *domain.SendCodeRequest) (string, error) {
			if req.Email != "student@uchicago.edu" {
				t.Errorf("unexpected email %q", req.Email)
			}
			return "123456", nil
		},
	}
	router := newTestRouter(identity, &stubGroupService{}, true)

	rec := doJSON(t, router, http.MethodPost, "/users/send-code", map[string]string{"email": "student@uchicago.edu"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Error("expected success envelope")
	}
	if body["code"] != "123456" {
		t.Errorf("code = %v, want 123456", body["code"])
	}
}

func TestSendCodeProductionHidesCode(t *testing.T) {
	identity := &stubIdentityService{
		requestCodeFn: func(_ context.Context, _ *domain.SendCodeRequest) (string, error) {
			return "123456", nil
		},
	}
	router := newTestRouter(identity, &stubGroupService{}, false)

	rec := doJSON(t, router, http.MethodPost, "/users/send-code", map[string]string{"email": "student@uchicago.edu"})
	body := decodeEnvelope(t, rec)
	if _, leaked := body["code"]; leaked {
		t.Error("raw code leaked outside dev mode")
	}
}

func TestSendCodeInvalidEmail(t *testing.T) {
	identity := &stubIdentityService{
		requestCodeFn: func(_ context.Context, _ *domain.SendCodeRequest) (string, error) {
			return "", domain.ErrInvalidEmail
		},
	}
	router := newTestRouter(identity, &stubGroupService{}, false)

	rec := doJSON(t, router, http.MethodPost, "/users/send-code", map[string]string{"email": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != false {
		t.Error("expected failure envelope")
	}
	if body["error"] != "Invalid email" {
		t.Errorf("error = %v, want %q", body["error"], "Invalid email")
	}
}

func TestVerifyReturnsToken(t *testing.T) {
	identity := &stubIdentityService{
		verifyCodeFn: func(_ context.Context, req *domain.VerifyCodeRequest) (string, error) {
			if req.Key != "654321" {
				t.Errorf("unexpected key %q", req.Key)
			}
			return "jwt-token", nil
		},
	}
	router := newTestRouter(identity, &stubGroupService{}, false)

	rec := doJSON(t, router, http.MethodPost, "/users/verify", map[string]string{
		"email": "student@uchicago.edu",
		"key":   "654321",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["token"] != "jwt-token" {
		t.Errorf("token = %v, want jwt-token", body["token"])
	}
}

func TestVerifyErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no live code", domain.ErrCodeNotFound, http.StatusNotFound},
		{"expired code", domain.ErrCodeExpired, http.StatusConflict},
		{"wrong code", domain.ErrCodeMismatch, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := &stubIdentityService{
				verifyCodeFn: func(_ context.Context, _ *domain.VerifyCodeRequest) (string, error) {
					return "", tt.err
				},
			}
			router := newTestRouter(identity, &stubGroupService{}, false)

			rec := doJSON(t, router, http.MethodPost, "/users/verify", map[string]string{
				"email": "student@uchicago.edu",
				"key":   "123456",
			})
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestCheckProfile(t *testing.T) {
	identity := &stubIdentityService{
		checkProfileFn: func(_ context.Context, email string) (bool, error) {
			return email == "done@uchicago.edu", nil
		},
	}
	router := newTestRouter(identity, &stubGroupService{}, false)

	rec := doJSON(t, router, http.MethodPost, "/users/check-profile", map[string]string{"email": "done@uchicago.edu"})
	body := decodeEnvelope(t, rec)
	if body["hasProfile"] != true {
		t.Errorf("hasProfile = %v, want true", body["hasProfile"])
	}

	rec = doJSON(t, router, http.MethodPost, "/users/check-profile", map[string]string{"email": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty email status = %d, want 400", rec.Code)
	}
}

func TestUpdateProfileErrorMapping(t *testing.T) {
	identity := &stubIdentityService{
		completeProfileFn: func(_ context.Context, _ *domain.UpdateProfileRequest) error {
			return domain.ErrInvalidPhone
		},
	}
	router := newTestRouter(identity, &stubGroupService{}, false)

	rec := doJSON(t, router, http.MethodPost, "/users/update", map[string]string{
		"email": "student@uchicago.edu",
		"name":  "Alex",
		"cell":  "bad",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["error"] != "Invalid phone number format. Use XXX-XXX-XXXX format." {
		t.Errorf("unexpected error message %v", body["error"])
	}
}

func TestCreateOrderReturnsOrderID(t *testing.T) {
	group := &stubGroupService{
		createFn: func(_ context.Context, req *domain.CreateGroupRequest) (int64, error) {
			if req.Restaurant != "Pizza" {
				t.Errorf("unexpected restaurant %q", req.Restaurant)
			}
			return 42, nil
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	rec := doJSON(t, router, http.MethodPost, "/orders/create", map[string]interface{}{
		"owner_id":   1,
		"restaurant": "Pizza",
		"expiration": time.Now().Add(time.Hour).Format(time.RFC3339),
		"loc":        "Harper Library",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["orderId"] != float64(42) {
		t.Errorf("orderId = %v, want 42", body["orderId"])
	}
}

func TestCreateOrderErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"missing restaurant", domain.ErrRestaurantRequired, http.StatusBadRequest, "Restaurant name is required."},
		{"bad location", domain.ErrInvalidLocation, http.StatusBadRequest, "Invalid location."},
		{"unknown owner", domain.ErrUserNotFound, http.StatusNotFound, "User not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := &stubGroupService{
				createFn: func(_ context.Context, _ *domain.CreateGroupRequest) (int64, error) {
					return 0, tt.err
				},
			}
			router := newTestRouter(&stubIdentityService{}, group, false)

			rec := doJSON(t, router, http.MethodPost, "/orders/create", map[string]interface{}{"owner_id": 1})
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeEnvelope(t, rec)
			if body["error"] != tt.wantMsg {
				t.Errorf("error = %v, want %q", body["error"], tt.wantMsg)
			}
		})
	}
}

func TestJoinOrder(t *testing.T) {
	var gotOrder, gotUser int64
	group := &stubGroupService{
		joinFn: func(_ context.Context, orderID, userID int64) error {
			gotOrder, gotUser = orderID, userID
			return nil
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	rec := doJSON(t, router, http.MethodPost, "/orders/join/7", map[string]interface{}{"user_id": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotOrder != 7 || gotUser != 3 {
		t.Errorf("join called with (%d, %d), want (7, 3)", gotOrder, gotUser)
	}
}

func TestJoinOrderBadInput(t *testing.T) {
	group := &stubGroupService{
		joinFn: func(_ context.Context, _, _ int64) error {
			t.Error("service should not be called on bad input")
			return nil
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	// Missing user id.
	rec := doJSON(t, router, http.MethodPost, "/orders/join/7", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d, want 400", rec.Code)
	}

	// Non-numeric order id.
	rec = doJSON(t, router, http.MethodPost, "/orders/join/abc", map[string]interface{}{"user_id": 3})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad order id status = %d, want 400", rec.Code)
	}
}

func TestJoinOrderConflictStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"own group", domain.ErrCannotJoinOwnGroup, http.StatusConflict},
		{"already member", domain.ErrAlreadyMember, http.StatusConflict},
		{"expired group", domain.ErrGroupExpired, http.StatusConflict},
		{"closed group", domain.ErrGroupClosed, http.StatusConflict},
		{"missing group", domain.ErrOrderNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := &stubGroupService{
				joinFn: func(_ context.Context, _, _ int64) error { return tt.err },
			}
			router := newTestRouter(&stubIdentityService{}, group, false)

			rec := doJSON(t, router, http.MethodPost, "/orders/join/7", map[string]interface{}{"user_id": 3})
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestLeaveOrder(t *testing.T) {
	group := &stubGroupService{
		leaveFn: func(_ context.Context, orderID, userID int64) error {
			if orderID != 7 || userID != 3 {
				t.Errorf("leave called with (%d, %d), want (7, 3)", orderID, userID)
			}
			return nil
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	rec := doJSON(t, router, http.MethodPost, "/orders/leave/7", map[string]interface{}{"user_id": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestListOrdersEmptyIsArray(t *testing.T) {
	group := &stubGroupService{
		listActiveFn: func(_ context.Context) ([]domain.GroupSummary, error) {
			return nil, nil
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	rec := doJSON(t, router, http.MethodGet, "/orders/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var groups []domain.GroupSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("response is not an array: %q", rec.Body.String())
	}
	if groups == nil {
		t.Error("expected [] for no active groups, got null")
	}
}

func TestOrderDetails(t *testing.T) {
	group := &stubGroupService{
		getDetailFn: func(_ context.Context, orderID int64) (*domain.GroupDetail, error) {
			if orderID != 9 {
				t.Errorf("detail requested for %d, want 9", orderID)
			}
			return &domain.GroupDetail{
				ID: 9, Restaurant: "Pizza", Loc: "Harper Library", IsOpen: false,
				Members: []domain.MemberDetail{{UserID: 1, Name: "Alex", Cell: "773-555-0142", IsOwner: true}},
			}, nil
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	rec := doJSON(t, router, http.MethodGet, "/orders/details/9", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var detail domain.GroupDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(detail.Members) != 1 || !detail.Members[0].IsOwner {
		t.Errorf("unexpected members %+v", detail.Members)
	}
}

func TestOrderDetailsNotFound(t *testing.T) {
	group := &stubGroupService{
		getDetailFn: func(_ context.Context, _ int64) (*domain.GroupDetail, error) {
			return nil, domain.ErrOrderNotFound
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	rec := doJSON(t, router, http.MethodGet, "/orders/details/404", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["error"] != "Order not found." {
		t.Errorf("error = %v, want %q", body["error"], "Order not found.")
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	group := &stubGroupService{
		updateStatusFn: func(_ context.Context, orderID int64, isOpen bool) error {
			if orderID != 5 || isOpen {
				t.Errorf("update called with (%d, %v), want (5, false)", orderID, isOpen)
			}
			return nil
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	rec := doJSON(t, router, http.MethodPost, "/orders/update-status/5", map[string]interface{}{"is_open": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestUpdateOrderStatusReopenConflict(t *testing.T) {
	group := &stubGroupService{
		updateStatusFn: func(_ context.Context, _ int64, _ bool) error {
			return domain.ErrCannotReopen
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	rec := doJSON(t, router, http.MethodPost, "/orders/update-status/5", map[string]interface{}{"is_open": true})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestDeleteOrder(t *testing.T) {
	group := &stubGroupService{
		deleteFn: func(_ context.Context, orderID int64) error {
			if orderID != 11 {
				t.Errorf("delete called for %d, want 11", orderID)
			}
			return nil
		},
	}
	router := newTestRouter(&stubIdentityService{}, group, false)

	rec := doJSON(t, router, http.MethodPost, "/orders/delete/11", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Error("expected success envelope")
	}
}

func TestMalformedJSONBody(t *testing.T) {
	router := newTestRouter(&stubIdentityService{}, &stubGroupService{}, false)

	req := httptest.NewRequest(http.MethodPost, "/orders/create", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
