package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eckinger/uchomp/internal/domain"
	"github.com/eckinger/uchomp/internal/service"
	"github.com/eckinger/uchomp/pkg/config"
	"github.com/eckinger/uchomp/pkg/logger"
	"github.com/eckinger/uchomp/pkg/ratelimit"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	identityService service.IdentityService
	groupService    service.GroupService
	limiter         *ratelimit.Limiter
	config          *config.Config
}

func New(
	identityService service.IdentityService,
	groupService service.GroupService,
	limiter *ratelimit.Limiter,
	config *config.Config,
) *Handlers {
	return &Handlers{
		identityService: identityService,
		groupService:    groupService,
		limiter:         limiter,
		config:          config,
	}
}

// Routes mounts the full HTTP surface on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/send-code", h.SendCode)
		r.Post("/verify", h.Verify)
		r.Post("/update", h.UpdateProfile)
		r.Post("/check-profile", h.CheckProfile)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/details/{id}", h.OrderDetails)
		r.Post("/create", h.CreateOrder)
		r.Post("/join/{id}", h.JoinOrder)
		r.Post("/leave/{id}", h.LeaveOrder)
		r.Post("/update-status/{id}", h.UpdateOrderStatus)
		r.Post("/delete/{id}", h.DeleteOrder)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeFailure maps the error kind to an HTTP status and the uniform
// {success:false, error} envelope.
func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict, domain.KindState:
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// allowSendCode rate-limits code requests per client IP and per email.
// A nil limiter (tests, dev without Redis) allows everything.
func (h *Handlers) allowSendCode(r *http.Request, email string) bool {
	if h.limiter == nil {
		return true
	}

	checks := []struct {
		key      string
		requests int
	}{
		{"send-code:ip:" + getClientIP(r), 10},
		{"send-code:email:" + email, 3},
	}
	for _, c := range checks {
		allowed, err := h.limiter.Allow(r.Context(), c.key, c.requests, time.Minute)
		if err != nil {
			logger.WarnContext(r.Context(), "Rate limit check failed", "error", err)
		}
		if !allowed {
			return false
		}
	}
	return true
}
