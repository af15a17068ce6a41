package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/eckinger/uchomp/internal/domain"
)

// SendCode handles POST /users/send-code
func (h *Handlers) SendCode(w http.ResponseWriter, r *http.Request) {
	var req domain.SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON format")
		return
	}

	if !h.allowSendCode(r, strings.ToLower(strings.TrimSpace(req.Email))) {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"success": false,
			"error":   "Too many requests. Try again later.",
		})
		return
	}

	code, err := h.identityService.RequestCode(r.Context(), &req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	response := map[string]interface{}{"success": true}
	// The raw code leaves the API only in dev mode.
	if h.config.Email.DevMode {
		response["code"] = code
	}
	writeJSON(w, http.StatusOK, response)
}

// Verify handles POST /users/verify
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON format")
		return
	}

	token, err := h.identityService.VerifyCode(r.Context(), &req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

// UpdateProfile handles POST /users/update
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.identityService.CompleteProfile(r.Context(), &req); err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// CheckProfile handles POST /users/check-profile
func (h *Handlers) CheckProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeBadRequest(w, "Email is required")
		return
	}

	hasProfile, err := h.identityService.CheckProfile(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"hasProfile": hasProfile,
	})
}
