package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eckinger/uchomp/internal/domain"
)

// ListOrders handles GET /orders
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupService.ListActive(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	if groups == nil {
		groups = []domain.GroupSummary{}
	}

	writeJSON(w, http.StatusOK, groups)
}

// OrderDetails handles GET /orders/details/{id}
func (h *Handlers) OrderDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid order ID")
		return
	}

	detail, err := h.groupService.GetDetail(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// CreateOrder handles POST /orders/create
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON format")
		return
	}

	orderID, err := h.groupService.Create(r.Context(), &req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orderId": orderID,
	})
}

// JoinOrder handles POST /orders/join/{id}
func (h *Handlers) JoinOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid order ID")
		return
	}

	var req domain.JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		writeBadRequest(w, "User ID is required")
		return
	}

	if err := h.groupService.Join(r.Context(), id, req.UserID); err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// LeaveOrder handles POST /orders/leave/{id}
func (h *Handlers) LeaveOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid order ID")
		return
	}

	var req domain.LeaveGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		writeBadRequest(w, "User ID is required")
		return
	}

	if err := h.groupService.Leave(r.Context(), id, req.UserID); err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// UpdateOrderStatus handles POST /orders/update-status/{id}
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid order ID")
		return
	}

	var req domain.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.groupService.UpdateStatus(r.Context(), id, req.IsOpen); err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// DeleteOrder handles POST /orders/delete/{id}
func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid order ID")
		return
	}

	if err := h.groupService.Delete(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
