package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/minegate/minegate-api/internal/repository"
)

// ListPermissions lists non-superuser profiles with their approval
// state, filtered and searchable, plus the counts block.
func (h *Handlers) ListPermissions(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProfileFilter{
		State:  r.URL.Query().Get("state"),
		Search: r.URL.Query().Get("search"),
	}
	if filter.State == "" {
		filter.State = "all"
	}

	profiles, counts, err := h.approvalService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list permissions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"counts":   counts,
	})
}

// ApproveUser grants access. Approving an already-approved or a
// rejected user just overwrites the previous decision.
func (h *Handlers) ApproveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID", "INVALID_INPUT")
		return
	}

	claims := getClaims(r)
	profile, err := h.approvalService.Approve(r.Context(), id, claims.Sub)
	if err != nil {
		writeServiceError(w, r, err, "Failed to approve user")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "User not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User approved",
		"profile": profile,
	})
}

// RejectUser denies access with a reason shown at the next login
// attempt
func (h *Handlers) RejectUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID", "INVALID_INPUT")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	claims := getClaims(r)
	profile, err := h.approvalService.Reject(r.Context(), id, claims.Sub, req.Reason)
	if err != nil {
		writeServiceError(w, r, err, "Failed to reject user")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "User not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User rejected",
		"profile": profile,
	})
}
