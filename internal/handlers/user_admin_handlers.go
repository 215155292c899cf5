package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/repository"
	"github.com/minegate/minegate-api/internal/service"
)

// ListUsers handles the staff user listing with search and flag filters
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := repository.UserFilter{
		Search: r.URL.Query().Get("search"),
		Active: parseBoolFlag(r, "active"),
		Staff:  parseBoolFlag(r, "staff"),
		Limit:  limit,
		Offset: offset,
	}

	users, err := h.userAdmin.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list users")
		return
	}

	userInfos := make([]*domain.UserInfo, len(users))
	for i := range users {
		userInfos[i] = users[i].ToUserInfo()
	}

	writeJSON(w, http.StatusOK, userInfos)
}

// CreateUser handles staff-side account creation
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		domain.RegisterRequest
		IsStaff bool `json:"is_staff"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	user, profile, err := h.userAdmin.Create(r.Context(), &req.RegisterRequest, req.IsStaff)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":    user.ToUserInfo(),
		"profile": profile,
	})
}

// GetUser handles getting a specific user with its profile
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID", "INVALID_INPUT")
		return
	}

	user, profile, err := h.userAdmin.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    user.ToUserInfo(),
		"profile": profile,
	})
}

// UpdateUser handles staff edits of identity, flags and contact data
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID", "INVALID_INPUT")
		return
	}

	var req domain.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	user, profile, err := h.userAdmin.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    user.ToUserInfo(),
		"profile": profile,
	})
}

// DeactivateUser handles the two-step soft delete: without
// confirm=true the account is returned untouched with a confirmation
// flag; with it, the account is marked inactive.
func (h *Handlers) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID", "INVALID_INPUT")
		return
	}

	user, _, err := h.userAdmin.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", "NOT_FOUND")
		return
	}

	if !confirmRequested(r) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"confirm_required": true,
			"message":          "Repeat the request with confirm=true to deactivate this account",
			"user":             user.ToUserInfo(),
		})
		return
	}

	claims := getClaims(r)
	if err := h.userAdmin.Deactivate(r.Context(), id, claims.Sub); err != nil {
		switch {
		case errors.Is(err, service.ErrProtectedUser):
			writeError(w, http.StatusForbidden, err.Error(), "PROTECTED_USER")
		case errors.Is(err, service.ErrSelfDeactivation):
			writeError(w, http.StatusForbidden, err.Error(), "SELF_DEACTIVATION")
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found", "NOT_FOUND")
		default:
			writeServiceError(w, r, err, "Failed to deactivate user")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User deactivated",
	})
}
