package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/minegate/minegate-api/internal/domain"
)

// Register handles account self-registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	user, _, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "Registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful. Your account is pending approval.",
		"user":    user.ToUserInfo(),
	})
}

// Login handles document-based authentication. Each failure mode gets
// its own message so the caller can tell a wrong password from a
// pending account.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	response, err := h.authService.Login(r.Context(), &req, r.URL.Query().Get("next"))
	if err != nil {
		var fields domain.FieldErrors
		var rejected *domain.AccessRejectedError
		switch {
		case asFieldErrors(err, &fields):
			writeFieldErrors(w, fields)
		case errors.Is(err, domain.ErrDocumentNotRegistered):
			writeError(w, http.StatusUnauthorized, err.Error(), "DOCUMENT_NOT_REGISTERED")
		case errors.Is(err, domain.ErrIncorrectPassword):
			writeError(w, http.StatusUnauthorized, err.Error(), "INCORRECT_PASSWORD")
		case errors.Is(err, domain.ErrAccountDeactivated):
			writeError(w, http.StatusForbidden, err.Error(), "ACCOUNT_DEACTIVATED")
		case errors.As(err, &rejected):
			writeError(w, http.StatusForbidden, rejected.Error(), "ACCESS_REJECTED")
		case errors.Is(err, domain.ErrPendingApproval):
			writeError(w, http.StatusForbidden, err.Error(), "PENDING_APPROVAL")
		default:
			writeServiceError(w, r, err, "Login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// Welcome consumes a one-shot welcome token issued at login. A second
// request with the same token finds nothing.
func (h *Handlers) Welcome(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "Missing welcome token", "INVALID_INPUT")
		return
	}

	greeting, err := h.authService.ConsumeWelcome(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err, "Failed to consume welcome token")
		return
	}
	if greeting == nil {
		writeError(w, http.StatusNotFound, "Welcome token not found or already used", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"name":     greeting.Name,
		"redirect": greeting.Redirect,
	})
}

// RequestPasswordReset handles reset requests. The response does not
// reveal whether the address matched an account.
func (h *Handlers) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", "INVALID_INPUT")
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err, "Failed to process reset request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the email is registered, a recovery link has been sent.",
	})
}

// ConfirmPasswordReset handles the second half of the reset flow
func (h *Handlers) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	if err := h.authService.ConfirmPasswordReset(r.Context(), req.Token, req.Password, req.PasswordConfirm); err != nil {
		writeServiceError(w, r, err, "Failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated. You can now log in with your new password.",
	})
}

// Me returns the authenticated user's account and profile
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing token claims", "UNAUTHORIZED")
		return
	}

	user, profile, err := h.authService.GetProfile(r.Context(), claims.Sub)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load profile")
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

// UpdateMe lets a user edit their own names, email and contact data.
// The document number is not editable.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing token claims", "UNAUTHORIZED")
		return
	}

	var req domain.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	user, profile, err := h.authService.UpdateOwnProfile(r.Context(), claims.Sub, &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update profile")
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
