package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/observability"
	"github.com/minegate/minegate-api/internal/service"
	"github.com/minegate/minegate-api/pkg/auth"
	"github.com/minegate/minegate-api/pkg/config"
	"github.com/minegate/minegate-api/pkg/logger"
)

type contextKey string

const claimsKey contextKey = "claims"

type Handlers struct {
	authService     service.AuthService
	approvalService service.ApprovalService
	userAdmin       service.UserAdminService
	externalVisits  service.ExternalVisitService
	internalVisits  service.InternalVisitService
	config          *config.Config
}

func New(
	authService service.AuthService,
	approvalService service.ApprovalService,
	userAdmin service.UserAdminService,
	externalVisits service.ExternalVisitService,
	internalVisits service.InternalVisitService,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService:     authService,
		approvalService: approvalService,
		userAdmin:       userAdmin,
		externalVisits:  externalVisits,
		internalVisits:  internalVisits,
		config:          config,
	}
}

// Middleware for JWT authentication
func (h *Handlers) RequireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireStaff gates a route to staff and superuser accounts. It must
// run after RequireJWT.
func (h *Handlers) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := getClaims(r)
		if claims == nil || (!claims.IsStaff && !claims.IsSuperuser) {
			writeError(w, http.StatusForbidden, "Staff access required", "FORBIDDEN")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSuperuser gates a route to superusers only. It must run after
// RequireJWT.
func (h *Handlers) RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := getClaims(r)
		if claims == nil || !claims.IsSuperuser {
			writeError(w, http.StatusForbidden, "Superuser access required", "FORBIDDEN")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helper functions
func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func urlParamID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response := map[string]string{
		"error": message,
		"code":  code,
	}
	writeJSON(w, statusCode, response)
}

// writeFieldErrors emits the field-level validation contract: a 400
// carrying one message per offending field.
func writeFieldErrors(w http.ResponseWriter, fields domain.FieldErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  "Validation failed",
		"code":   "VALIDATION_FAILED",
		"fields": fields,
	})
}

// writeServiceError routes a service error to the right response:
// validation failures keep their field map, anything else is opaque.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var fields domain.FieldErrors
	if ok := asFieldErrors(err, &fields); ok {
		writeFieldErrors(w, fields)
		return
	}
	logger.ErrorContext(r.Context(), fallback, "error", err)
	observability.CaptureErr(err)
	writeError(w, http.StatusInternalServerError, fallback, "INTERNAL_ERROR")
}

func asFieldErrors(err error, target *domain.FieldErrors) bool {
	if fe, ok := err.(domain.FieldErrors); ok {
		*target = fe
		return true
	}
	return false
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

func parseBoolFlag(r *http.Request, name string) *bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func confirmRequested(r *http.Request) bool {
	return r.URL.Query().Get("confirm") == "true"
}
