package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/export"
)

// ListInternalVisits handles the internal visit listing, with the
// extra status filter
func (h *Handlers) ListInternalVisits(w http.ResponseWriter, r *http.Request) {
	filter := parseVisitFilter(r)
	if filter.Status != "" {
		if _, ok := domain.ParseVisitStatus(filter.Status); !ok {
			writeError(w, http.StatusBadRequest, "Unknown status filter", "INVALID_INPUT")
			return
		}
	}

	visits, err := h.internalVisits.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list internal visits")
		return
	}
	writeJSON(w, http.StatusOK, visits)
}

// CreateInternalVisit handles scheduling an internal visit
func (h *Handlers) CreateInternalVisit(w http.ResponseWriter, r *http.Request) {
	var req domain.InternalVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	visit, err := h.internalVisits.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create internal visit")
		return
	}

	writeJSON(w, http.StatusCreated, visit)
}

// GetInternalVisit handles fetching one internal visit
func (h *Handlers) GetInternalVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid visit ID", "INVALID_INPUT")
		return
	}

	visit, err := h.internalVisits.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get internal visit")
		return
	}
	if visit == nil {
		writeError(w, http.StatusNotFound, "Visit not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

// UpdateInternalVisit handles editing an internal visit, including
// its status
func (h *Handlers) UpdateInternalVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid visit ID", "INVALID_INPUT")
		return
	}

	var req domain.InternalVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	visit, err := h.internalVisits.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update internal visit")
		return
	}
	if visit == nil {
		writeError(w, http.StatusNotFound, "Visit not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

// DeleteInternalVisit handles the two-step delete
func (h *Handlers) DeleteInternalVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid visit ID", "INVALID_INPUT")
		return
	}

	if !confirmRequested(r) {
		visit, err := h.internalVisits.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err, "Failed to get internal visit")
			return
		}
		if visit == nil {
			writeError(w, http.StatusNotFound, "Visit not found", "NOT_FOUND")
			return
		}
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"confirm_required": true,
			"message":          "Repeat the request with confirm=true to delete this visit",
			"visit":            visit,
		})
		return
	}

	deleted, err := h.internalVisits.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to delete internal visit")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Visit not found", "NOT_FOUND")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportInternalVisits streams the (filtered) internal visit list as
// an xlsx workbook
func (h *Handlers) ExportInternalVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := h.internalVisits.List(r.Context(), parseVisitFilter(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list internal visits")
		return
	}

	buf, err := export.InternalVisitsWorkbook(visits)
	if err != nil {
		writeServiceError(w, r, err, "Failed to build workbook")
		return
	}

	filename := fmt.Sprintf("internal-visits-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(buf.Bytes())
}
