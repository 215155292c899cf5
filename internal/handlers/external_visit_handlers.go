package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/minegate/minegate-api/internal/domain"
	"github.com/minegate/minegate-api/internal/export"
	"github.com/minegate/minegate-api/internal/repository"
)

func parseVisitFilter(r *http.Request) repository.VisitFilter {
	filter := repository.VisitFilter{
		Name:   r.URL.Query().Get("name"),
		Status: r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			filter.ID = &id
		}
	}
	return filter
}

// ListExternalVisits handles the external visit listing, newest date
// first
func (h *Handlers) ListExternalVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := h.externalVisits.List(r.Context(), parseVisitFilter(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list external visits")
		return
	}
	writeJSON(w, http.StatusOK, visits)
}

// CreateExternalVisit handles scheduling an external visit
func (h *Handlers) CreateExternalVisit(w http.ResponseWriter, r *http.Request) {
	var req domain.ExternalVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	visit, err := h.externalVisits.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create external visit")
		return
	}

	writeJSON(w, http.StatusCreated, visit)
}

// GetExternalVisit handles fetching one external visit
func (h *Handlers) GetExternalVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid visit ID", "INVALID_INPUT")
		return
	}

	visit, err := h.externalVisits.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get external visit")
		return
	}
	if visit == nil {
		writeError(w, http.StatusNotFound, "Visit not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

// UpdateExternalVisit handles editing an external visit
func (h *Handlers) UpdateExternalVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid visit ID", "INVALID_INPUT")
		return
	}

	var req domain.ExternalVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	visit, err := h.externalVisits.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update external visit")
		return
	}
	if visit == nil {
		writeError(w, http.StatusNotFound, "Visit not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, visit)
}

// DeleteExternalVisit handles the two-step delete: without
// confirm=true the record is returned with a confirmation flag.
func (h *Handlers) DeleteExternalVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid visit ID", "INVALID_INPUT")
		return
	}

	if !confirmRequested(r) {
		visit, err := h.externalVisits.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err, "Failed to get external visit")
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

	deleted, err := h.externalVisits.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to delete external visit")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Visit not found", "NOT_FOUND")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportExternalVisits streams the (filtered) external visit list as
// an xlsx workbook
func (h *Handlers) ExportExternalVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := h.externalVisits.List(r.Context(), parseVisitFilter(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list external visits")
		return
	}

	buf, err := export.ExternalVisitsWorkbook(visits)
	if err != nil {
		writeServiceError(w, r, err, "Failed to build workbook")
		return
	}

	filename := fmt.Sprintf("external-visits-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(buf.Bytes())
}
