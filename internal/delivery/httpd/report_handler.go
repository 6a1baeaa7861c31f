package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "report_id")
	if _, err := uuid.Parse(reportID); err != nil {
		writeError(w, http.StatusBadRequest, "report id must be a UUID")
		return
	}

	report, err := h.reportService.GetReport(r.Context(), reportID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, report)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := getIntQueryParam(r, "limit", 0)
	offset := getIntQueryParam(r, "offset", 0)

	response, err := h.reportService.ListReports(r.Context(), limit, offset)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, response)
}
