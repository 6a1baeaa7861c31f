package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/RubachokBoss/essay-grader/internal/models"
)

func (h *Handler) decodeGradeRequest(w http.ResponseWriter, r *http.Request) (models.GradeRequest, bool) {
	var req models.GradeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) Grade(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGradeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.gradingService.Grade(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) GradeAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGradeRequest(w, r)
	if !ok {
		return
	}

	reportID, err := h.gradingService.Submit(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusAccepted, models.AsyncGradeResponse{
		ReportID:  reportID,
		Status:    models.ReportStatusPending.String(),
		StatusURL: "/api/v1/reports/" + reportID,
	})
}

func (h *Handler) SampleRubric(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.gradingService.SampleRubric())
}

func (h *Handler) SampleKeyPoints(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.gradingService.SampleKeyPoints())
}
