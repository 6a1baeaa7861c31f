package httpd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RubachokBoss/essay-grader/internal/service"
	"github.com/RubachokBoss/essay-grader/internal/similarity"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Message: message})
}

// statusFor maps service and provider errors to HTTP statuses. Bad input is
// the caller's fault; everything raised while grading is ours.
func statusFor(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, similarity.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrQueueUnavailable), errors.Is(err, service.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log(r).Error().Err(err).Int("status", status).Msg("Request failed")
	}
	writeError(w, status, err.Error())
}
