package httpd

import (
	"context"
	"net/http"
	"time"

	"github.com/RubachokBoss/essay-grader/internal/models"
)

const serviceName = "essay-grader"

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthCheckResponse{
		Status:  "ok",
		Service: serviceName,
	})
}

func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	response := models.HealthCheckResponse{
		Status:       "ready",
		Service:      serviceName,
		Dependencies: make(map[string]string, len(h.checks)),
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log(r).Warn().Err(err).Str("dependency", name).Msg("Readiness check failed")
			response.Dependencies[name] = "unavailable"
			response.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Dependencies[name] = "ok"
	}

	writeJSON(w, status, response)
}
