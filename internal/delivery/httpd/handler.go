package httpd

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/essay-grader/internal/service"
)

// maxBodyBytes bounds request bodies; essays are capped separately by
// grading.max_essay_length.
const maxBodyBytes = 4 << 20

// ReadinessCheck reports whether one dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type Handler struct {
	gradingService service.GradingService
	reportService  service.ReportService
	checks         map[string]ReadinessCheck
	logger         zerolog.Logger
}

// NewHandler builds the HTTP handler. checks are run by /ready, keyed by
// dependency name; nil means always ready.
func NewHandler(
	gradingService service.GradingService,
	reportService service.ReportService,
	checks map[string]ReadinessCheck,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		gradingService: gradingService,
		reportService:  reportService,
		checks:         checks,
		logger:         logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/ready", h.ReadinessCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/grade", func(r chi.Router) {
			r.Post("/", h.Grade)
			r.Post("/async", h.GradeAsync)
		})

		api.Route("/reports", func(r chi.Router) {
			r.Get("/", h.ListReports)
			r.Get("/{report_id}", h.GetReport)
		})

		api.Get("/sample-rubric", h.SampleRubric)
		api.Get("/sample-keypoints", h.SampleKeyPoints)
	})
}

// log prefers the request-scoped logger set by the logging middleware.
func (h *Handler) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.logger
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}
