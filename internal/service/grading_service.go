package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/essay-grader/internal/grading"
	"github.com/RubachokBoss/essay-grader/internal/models"
	"github.com/RubachokBoss/essay-grader/internal/repository"
	"github.com/RubachokBoss/essay-grader/internal/rubric"
	"github.com/RubachokBoss/essay-grader/internal/storage"
)

type GradingService interface {
	Grade(ctx context.Context, req models.GradeRequest) (*models.GradingResult, error)
	Submit(ctx context.Context, req models.GradeRequest) (string, error)
	Process(ctx context.Context, job models.GradingRequestedEvent) error
	SampleRubric() models.Rubric
	SampleKeyPoints() models.KeyPointSet
}

// Publisher sends grading events to the queue.
type Publisher interface {
	PublishGradingRequested(ctx context.Context, event models.GradingRequestedEvent) error
	PublishGradingCompleted(ctx context.Context, event models.GradingCompletedEvent) error
}

type GradingConfig struct {
	Validation      ValidationConfig
	JobTimeout      time.Duration
	// nil serves the built-in samples
	SampleRubric    *models.Rubric
	SampleKeyPoints *models.KeyPointSet
}

type gradingService struct {
	engine     *grading.Engine
	reportRepo repository.ReportRepository
	archive    storage.Archive
	publisher  Publisher
	logger     zerolog.Logger
	config     GradingConfig
}

// NewGradingService wires the engine to the optional infrastructure.
// reportRepo, archive and publisher may each be nil; synchronous grading
// works without any of them.
func NewGradingService(
	engine *grading.Engine,
	reportRepo repository.ReportRepository,
	archive storage.Archive,
	publisher Publisher,
	logger zerolog.Logger,
	config GradingConfig,
) GradingService {
	return &gradingService{
		engine:     engine,
		reportRepo: reportRepo,
		archive:    archive,
		publisher:  publisher,
		logger:     logger,
		config:     config,
	}
}

func (s *gradingService) Grade(ctx context.Context, req models.GradeRequest) (*models.GradingResult, error) {
	if err := Validate(&req, s.config.Validation); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.engine.Grade(ctx, req.EssayText, req.KeyPoints, req.Rubric)
	if err != nil {
		s.logger.Error().Err(err).Str("rubric", req.Rubric.Name).Msg("Grading failed")
		return nil, err
	}

	s.logger.Info().
		Str("topic", req.KeyPoints.Topic).
		Str("rubric", req.Rubric.Name).
		Float64("total_score", result.TotalScore).
		Dur("duration", time.Since(start)).
		Msg("Essay graded")

	if s.reportRepo != nil {
		result.ReportID = s.record(ctx, req, result)
	}

	return result, nil
}

// record stores a synchronously graded essay and returns its report id.
// Failures are logged; the caller already has its result.
func (s *gradingService) record(ctx context.Context, req models.GradeRequest, result *models.GradingResult) string {
	id := uuid.New().String()
	result.ReportID = id

	report, err := newReport(id, req, models.ReportStatusCompleted)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build report")
		return ""
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", id).Msg("Failed to encode result")
		return ""
	}

	now := time.Now()
	report.StartedAt = &now
	report.CompletedAt = &now
	report.TotalScore = &result.TotalScore
	report.MaxScore = &result.MaxScore
	report.Result = encoded
	report.ArchiveKey = s.archiveReport(ctx, id, req.EssayText, encoded)

	if err := s.reportRepo.Create(ctx, report); err != nil {
		s.logger.Error().Err(err).Str("report_id", id).Msg("Failed to save report")
		return ""
	}

	s.publishCompleted(ctx, id, models.ReportStatusCompleted, result, "")
	return id
}

func (s *gradingService) Submit(ctx context.Context, req models.GradeRequest) (string, error) {
	if err := Validate(&req, s.config.Validation); err != nil {
		return "", err
	}
	if s.reportRepo == nil || s.publisher == nil {
		return "", ErrQueueUnavailable
	}

	id := uuid.New().String()
	report, err := newReport(id, req, models.ReportStatusPending)
	if err != nil {
		return "", err
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}

	event := models.GradingRequestedEvent{
		ReportID:  id,
		Request:   req,
		Timestamp: time.Now().Unix(),
	}
	if err := s.publisher.PublishGradingRequested(ctx, event); err != nil {
		if failErr := s.reportRepo.Fail(ctx, id, "failed to queue grading job"); failErr != nil {
			s.logger.Error().Err(failErr).Str("report_id", id).Msg("Failed to mark report as failed")
		}
		return "", fmt.Errorf("%w: %w", ErrQueueUnavailable, err)
	}

	s.logger.Info().Str("report_id", id).Msg("Grading job queued")
	return id, nil
}

// Process runs one queued job. The outcome is recorded on the report; an
// error wrapping ErrGradingFailed means the failure is already recorded.
func (s *gradingService) Process(ctx context.Context, job models.GradingRequestedEvent) error {
	if s.reportRepo == nil {
		return ErrPersistenceUnavailable
	}
	if job.ReportID == "" {
		return invalid("report_id", "report_id is required")
	}

	if err := s.reportRepo.MarkProcessing(ctx, job.ReportID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrReportNotFound, job.ReportID)
		}
		return fmt.Errorf("failed to mark report as processing: %w", err)
	}

	req := job.Request
	if err := Validate(&req, s.config.Validation); err != nil {
		return s.fail(ctx, job.ReportID, err)
	}

	jobCtx := ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.engine.Grade(jobCtx, req.EssayText, req.KeyPoints, req.Rubric)
	if err != nil {
		return s.fail(ctx, job.ReportID, err)
	}
	result.ReportID = job.ReportID

	encoded, err := json.Marshal(result)
	if err != nil {
		return s.fail(ctx, job.ReportID, err)
	}

	archiveKey := s.archiveReport(ctx, job.ReportID, req.EssayText, encoded)

	if err := s.reportRepo.Complete(ctx, job.ReportID, result.TotalScore, result.MaxScore, encoded, archiveKey); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	s.logger.Info().
		Str("report_id", job.ReportID).
		Float64("total_score", result.TotalScore).
		Float64("max_score", result.MaxScore).
		Dur("duration", time.Since(start)).
		Msg("Grading job completed")

	s.publishCompleted(ctx, job.ReportID, models.ReportStatusCompleted, result, "")
	return nil
}

func (s *gradingService) fail(ctx context.Context, reportID string, cause error) error {
	s.logger.Error().Err(cause).Str("report_id", reportID).Msg("Grading job failed")

	if err := s.reportRepo.Fail(ctx, reportID, cause.Error()); err != nil {
		return fmt.Errorf("failed to record failure (%v): %w", cause, err)
	}

	s.publishCompleted(ctx, reportID, models.ReportStatusFailed, nil, cause.Error())
	return fmt.Errorf("%w: %w", ErrGradingFailed, cause)
}

// archiveReport stores essay and result and returns the result key, or ""
// when archiving is off or failed.
func (s *gradingService) archiveReport(ctx context.Context, reportID, essay string, result []byte) string {
	if s.archive == nil {
		return ""
	}

	if _, err := s.archive.SaveEssay(ctx, reportID, essay); err != nil {
		s.logger.Warn().Err(err).Str("report_id", reportID).Msg("Failed to archive essay")
		return ""
	}

	key, err := s.archive.SaveResult(ctx, reportID, result)
	if err != nil {
		s.logger.Warn().Err(err).Str("report_id", reportID).Msg("Failed to archive result")
		return ""
	}
	return key
}

func (s *gradingService) publishCompleted(ctx context.Context, reportID string, status models.ReportStatus, result *models.GradingResult, message string) {
	if s.publisher == nil {
		return
	}

	event := models.GradingCompletedEvent{
		ReportID:    reportID,
		Status:      status.String(),
		Error:       message,
		CompletedAt: time.Now(),
	}
	if result != nil {
		event.TotalScore = result.TotalScore
		event.MaxScore = result.MaxScore
	}

	if err := s.publisher.PublishGradingCompleted(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("report_id", reportID).Msg("Failed to publish completion event")
	}
}

func (s *gradingService) SampleRubric() models.Rubric {
	if s.config.SampleRubric != nil {
		return *s.config.SampleRubric
	}
	return rubric.Default()
}

func (s *gradingService) SampleKeyPoints() models.KeyPointSet {
	if s.config.SampleKeyPoints != nil {
		return *s.config.SampleKeyPoints
	}
	return rubric.SampleKeyPoints()
}

func newReport(id string, req models.GradeRequest, status models.ReportStatus) (*models.Report, error) {
	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	now := time.Now()
	return &models.Report{
		ID:         id,
		Status:     status.String(),
		Topic:      req.KeyPoints.Topic,
		RubricName: req.Rubric.Name,
		EssayText:  req.EssayText,
		Request:    encoded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
