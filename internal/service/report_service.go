package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/essay-grader/internal/models"
	"github.com/RubachokBoss/essay-grader/internal/repository"
	"github.com/RubachokBoss/essay-grader/internal/storage"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ReportService interface {
	GetReport(ctx context.Context, reportID string) (*models.Report, error)
	ListReports(ctx context.Context, limit, offset int) (*models.ListReportsResponse, error)
}

type reportService struct {
	reportRepo repository.ReportRepository
	archive    storage.Archive
	logger     zerolog.Logger
}

// NewReportService returns a service that answers ErrPersistenceUnavailable
// when reportRepo is nil. archive may be nil.
func NewReportService(reportRepo repository.ReportRepository, archive storage.Archive, logger zerolog.Logger) ReportService {
	return &reportService{
		reportRepo: reportRepo,
		archive:    archive,
		logger:     logger,
	}
}

func (s *reportService) GetReport(ctx context.Context, reportID string) (*models.Report, error) {
	if s.reportRepo == nil {
		return nil, ErrPersistenceUnavailable
	}

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	if len(report.Result) == 0 && report.ArchiveKey != "" && s.archive != nil {
		s.restoreResult(ctx, report)
	}

	return report, nil
}

// restoreResult fills a completed report whose result row was cleared from
// the archived copy.
func (s *reportService) restoreResult(ctx context.Context, report *models.Report) {
	result, err := s.archive.LoadResult(ctx, report.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("report_id", report.ID).Msg("Failed to load archived result")
		return
	}
	report.Result = result
}

func (s *reportService) ListReports(ctx context.Context, limit, offset int) (*models.ListReportsResponse, error) {
	if s.reportRepo == nil {
		return nil, ErrPersistenceUnavailable
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	reports, total, err := s.reportRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return &models.ListReportsResponse{
		Reports: reports,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}
