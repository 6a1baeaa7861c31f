package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/essay-grader/internal/models"
)

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, limit, offset int) ([]models.Report, int, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, totalScore, maxScore float64, result []byte, archiveKey string) error
	Fail(ctx context.Context, id, message string) error
	Ping(ctx context.Context) error
}

type reportRepository struct {
	*PostgresRepository
}

func NewReportRepository(db *sql.DB, logger zerolog.Logger) ReportRepository {
	return &reportRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const reportColumns = `
	id, status, topic, rubric_name, essay_text, request,
	total_score, max_score, result, error_message, archive_key,
	created_at, started_at, completed_at, updated_at`

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO grading_reports (` + reportColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.Status,
		report.Topic,
		report.RubricName,
		report.EssayText,
		nullJSON(report.Request),
		report.TotalScore,
		report.MaxScore,
		nullJSON(report.Result),
		report.ErrorMessage,
		report.ArchiveKey,
		report.CreatedAt,
		report.StartedAt,
		report.CompletedAt,
		report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM grading_reports WHERE id = $1`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *reportRepository) List(ctx context.Context, limit, offset int) ([]models.Report, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grading_reports`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + reportColumns + `
		FROM grading_reports
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reports := make([]models.Report, 0, limit)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		// listings stay small; the essay is available from GetByID
		report.EssayText = ""
		report.Request = nil
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepository) MarkProcessing(ctx context.Context, id string) error {
	query := `
		UPDATE grading_reports
		SET status = $1, started_at = $2, updated_at = $2
		WHERE id = $3
	`
	return r.exec(ctx, query, models.ReportStatusProcessing.String(), time.Now(), id)
}

func (r *reportRepository) Complete(ctx context.Context, id string, totalScore, maxScore float64, result []byte, archiveKey string) error {
	query := `
		UPDATE grading_reports
		SET
			status = $1,
			total_score = $2,
			max_score = $3,
			result = $4,
			archive_key = $5,
			error_message = '',
			completed_at = $6,
			updated_at = $6
		WHERE id = $7
	`
	return r.exec(ctx, query,
		models.ReportStatusCompleted.String(),
		totalScore,
		maxScore,
		nullJSON(result),
		archiveKey,
		time.Now(),
		id,
	)
}

func (r *reportRepository) Fail(ctx context.Context, id, message string) error {
	query := `
		UPDATE grading_reports
		SET status = $1, error_message = $2, completed_at = $3, updated_at = $3
		WHERE id = $4
	`
	return r.exec(ctx, query, models.ReportStatusFailed.String(), message, time.Now(), id)
}

func (r *reportRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	report := &models.Report{}
	var (
		request, result        []byte
		totalScore, maxScore   sql.NullFloat64
		startedAt, completedAt sql.NullTime
	)

	err := row.Scan(
		&report.ID,
		&report.Status,
		&report.Topic,
		&report.RubricName,
		&report.EssayText,
		&request,
		&totalScore,
		&maxScore,
		&result,
		&report.ErrorMessage,
		&report.ArchiveKey,
		&report.CreatedAt,
		&startedAt,
		&completedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(request) > 0 {
		report.Request = request
	}
	if len(result) > 0 {
		report.Result = result
	}
	if totalScore.Valid {
		report.TotalScore = &totalScore.Float64
	}
	if maxScore.Valid {
		report.MaxScore = &maxScore.Float64
	}
	if startedAt.Valid {
		report.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		report.CompletedAt = &completedAt.Time
	}

	return report, nil
}

// nullJSON keeps empty documents out of JSONB columns.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
