package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
	"github.com/expirywatch/expiry-engine/pkg/database"
	"github.com/expirywatch/expiry-engine/pkg/models"
)

// ReportRepository journals report-generation runs.
type ReportRepository interface {
	// Open inserts a new generating report record and populates its ID.
	Open(ctx context.Context, rep *models.ExpiryReport) error

	// Close finalizes a report record exactly once with counts, output
	// path and end state.
	Close(ctx context.Context, rep *models.ExpiryReport) error

	// GetByReportID retrieves a report record by its UUID.
	GetByReportID(ctx context.Context, reportID string) (*models.ExpiryReport, error)

	// ListRecent retrieves the most recent report records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.ExpiryReport, error)
}

// reportRepository implements ReportRepository using PostgreSQL.
type reportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *database.DB) ReportRepository {
	return &reportRepository{db: db}
}

const reportColumns = `id, report_id, title, description, report_type, output_format, output_path,
	documents_included, date_range_start, date_range_end, departments_included,
	expired_knowledge_count, critical_findings_count, recommendations_count,
	generated_by_model, generation_duration_seconds, status, generated_at, created_at, updated_at`

func (r *reportRepository) Open(ctx context.Context, rep *models.ExpiryReport) error {
	now := time.Now()
	rep.CreatedAt = now
	rep.UpdatedAt = now
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = now
	}
	if rep.Status == "" {
		rep.Status = models.ReportGenerating
	}

	depts := rep.DepartmentsIncluded
	if depts == nil {
		depts = []string{}
	}

	query := `
		INSERT INTO knowledge_expiry_reports (report_id, title, description, report_type,
			output_format, departments_included, generated_by_model, status,
			generated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		rep.ReportID,
		rep.Title,
		rep.Description,
		rep.ReportType,
		rep.OutputFormat,
		depts,
		rep.GeneratedByModel,
		rep.Status,
		rep.GeneratedAt,
		rep.CreatedAt,
		rep.UpdatedAt,
	).Scan(&rep.ID)
	if err != nil {
		return fmt.Errorf("failed to open report record: %w", err)
	}
	return nil
}

func (r *reportRepository) Close(ctx context.Context, rep *models.ExpiryReport) error {
	query := `
		UPDATE knowledge_expiry_reports
		SET output_path = $2,
		    documents_included = $3,
		    date_range_start = $4,
		    date_range_end = $5,
		    expired_knowledge_count = $6,
		    critical_findings_count = $7,
		    recommendations_count = $8,
		    generation_duration_seconds = $9,
		    status = $10,
		    updated_at = NOW()
		WHERE report_id = $1 AND status = $11`

	tag, err := r.db.Exec(ctx, query,
		rep.ReportID,
		rep.OutputPath,
		rep.DocumentsIncluded,
		rep.DateRangeStart,
		rep.DateRangeEnd,
		rep.ExpiredKnowledgeCount,
		rep.CriticalFindingsCount,
		rep.RecommendationsCount,
		rep.GenerationDurationSeconds,
		rep.Status,
		models.ReportGenerating,
	)
	if err != nil {
		return fmt.Errorf("failed to close report record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %s is not open: %w", rep.ReportID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *reportRepository) GetByReportID(ctx context.Context, reportID string) (*models.ExpiryReport, error) {
	query := `SELECT ` + reportColumns + ` FROM knowledge_expiry_reports WHERE report_id = $1`

	rep, err := scanReport(r.db.QueryRow(ctx, query, reportID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report %s: %w", reportID, err)
	}
	return rep, nil
}

func (r *reportRepository) ListRecent(ctx context.Context, limit int) ([]*models.ExpiryReport, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + reportColumns + ` FROM knowledge_expiry_reports ORDER BY generated_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.ExpiryReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

func scanReport(row pgx.Row) (*models.ExpiryReport, error) {
	var rep models.ExpiryReport
	err := row.Scan(
		&rep.ID,
		&rep.ReportID,
		&rep.Title,
		&rep.Description,
		&rep.ReportType,
		&rep.OutputFormat,
		&rep.OutputPath,
		&rep.DocumentsIncluded,
		&rep.DateRangeStart,
		&rep.DateRangeEnd,
		&rep.DepartmentsIncluded,
		&rep.ExpiredKnowledgeCount,
		&rep.CriticalFindingsCount,
		&rep.RecommendationsCount,
		&rep.GeneratedByModel,
		&rep.GenerationDurationSeconds,
		&rep.Status,
		&rep.GeneratedAt,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
