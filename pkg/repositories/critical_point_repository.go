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

// CriticalPointFilter narrows report queries. Zero values mean no filter.
type CriticalPointFilter struct {
	MinUrgency *models.UrgencyLevel // include only points at or above this urgency
	Category   *models.KnowledgeCategory
	Since      *time.Time // include only points created at or after this time
}

// CriticalPointRepository defines the interface for critical point access.
type CriticalPointRepository interface {
	// CreateBulk inserts all points in one transaction. All-or-nothing.
	CreateBulk(ctx context.Context, points []*models.CriticalPoint) error

	// GetByID retrieves a single point.
	GetByID(ctx context.Context, id int64) (*models.CriticalPoint, error)

	// ListByDocument retrieves all points for one document.
	ListByDocument(ctx context.Context, documentID int64) ([]*models.CriticalPoint, error)

	// ListWithDocuments retrieves points joined with their owning document,
	// most urgent first, optionally filtered.
	ListWithDocuments(ctx context.Context, filter CriticalPointFilter) ([]*models.CriticalPointWithDocument, error)

	// CountByUrgency returns point counts keyed by urgency level.
	CountByUrgency(ctx context.Context) (map[models.UrgencyLevel]int, error)
}

// criticalPointRepository implements CriticalPointRepository using PostgreSQL.
type criticalPointRepository struct {
	db *database.DB
}

// NewCriticalPointRepository creates a new critical point repository.
func NewCriticalPointRepository(db *database.DB) CriticalPointRepository {
	return &criticalPointRepository{db: db}
}

const criticalPointColumns = `id, document_id, description, category, urgency, last_updated_date,
	expiry_indicators, confidence_score, context_snippet, page_number, section_title,
	extracted_by_model, created_at, updated_at`

func (r *criticalPointRepository) CreateBulk(ctx context.Context, points []*models.CriticalPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	query := `
		INSERT INTO critical_points (document_id, description, category, urgency, last_updated_date,
			expiry_indicators, confidence_score, context_snippet, page_number, section_title,
			extracted_by_model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	now := time.Now()
	for _, p := range points {
		p.CreatedAt = now
		p.UpdatedAt = now

		indicators := p.ExpiryIndicators
		if indicators == nil {
			indicators = []string{}
		}

		err := tx.QueryRow(ctx, query,
			p.DocumentID,
			p.Description,
			p.Category,
			p.Urgency,
			p.LastUpdatedDate,
			indicators,
			p.ConfidenceScore,
			p.ContextSnippet,
			p.PageNumber,
			p.SectionTitle,
			p.ExtractedByModel,
			p.CreatedAt,
			p.UpdatedAt,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to insert critical point: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit critical points: %w", err)
	}
	return nil
}

func (r *criticalPointRepository) GetByID(ctx context.Context, id int64) (*models.CriticalPoint, error) {
	query := `SELECT ` + criticalPointColumns + ` FROM critical_points WHERE id = $1`

	p, err := scanCriticalPoint(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get critical point %d: %w", id, err)
	}
	return p, nil
}

func (r *criticalPointRepository) ListByDocument(ctx context.Context, documentID int64) ([]*models.CriticalPoint, error) {
	query := `SELECT ` + criticalPointColumns + ` FROM critical_points WHERE document_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list critical points: %w", err)
	}
	defer rows.Close()

	var points []*models.CriticalPoint
	for rows.Next() {
		p, err := scanCriticalPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan critical point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *criticalPointRepository) ListWithDocuments(ctx context.Context, filter CriticalPointFilter) ([]*models.CriticalPointWithDocument, error) {
	query := `
		SELECT cp.id, cp.document_id, cp.description, cp.category, cp.urgency, cp.last_updated_date,
		       cp.expiry_indicators, cp.confidence_score, cp.context_snippet, cp.page_number, cp.section_title,
		       cp.extracted_by_model, cp.created_at, cp.updated_at,
		       d.filename, d.file_path
		FROM critical_points cp
		JOIN documents d ON d.id = cp.document_id
		WHERE 1=1`

	var args []any
	if filter.MinUrgency != nil {
		// Urgency is stored as text, so rank ordering happens here.
		args = append(args, includedUrgencies(*filter.MinUrgency))
		query += fmt.Sprintf(" AND cp.urgency = ANY($%d)", len(args))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		query += fmt.Sprintf(" AND cp.category = $%d", len(args))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(" AND cp.created_at >= $%d", len(args))
	}

	query += `
		ORDER BY CASE cp.urgency
			WHEN 'critical' THEN 0
			WHEN 'high' THEN 1
			WHEN 'medium' THEN 2
			ELSE 3
		END, cp.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list critical points with documents: %w", err)
	}
	defer rows.Close()

	var points []*models.CriticalPointWithDocument
	for rows.Next() {
		var p models.CriticalPointWithDocument
		err := rows.Scan(
			&p.ID,
			&p.DocumentID,
			&p.Description,
			&p.Category,
			&p.Urgency,
			&p.LastUpdatedDate,
			&p.ExpiryIndicators,
			&p.ConfidenceScore,
			&p.ContextSnippet,
			&p.PageNumber,
			&p.SectionTitle,
			&p.ExtractedByModel,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.DocumentFilename,
			&p.DocumentPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan critical point with document: %w", err)
		}
		points = append(points, &p)
	}
	return points, rows.Err()
}

func (r *criticalPointRepository) CountByUrgency(ctx context.Context) (map[models.UrgencyLevel]int, error) {
	rows, err := r.db.Query(ctx, `SELECT urgency, COUNT(*) FROM critical_points GROUP BY urgency`)
	if err != nil {
		return nil, fmt.Errorf("failed to count critical points: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.UrgencyLevel]int)
	for rows.Next() {
		var urgency models.UrgencyLevel
		var count int
		if err := rows.Scan(&urgency, &count); err != nil {
			return nil, fmt.Errorf("failed to scan urgency count: %w", err)
		}
		counts[urgency] = count
	}
	return counts, rows.Err()
}

// includedUrgencies returns all urgency values at or above min rank.
func includedUrgencies(min models.UrgencyLevel) []string {
	all := []models.UrgencyLevel{
		models.UrgencyCritical,
		models.UrgencyHigh,
		models.UrgencyMedium,
		models.UrgencyLow,
	}
	var out []string
	for _, u := range all {
		if u.Rank() >= min.Rank() {
			out = append(out, string(u))
		}
	}
	return out
}

func scanCriticalPoint(row pgx.Row) (*models.CriticalPoint, error) {
	var p models.CriticalPoint
	err := row.Scan(
		&p.ID,
		&p.DocumentID,
		&p.Description,
		&p.Category,
		&p.Urgency,
		&p.LastUpdatedDate,
		&p.ExpiryIndicators,
		&p.ConfidenceScore,
		&p.ContextSnippet,
		&p.PageNumber,
		&p.SectionTitle,
		&p.ExtractedByModel,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
