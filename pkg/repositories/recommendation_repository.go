package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
	"github.com/expirywatch/expiry-engine/pkg/database"
	"github.com/expirywatch/expiry-engine/pkg/models"
)

// RecommendationRepository defines the interface for recommendation access.
type RecommendationRepository interface {
	// Create inserts a new recommendation and populates its ID.
	Create(ctx context.Context, rec *models.Recommendation) error

	// ListPending retrieves recommendations not yet implemented,
	// highest priority first.
	ListPending(ctx context.Context) ([]*models.Recommendation, error)

	// ListByCriticalPoint retrieves recommendations for one point.
	ListByCriticalPoint(ctx context.Context, criticalPointID int64) ([]*models.Recommendation, error)

	// MarkImplemented closes out a recommendation with optional notes.
	MarkImplemented(ctx context.Context, id int64, notes string) error

	// Count returns the total number of recommendations.
	Count(ctx context.Context) (int, error)
}

// recommendationRepository implements RecommendationRepository using PostgreSQL.
type recommendationRepository struct {
	db *database.DB
}

// NewRecommendationRepository creates a new recommendation repository.
func NewRecommendationRepository(db *database.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

const recommendationColumns = `id, critical_point_id, title, description, priority,
	estimated_effort_hours, suggested_owner_role, suggested_timeline, dependencies,
	is_implemented, implemented_date, implementation_notes, generated_by_model, created_at, updated_at`

func (r *recommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	deps := rec.Dependencies
	if deps == nil {
		deps = []string{}
	}

	query := `
		INSERT INTO recommendations (critical_point_id, title, description, priority,
			estimated_effort_hours, suggested_owner_role, suggested_timeline, dependencies,
			is_implemented, implementation_notes, generated_by_model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		rec.CriticalPointID,
		rec.Title,
		rec.Description,
		rec.Priority,
		rec.EstimatedEffortHours,
		rec.SuggestedOwnerRole,
		rec.SuggestedTimeline,
		deps,
		rec.IsImplemented,
		rec.ImplementationNotes,
		rec.GeneratedByModel,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}
	return nil
}

func (r *recommendationRepository) ListPending(ctx context.Context) ([]*models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE is_implemented = FALSE
		ORDER BY CASE priority
			WHEN 'critical' THEN 0
			WHEN 'high' THEN 1
			WHEN 'medium' THEN 2
			ELSE 3
		END, id`

	return r.list(ctx, query)
}

func (r *recommendationRepository) ListByCriticalPoint(ctx context.Context, criticalPointID int64) ([]*models.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE critical_point_id = $1 ORDER BY id`
	return r.list(ctx, query, criticalPointID)
}

func (r *recommendationRepository) MarkImplemented(ctx context.Context, id int64, notes string) error {
	query := `
		UPDATE recommendations
		SET is_implemented = TRUE,
		    implemented_date = NOW(),
		    implementation_notes = $2,
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, notes)
	if err != nil {
		return fmt.Errorf("failed to mark recommendation implemented: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *recommendationRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM recommendations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recommendations: %w", err)
	}
	return count, nil
}

func (r *recommendationRepository) list(ctx context.Context, query string, args ...any) ([]*models.Recommendation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	var recs []*models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		err := rows.Scan(
			&rec.ID,
			&rec.CriticalPointID,
			&rec.Title,
			&rec.Description,
			&rec.Priority,
			&rec.EstimatedEffortHours,
			&rec.SuggestedOwnerRole,
			&rec.SuggestedTimeline,
			&rec.Dependencies,
			&rec.IsImplemented,
			&rec.ImplementedDate,
			&rec.ImplementationNotes,
			&rec.GeneratedByModel,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
