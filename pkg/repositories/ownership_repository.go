package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/expirywatch/expiry-engine/pkg/database"
	"github.com/expirywatch/expiry-engine/pkg/models"
)

// OwnershipRepository defines the interface for document ownership access.
// Ownership rows are maintained out of band; the analysis pipeline only
// reads them so reports can attribute findings to departments and owners.
type OwnershipRepository interface {
	// Create inserts a new ownership record and populates its ID.
	Create(ctx context.Context, o *models.DocumentOwnership) error

	// ListByDocument retrieves active ownership records for a document,
	// primary owner first.
	ListByDocument(ctx context.Context, documentID int64) ([]*models.DocumentOwnership, error)

	// ListActive retrieves all active ownership records.
	ListActive(ctx context.Context) ([]*models.DocumentOwnership, error)
}

// ownershipRepository implements OwnershipRepository using PostgreSQL.
type ownershipRepository struct {
	db *database.DB
}

// NewOwnershipRepository creates a new ownership repository.
func NewOwnershipRepository(db *database.DB) OwnershipRepository {
	return &ownershipRepository{db: db}
}

const ownershipColumns = `id, document_id, owner_name, owner_email, department, role,
	last_reviewed_by, last_review_date, next_review_date, review_frequency_months,
	is_primary, is_active, created_at, updated_at`

func (r *ownershipRepository) Create(ctx context.Context, o *models.DocumentOwnership) error {
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now

	query := `
		INSERT INTO document_ownership (document_id, owner_name, owner_email, department, role,
			last_reviewed_by, last_review_date, next_review_date, review_frequency_months,
			is_primary, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		o.DocumentID,
		o.OwnerName,
		o.OwnerEmail,
		o.Department,
		o.Role,
		o.LastReviewedBy,
		o.LastReviewDate,
		o.NextReviewDate,
		o.ReviewFrequencyMonths,
		o.IsPrimary,
		o.IsActive,
		o.CreatedAt,
		o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to create ownership record: %w", err)
	}
	return nil
}

func (r *ownershipRepository) ListByDocument(ctx context.Context, documentID int64) ([]*models.DocumentOwnership, error) {
	query := `SELECT ` + ownershipColumns + `
		FROM document_ownership
		WHERE document_id = $1 AND is_active = TRUE
		ORDER BY is_primary DESC, id`
	return r.list(ctx, query, documentID)
}

func (r *ownershipRepository) ListActive(ctx context.Context) ([]*models.DocumentOwnership, error) {
	query := `SELECT ` + ownershipColumns + `
		FROM document_ownership
		WHERE is_active = TRUE
		ORDER BY document_id, is_primary DESC, id`
	return r.list(ctx, query)
}

func (r *ownershipRepository) list(ctx context.Context, query string, args ...any) ([]*models.DocumentOwnership, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ownership records: %w", err)
	}
	defer rows.Close()

	var owners []*models.DocumentOwnership
	for rows.Next() {
		var o models.DocumentOwnership
		err := rows.Scan(
			&o.ID,
			&o.DocumentID,
			&o.OwnerName,
			&o.OwnerEmail,
			&o.Department,
			&o.Role,
			&o.LastReviewedBy,
			&o.LastReviewDate,
			&o.NextReviewDate,
			&o.ReviewFrequencyMonths,
			&o.IsPrimary,
			&o.IsActive,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ownership record: %w", err)
		}
		owners = append(owners, &o)
	}
	return owners, rows.Err()
}
