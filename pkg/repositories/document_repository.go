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

// DocumentRepository defines the interface for document row access.
type DocumentRepository interface {
	// Create inserts a new document row and populates its ID.
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by primary key.
	GetByID(ctx context.Context, id int64) (*models.Document, error)

	// GetByPath retrieves the most recent document row for a file path.
	GetByPath(ctx context.Context, path string) (*models.Document, error)

	// UpdateAnalysis records the outcome of an analysis: the vector store
	// reference, confidence, summary and the final status.
	UpdateAnalysis(ctx context.Context, id int64, qdrantID string, confidence *float64, summary string, status models.DocumentStatus) error

	// UpdateStatus sets the document status only.
	UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus) error

	// List retrieves all documents, newest first.
	List(ctx context.Context) ([]*models.Document, error)

	// CountByStatus returns document counts keyed by status.
	CountByStatus(ctx context.Context) (map[models.DocumentStatus]int, error)
}

// documentRepository implements DocumentRepository using PostgreSQL.
type documentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *database.DB) DocumentRepository {
	return &documentRepository{db: db}
}

const documentColumns = `id, qdrant_id, file_path, filename, file_type, file_size, mime_type,
	status, processed_at, analysis_confidence, content_summary, modified_at, created_at, updated_at`

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = models.DocumentPending
	}

	query := `
		INSERT INTO documents (qdrant_id, file_path, filename, file_type, file_size, mime_type,
			status, processed_at, analysis_confidence, content_summary, modified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		doc.QdrantID,
		doc.FilePath,
		doc.Filename,
		doc.FileType,
		doc.FileSize,
		doc.MimeType,
		doc.Status,
		doc.ProcessedAt,
		doc.AnalysisConfidence,
		doc.ContentSummary,
		doc.ModifiedAt,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %d: %w", id, err)
	}
	return doc, nil
}

func (r *documentRepository) GetByPath(ctx context.Context, path string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE file_path = $1 ORDER BY created_at DESC LIMIT 1`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, path))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document by path: %w", err)
	}
	return doc, nil
}

func (r *documentRepository) UpdateAnalysis(ctx context.Context, id int64, qdrantID string, confidence *float64, summary string, status models.DocumentStatus) error {
	query := `
		UPDATE documents
		SET qdrant_id = $2,
		    analysis_confidence = $3,
		    content_summary = $4,
		    status = $5,
		    processed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, qdrantID, confidence, summary, status)
	if err != nil {
		return fmt.Errorf("failed to update document analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *documentRepository) UpdateStatus(ctx context.Context, id int64, status models.DocumentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *documentRepository) List(ctx context.Context) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *documentRepository) CountByStatus(ctx context.Context) (map[models.DocumentStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.DocumentStatus]int)
	for rows.Next() {
		var status models.DocumentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan document count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.QdrantID,
		&doc.FilePath,
		&doc.Filename,
		&doc.FileType,
		&doc.FileSize,
		&doc.MimeType,
		&doc.Status,
		&doc.ProcessedAt,
		&doc.AnalysisConfidence,
		&doc.ContentSummary,
		&doc.ModifiedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
