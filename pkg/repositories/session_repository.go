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

// SessionRepository journals analysis runs.
type SessionRepository interface {
	// Open inserts a new running session and populates its ID.
	Open(ctx context.Context, s *models.AnalysisSession) error

	// Close finalizes a session exactly once with counts and end state.
	Close(ctx context.Context, s *models.AnalysisSession) error

	// GetBySessionID retrieves a session by its UUID.
	GetBySessionID(ctx context.Context, sessionID string) (*models.AnalysisSession, error)

	// ListRecent retrieves the most recent sessions, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.AnalysisSession, error)
}

// sessionRepository implements SessionRepository using PostgreSQL.
type sessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *database.DB) SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, session_id, documents_analyzed, critical_points_found, analysis_model,
	file_types_analyzed, directories_scanned, high_priority_items, medium_priority_items,
	low_priority_items, status, started_at, completed_at, duration_seconds,
	errors_encountered, error_details, created_at, updated_at`

func (r *sessionRepository) Open(ctx context.Context, s *models.AnalysisSession) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.StartedAt.IsZero() {
		s.StartedAt = now
	}
	if s.Status == "" {
		s.Status = models.SessionRunning
	}

	fileTypes := s.FileTypesAnalyzed
	if fileTypes == nil {
		fileTypes = []string{}
	}
	dirs := s.DirectoriesScanned
	if dirs == nil {
		dirs = []string{}
	}

	query := `
		INSERT INTO analysis_sessions (session_id, analysis_model, file_types_analyzed,
			directories_scanned, status, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		s.SessionID,
		s.AnalysisModel,
		fileTypes,
		dirs,
		s.Status,
		s.StartedAt,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to open analysis session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Close(ctx context.Context, s *models.AnalysisSession) error {
	errDetails := s.ErrorDetails
	if errDetails == nil {
		errDetails = []string{}
	}

	query := `
		UPDATE analysis_sessions
		SET documents_analyzed = $2,
		    critical_points_found = $3,
		    high_priority_items = $4,
		    medium_priority_items = $5,
		    low_priority_items = $6,
		    status = $7,
		    completed_at = $8,
		    duration_seconds = $9,
		    errors_encountered = $10,
		    error_details = $11,
		    updated_at = NOW()
		WHERE session_id = $1 AND status = $12`

	tag, err := r.db.Exec(ctx, query,
		s.SessionID,
		s.DocumentsAnalyzed,
		s.CriticalPointsFound,
		s.HighPriorityItems,
		s.MediumPriorityItems,
		s.LowPriorityItems,
		s.Status,
		s.CompletedAt,
		s.DurationSeconds,
		s.ErrorsEncountered,
		errDetails,
		models.SessionRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to close analysis session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s is not open: %w", s.SessionID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *sessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.AnalysisSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM analysis_sessions WHERE session_id = $1`

	s, err := scanSession(r.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return s, nil
}

func (r *sessionRepository) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisSession, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + sessionColumns + ` FROM analysis_sessions ORDER BY started_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.AnalysisSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*models.AnalysisSession, error) {
	var s models.AnalysisSession
	err := row.Scan(
		&s.ID,
		&s.SessionID,
		&s.DocumentsAnalyzed,
		&s.CriticalPointsFound,
		&s.AnalysisModel,
		&s.FileTypesAnalyzed,
		&s.DirectoriesScanned,
		&s.HighPriorityItems,
		&s.MediumPriorityItems,
		&s.LowPriorityItems,
		&s.Status,
		&s.StartedAt,
		&s.CompletedAt,
		&s.DurationSeconds,
		&s.ErrorsEncountered,
		&s.ErrorDetails,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
