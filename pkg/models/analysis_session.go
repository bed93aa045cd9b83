package models

import "time"

// AnalysisSession journals one run of the analyze workflow.
// Opened with status "running" before discovery starts and closed exactly
// once with final counts - on both the success and the failure path.
type AnalysisSession struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"` // UUID

	DocumentsAnalyzed   int    `json:"documents_analyzed"`
	CriticalPointsFound int    `json:"critical_points_found"`
	AnalysisModel       string `json:"analysis_model"`

	FileTypesAnalyzed  []string `json:"file_types_analyzed,omitempty"`
	DirectoriesScanned []string `json:"directories_scanned,omitempty"`

	HighPriorityItems   int `json:"high_priority_items"`
	MediumPriorityItems int `json:"medium_priority_items"`
	LowPriorityItems    int `json:"low_priority_items"`

	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`

	ErrorsEncountered int      `json:"errors_encountered"`
	ErrorDetails      []string `json:"error_details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
