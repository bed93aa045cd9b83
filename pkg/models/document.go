package models

import "time"

// Document is one analyzed file tracked in the documents table.
// QdrantID is a weak back-reference into the vector store: the relation
// exists but the vector point is owned by Qdrant, not by this row.
type Document struct {
	ID       int64  `json:"id"`
	QdrantID string `json:"qdrant_id"`
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type,omitempty"`

	Status             DocumentStatus `json:"status"`
	ProcessedAt        *time.Time     `json:"processed_at,omitempty"`
	AnalysisConfidence *float64       `json:"analysis_confidence,omitempty"`
	ContentSummary     string         `json:"content_summary,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"` // file mtime, not row mtime
	UpdatedAt  time.Time  `json:"updated_at"`
}
