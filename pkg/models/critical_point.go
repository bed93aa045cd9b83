package models

import "time"

// CriticalPoint is one extracted knowledge-expiry risk. It belongs to
// exactly one Document and is never mutated after creation.
type CriticalPoint struct {
	ID         int64 `json:"id"`
	DocumentID int64 `json:"document_id"`

	Description string            `json:"description"`
	Category    KnowledgeCategory `json:"category"`
	Urgency     UrgencyLevel      `json:"urgency"`

	LastUpdatedDate  *time.Time `json:"last_updated_date,omitempty"`
	ExpiryIndicators []string   `json:"expiry_indicators,omitempty"`
	ConfidenceScore  *float64   `json:"confidence_score,omitempty"`

	ContextSnippet string `json:"context_snippet,omitempty"`
	PageNumber     *int   `json:"page_number,omitempty"`
	SectionTitle   string `json:"section_title,omitempty"`

	ExtractedByModel string    `json:"extracted_by_model,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CriticalPointWithDocument joins a critical point with its owning
// document's identity, the shape the report aggregator consumes.
type CriticalPointWithDocument struct {
	CriticalPoint
	DocumentFilename string `json:"document_filename"`
	DocumentPath     string `json:"document_path"`
}
