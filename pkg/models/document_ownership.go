package models

import "time"

// DocumentOwnership records who is responsible for keeping a document
// current. The default pipeline does not populate it; the schema exists
// so reports can cross-tab findings by department and owner.
type DocumentOwnership struct {
	ID         int64 `json:"id"`
	DocumentID int64 `json:"document_id"`

	OwnerName  string `json:"owner_name,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty"`
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`

	LastReviewedBy        string     `json:"last_reviewed_by,omitempty"`
	LastReviewDate        *time.Time `json:"last_review_date,omitempty"`
	NextReviewDate        *time.Time `json:"next_review_date,omitempty"`
	ReviewFrequencyMonths *int       `json:"review_frequency_months,omitempty"`

	IsPrimary bool `json:"is_primary"`
	IsActive  bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
