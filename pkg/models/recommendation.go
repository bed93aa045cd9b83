package models

import "time"

// Recommendation is an advisory action tied to one critical point.
// The pipeline synthesizes one automatically for every high or critical
// point; additional recommendations may be created manually.
type Recommendation struct {
	ID              int64 `json:"id"`
	CriticalPointID int64 `json:"critical_point_id"`

	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    UrgencyLevel `json:"priority"`

	EstimatedEffortHours *int     `json:"estimated_effort_hours,omitempty"`
	SuggestedOwnerRole   string   `json:"suggested_owner_role,omitempty"`
	SuggestedTimeline    string   `json:"suggested_timeline,omitempty"`
	Dependencies         []string `json:"dependencies,omitempty"`

	IsImplemented       bool       `json:"is_implemented"`
	ImplementedDate     *time.Time `json:"implemented_date,omitempty"`
	ImplementationNotes string     `json:"implementation_notes,omitempty"`

	GeneratedByModel string    `json:"generated_by_model,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
