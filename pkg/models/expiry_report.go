package models

import "time"

// ExpiryReport journals one report-generation run.
// Created with status "generating" before data gathering and updated once
// after export with final counts, the output path, and the end state.
type ExpiryReport struct {
	ID       int64  `json:"id"`
	ReportID string `json:"report_id"` // UUID

	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ReportType   string `json:"report_type"`   // executive, detailed, comprehensive
	OutputFormat string `json:"output_format"` // excel, json, csv
	OutputPath   string `json:"output_path,omitempty"`

	DocumentsIncluded   int        `json:"documents_included"`
	DateRangeStart      *time.Time `json:"date_range_start,omitempty"`
	DateRangeEnd        *time.Time `json:"date_range_end,omitempty"`
	DepartmentsIncluded []string   `json:"departments_included,omitempty"`

	ExpiredKnowledgeCount int `json:"expired_knowledge_count"`
	CriticalFindingsCount int `json:"critical_findings_count"`
	RecommendationsCount  int `json:"recommendations_count"`

	GeneratedByModel          string `json:"generated_by_model"`
	GenerationDurationSeconds *int   `json:"generation_duration_seconds,omitempty"`

	Status string `json:"status"`

	GeneratedAt time.Time `json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
