package models

import (
	"fmt"
	"strings"
)

// UrgencyLevel classifies how soon a critical point needs attention.
// Shared by critical points and recommendations.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// ParseUrgencyLevel decodes a case-insensitive urgency string.
// Unknown values are an error, not a silent default - the caller decides
// whether to fail the document or degrade.
func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return UrgencyLow, nil
	case "medium":
		return UrgencyMedium, nil
	case "high":
		return UrgencyHigh, nil
	case "critical":
		return UrgencyCritical, nil
	default:
		return "", fmt.Errorf("unknown urgency level: %q", s)
	}
}

// Rank returns the severity order: low=0 .. critical=3.
func (u UrgencyLevel) Rank() int {
	switch u {
	case UrgencyMedium:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyCritical:
		return 3
	default:
		return 0
	}
}

// RequiresAction reports whether the level triggers automatic
// recommendation creation (high or critical).
func (u UrgencyLevel) RequiresAction() bool {
	return u == UrgencyHigh || u == UrgencyCritical
}

// DocumentStatus tracks a document through the analysis pipeline.
// Analyzed and Error are terminal.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentAnalyzed   DocumentStatus = "analyzed"
	DocumentError      DocumentStatus = "error"
)

// KnowledgeCategory classifies the kind of knowledge a critical point covers.
type KnowledgeCategory string

const (
	CategoryTechnical      KnowledgeCategory = "technical"
	CategoryProcess        KnowledgeCategory = "process"
	CategoryPolicy         KnowledgeCategory = "policy"
	CategoryRegulatory     KnowledgeCategory = "regulatory"
	CategoryProduct        KnowledgeCategory = "product"
	CategoryOrganizational KnowledgeCategory = "organizational"
)

// ParseKnowledgeCategory decodes a case-insensitive category string.
func ParseKnowledgeCategory(s string) (KnowledgeCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "technical":
		return CategoryTechnical, nil
	case "process":
		return CategoryProcess, nil
	case "policy":
		return CategoryPolicy, nil
	case "regulatory":
		return CategoryRegulatory, nil
	case "product":
		return CategoryProduct, nil
	case "organizational":
		return CategoryOrganizational, nil
	default:
		return "", fmt.Errorf("unknown knowledge category: %q", s)
	}
}

// Session and report journal statuses. Both journals have a two-phase
// lifecycle: opened in the running/generating state, closed exactly once.
const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionError     = "error"

	ReportGenerating = "generating"
	ReportCompleted  = "completed"
	ReportError      = "error"
	ReportNoData     = "no_data"
)
