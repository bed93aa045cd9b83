package services

import (
	"regexp"
	"strconv"
	"strings"
)

// Model responses are parsed leniently: headings open sections, every
// non-empty line lands in the current section, and anything malformed
// degrades to defaults instead of erroring. A model that ignores the
// format entirely yields an empty result, not a failure.

var (
	decimalPattern = regexp.MustCompile(`(\d+\.?\d*)`)
	integerPattern = regexp.MustCompile(`(\d+)`)
)

// ParsedPoint is one critical point as drafted by the model. Category,
// urgency, and last-updated stay raw strings here; the pipeline maps
// them onto closed vocabularies and decides what an unmapped value means.
type ParsedPoint struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Urgency     string `json:"urgency"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// AnalysisResult is the structured outcome of one document analysis.
type AnalysisResult struct {
	Summary          string        `json:"summary"`
	CriticalPoints   []ParsedPoint `json:"critical_points"`
	ExpiryIndicators []string      `json:"expiry_indicators"`
	Recommendations  []string      `json:"recommendations"`
	ConfidenceScore  float64       `json:"confidence_score"`
}

// Finding is one critical finding in the report narrative.
type Finding struct {
	Finding        string `json:"finding"`
	Impact         string `json:"impact"`
	Recommendation string `json:"recommendation"`
}

// ActionItem is one actionable task in the report narrative.
type ActionItem struct {
	Task     string `json:"task"`
	Priority string `json:"priority"`
	Owner    string `json:"owner"`
	Timeline string `json:"timeline"`
}

// ReportNarrative is the model-authored portion of a report.
type ReportNarrative struct {
	ExecutiveSummary      string       `json:"executive_summary"`
	ExpiredKnowledgeCount int          `json:"expired_knowledge_count"`
	CriticalFindings      []Finding    `json:"critical_findings"`
	Recommendations       []string     `json:"recommendations"`
	ActionItems           []ActionItem `json:"action_items"`
}

// parseSections splits a response into heading-keyed line lists. A
// heading is a trimmed line of the form **NAME:**; its key is the name
// stripped of asterisks and colons, uppercased. Lines before the first
// heading are dropped.
func parseSections(text string) (map[string][]string, []string) {
	sections := make(map[string][]string)
	var order []string
	var current string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "**") && strings.HasSuffix(line, ":**") {
			current = strings.ToUpper(strings.Trim(line, "*:"))
			if _, seen := sections[current]; !seen {
				sections[current] = []string{}
				order = append(order, current)
			}
			continue
		}
		if current != "" && line != "" {
			sections[current] = append(sections[current], line)
		}
	}
	return sections, order
}

// fieldValue strips a "- Label:" prefix and returns the trimmed rest.
func fieldValue(line, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, label))
}

// ParseAnalysis decodes a structured analysis response. It never
// returns an error: missing sections fall back to defaults.
func ParseAnalysis(text string) *AnalysisResult {
	sections, _ := parseSections(text)

	summaryLines := sections["DOCUMENT_SUMMARY"]
	summary := "No summary available"
	if len(summaryLines) > 0 {
		summary = strings.Join(summaryLines, "\n")
	}

	var points []ParsedPoint
	for _, line := range sections["CRITICAL_POINTS"] {
		switch {
		case strings.HasPrefix(line, "- Point:"):
			points = append(points, ParsedPoint{
				Description: fieldValue(line, "- Point:"),
				Category:    "Technical",
				Urgency:     "Medium",
			})
		case len(points) == 0:
			// Field lines before the first Point line have no record
			// to attach to and are dropped.
		case strings.HasPrefix(line, "- Category:"):
			points[len(points)-1].Category = fieldValue(line, "- Category:")
		case strings.HasPrefix(line, "- Urgency:"):
			points[len(points)-1].Urgency = fieldValue(line, "- Urgency:")
		case strings.HasPrefix(line, "- Last_Updated:"):
			points[len(points)-1].LastUpdated = fieldValue(line, "- Last_Updated:")
		}
	}

	confidence := 0.5
	if lines := sections["CONFIDENCE_SCORE"]; len(lines) > 0 {
		if m := decimalPattern.FindString(lines[0]); m != "" {
			if v, err := strconv.ParseFloat(m, 64); err == nil {
				if v > 1.0 {
					v = v / 100
				}
				confidence = v
			}
		}
	}

	return &AnalysisResult{
		Summary:          summary,
		CriticalPoints:   points,
		ExpiryIndicators: sections["EXPIRY_INDICATORS"],
		Recommendations:  sections["RECOMMENDATIONS"],
		ConfidenceScore:  confidence,
	}
}

// ParseReport decodes a structured report response. Like ParseAnalysis
// it never errors.
func ParseReport(text string) *ReportNarrative {
	sections, _ := parseSections(text)

	count := 0
	if lines := sections["EXPIRED_KNOWLEDGE_COUNT"]; len(lines) > 0 {
		if m := integerPattern.FindString(lines[0]); m != "" {
			if v, err := strconv.Atoi(m); err == nil {
				count = v
			}
		}
	}

	var findings []Finding
	for _, line := range sections["CRITICAL_FINDINGS"] {
		switch {
		case strings.HasPrefix(line, "- Finding:"):
			findings = append(findings, Finding{Finding: fieldValue(line, "- Finding:")})
		case len(findings) == 0:
		case strings.HasPrefix(line, "- Impact:"):
			findings[len(findings)-1].Impact = fieldValue(line, "- Impact:")
		case strings.HasPrefix(line, "- Recommendation:"):
			findings[len(findings)-1].Recommendation = fieldValue(line, "- Recommendation:")
		}
	}

	var items []ActionItem
	for _, line := range sections["ACTION_ITEMS"] {
		switch {
		case strings.HasPrefix(line, "- Task:"):
			items = append(items, ActionItem{Task: fieldValue(line, "- Task:")})
		case len(items) == 0:
		case strings.HasPrefix(line, "- Priority:"):
			items[len(items)-1].Priority = fieldValue(line, "- Priority:")
		case strings.HasPrefix(line, "- Owner:"):
			items[len(items)-1].Owner = fieldValue(line, "- Owner:")
		case strings.HasPrefix(line, "- Timeline:"):
			items[len(items)-1].Timeline = fieldValue(line, "- Timeline:")
		}
	}

	summary := "No summary available"
	if lines := sections["EXECUTIVE_SUMMARY"]; len(lines) > 0 {
		summary = strings.Join(lines, "\n")
	}

	return &ReportNarrative{
		ExecutiveSummary:      summary,
		ExpiredKnowledgeCount: count,
		CriticalFindings:      findings,
		Recommendations:       sections["RECOMMENDATIONS"],
		ActionItems:           items,
	}
}
