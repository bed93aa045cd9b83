package services

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/expirywatch/expiry-engine/pkg/models"
	"github.com/expirywatch/expiry-engine/pkg/vectorstore"
)

// Report is the full report data tree handed to the exporters. Every
// block below the narrative fields is a pure function of stored data,
// so regenerating a report over an unchanged store yields identical
// analytics.
type Report struct {
	Metadata         ReportMetadata        `json:"metadata"`
	ExecutiveSummary ExecutiveSummary      `json:"executive_summary"`
	CriticalFindings []Finding             `json:"critical_findings"`
	CriticalPoints   PointsBreakdown       `json:"critical_points"`
	DocumentAnalysis DocumentAnalytics     `json:"document_analysis"`
	ExpiryAnalysis   ExpiryAnalytics       `json:"expiry_analysis"`
	TimelineAnalysis TimelineAnalytics     `json:"timeline_analysis"`
	Recommendations  ReportRecommendations `json:"recommendations"`
	Appendix         Appendix              `json:"appendix"`
}

// ReportMetadata identifies one generated report.
type ReportMetadata struct {
	ReportType          string    `json:"report_type"`
	GeneratedAt         time.Time `json:"generated_at"`
	TotalDocuments      int       `json:"total_documents"`
	TotalCriticalPoints int       `json:"total_critical_points"`
	AnalysisModel       string    `json:"analysis_model"`
}

// KeyMetrics is the headline number block of the executive summary.
type KeyMetrics struct {
	DocumentsAnalyzed        int     `json:"documents_analyzed"`
	CriticalPointsIdentified int     `json:"critical_points_identified"`
	ExpiredKnowledgeItems    int     `json:"expired_knowledge_items"`
	HighPriorityItems        int     `json:"high_priority_items"`
	AverageConfidence        float64 `json:"average_confidence"`
}

// ExecutiveSummary pairs the model-written overview with key metrics.
type ExecutiveSummary struct {
	Overview   string     `json:"overview"`
	KeyMetrics KeyMetrics `json:"key_metrics"`
}

// PointsBreakdown cross-tabs critical points by urgency and category.
// ByUrgency always carries all four urgency keys, even when empty.
type PointsBreakdown struct {
	ByUrgency    map[string][]*models.CriticalPointWithDocument `json:"by_urgency"`
	ByCategory   map[string][]*models.CriticalPointWithDocument `json:"by_category"`
	DetailedList []*models.CriticalPointWithDocument            `json:"detailed_list"`
}

// IndicatorCount is one expiry indicator with its occurrence count.
type IndicatorCount struct {
	Indicator string `json:"indicator"`
	Count     int    `json:"count"`
}

// ExpiryAnalytics summarizes expiry-indicator frequency.
type ExpiryAnalytics struct {
	TotalPointsWithIndicators int              `json:"total_points_with_indicators"`
	MostCommonIndicators      []IndicatorCount `json:"most_common_indicators"`
	IndicatorDistribution     map[string]int   `json:"indicator_distribution"`
}

// DocumentAnalytics summarizes the analyzed document corpus.
type DocumentAnalytics struct {
	FileTypeDistribution    map[string]int `json:"file_type_distribution"`
	AverageConfidenceScore  float64        `json:"average_confidence_score"`
	ConfidenceDistribution  map[string]int `json:"confidence_distribution"`
	DocumentAgeDistribution map[string]int `json:"document_age_distribution"`
}

// TimelineAnalytics buckets points by when they need attention.
type TimelineAnalytics struct {
	TimelineCategories map[string]int                                 `json:"timeline_categories"`
	DetailedTimeline   map[string][]*models.CriticalPointWithDocument `json:"detailed_timeline"`
}

// ReportRecommendations carries the model-authored advisory sections.
type ReportRecommendations struct {
	Strategic   []string     `json:"strategic"`
	ActionItems []ActionItem `json:"action_items"`
}

// DatabaseStats summarizes the relational store for the appendix.
type DatabaseStats struct {
	DocumentsByStatus       map[string]int `json:"documents_by_status"`
	CriticalPointsByUrgency map[string]int `json:"critical_points_by_urgency"`
	TotalRecommendations    int            `json:"total_recommendations"`
}

// VectorStats summarizes the vector store for the appendix.
type VectorStats struct {
	Collection  string `json:"collection"`
	PointsCount uint64 `json:"points_count"`
	VectorSize  uint64 `json:"vector_size"`
}

// Appendix holds raw store statistics.
type Appendix struct {
	DatabaseStatistics DatabaseStats `json:"database_statistics"`
	VectorDBStatistics VectorStats   `json:"vector_db_statistics"`
}

// Timeline bucket keys, from most to least urgent.
const (
	timelineImmediate  = "immediate_attention"
	timelineNext30Days = "next_30_days"
	timelineNext90Days = "next_90_days"
	timelineNext6Mo    = "next_6_months"
	timelineAnnual     = "annual_review"
)

// Confidence bucket keys. The bounds are part of the key so exported
// reports are self-describing.
const (
	confidenceHighKey   = "high (>0.8)"
	confidenceMediumKey = "medium (0.5-0.8)"
	confidenceLowKey    = "low (<0.5)"
)

// Document age bucket keys.
const (
	ageRecent   = "recent"
	ageModerate = "moderate"
	ageOld      = "old"
)

// crossTabPoints partitions points into urgency and category buckets.
func crossTabPoints(points []*models.CriticalPointWithDocument) PointsBreakdown {
	byUrgency := map[string][]*models.CriticalPointWithDocument{
		string(models.UrgencyCritical): {},
		string(models.UrgencyHigh):     {},
		string(models.UrgencyMedium):   {},
		string(models.UrgencyLow):      {},
	}
	byCategory := make(map[string][]*models.CriticalPointWithDocument)

	for _, p := range points {
		urgency := string(p.Urgency)
		if _, known := byUrgency[urgency]; known {
			byUrgency[urgency] = append(byUrgency[urgency], p)
		}
		category := string(p.Category)
		byCategory[category] = append(byCategory[category], p)
	}

	return PointsBreakdown{
		ByUrgency:    byUrgency,
		ByCategory:   byCategory,
		DetailedList: points,
	}
}

// analyzeExpiryIndicators counts indicator occurrences across points.
// The top-10 list is sorted descending by count with ties broken by
// first-encountered order, so re-runs over identical data are stable.
func analyzeExpiryIndicators(points []*models.CriticalPointWithDocument) ExpiryAnalytics {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	withIndicators := 0

	for _, p := range points {
		if len(p.ExpiryIndicators) == 0 {
			continue
		}
		withIndicators++
		for _, indicator := range p.ExpiryIndicators {
			if _, seen := firstSeen[indicator]; !seen {
				firstSeen[indicator] = len(firstSeen)
			}
			counts[indicator]++
		}
	}

	ranked := make([]IndicatorCount, 0, len(counts))
	for indicator, count := range counts {
		ranked = append(ranked, IndicatorCount{Indicator: indicator, Count: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return firstSeen[ranked[i].Indicator] < firstSeen[ranked[j].Indicator]
	})
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}

	return ExpiryAnalytics{
		TotalPointsWithIndicators: withIndicators,
		MostCommonIndicators:      ranked,
		IndicatorDistribution:     counts,
	}
}

// storedAnalysis is the slice of the vector payload the analytics need.
type storedAnalysis struct {
	ConfidenceScore float64 `json:"confidence_score"`
}

// analyzeDocuments derives corpus statistics from stored vector records.
// Records with an unparseable or missing indexing time land in the
// moderate age bucket.
func analyzeDocuments(records []*vectorstore.DocumentRecord, now time.Time) DocumentAnalytics {
	fileTypes := make(map[string]int)
	var confidences []float64
	ages := map[string]int{ageRecent: 0, ageModerate: 0, ageOld: 0}

	for _, rec := range records {
		if rec.FileType != "" {
			fileTypes[rec.FileType]++
		}

		var analysis storedAnalysis
		if err := json.Unmarshal([]byte(rec.AnalysisJSON), &analysis); err == nil && analysis.ConfidenceScore > 0 {
			confidences = append(confidences, analysis.ConfidenceScore)
		}

		if rec.IndexedAt.IsZero() {
			ages[ageModerate]++
			continue
		}
		switch days := int(now.Sub(rec.IndexedAt).Hours() / 24); {
		case days < 30:
			ages[ageRecent]++
		case days < 180:
			ages[ageModerate]++
		default:
			ages[ageOld]++
		}
	}

	var sum float64
	for _, c := range confidences {
		sum += c
	}
	denominator := len(confidences)
	if denominator == 0 {
		denominator = 1
	}

	distribution := map[string]int{
		confidenceHighKey:   0,
		confidenceMediumKey: 0,
		confidenceLowKey:    0,
	}
	for _, c := range confidences {
		switch {
		case c > 0.8:
			distribution[confidenceHighKey]++
		case c >= 0.5:
			distribution[confidenceMediumKey]++
		default:
			distribution[confidenceLowKey]++
		}
	}

	return DocumentAnalytics{
		FileTypeDistribution:    fileTypes,
		AverageConfidenceScore:  sum / float64(denominator),
		ConfidenceDistribution:  distribution,
		DocumentAgeDistribution: ages,
	}
}

// buildTimeline buckets points by required attention window. Critical
// and high urgencies map directly; medium lands in the quarter bucket;
// low points go to the six-month bucket when their last update is over
// a year old and to annual review otherwise.
func buildTimeline(points []*models.CriticalPointWithDocument, now time.Time) TimelineAnalytics {
	timeline := map[string][]*models.CriticalPointWithDocument{
		timelineImmediate:  {},
		timelineNext30Days: {},
		timelineNext90Days: {},
		timelineNext6Mo:    {},
		timelineAnnual:     {},
	}

	for _, p := range points {
		switch p.Urgency {
		case models.UrgencyCritical:
			timeline[timelineImmediate] = append(timeline[timelineImmediate], p)
		case models.UrgencyHigh:
			timeline[timelineNext30Days] = append(timeline[timelineNext30Days], p)
		case models.UrgencyMedium:
			timeline[timelineNext90Days] = append(timeline[timelineNext90Days], p)
		default:
			if p.LastUpdatedDate != nil && now.Sub(*p.LastUpdatedDate).Hours() > 365*24 {
				timeline[timelineNext6Mo] = append(timeline[timelineNext6Mo], p)
			} else {
				timeline[timelineAnnual] = append(timeline[timelineAnnual], p)
			}
		}
	}

	categories := make(map[string]int, len(timeline))
	for bucket, members := range timeline {
		categories[bucket] = len(members)
	}

	return TimelineAnalytics{
		TimelineCategories: categories,
		DetailedTimeline:   timeline,
	}
}

// averageStoredConfidence averages confidence over all records, with
// missing scores counting as zero. This is the executive-summary
// metric; the per-document distribution uses only present scores.
func averageStoredConfidence(records []*vectorstore.DocumentRecord) float64 {
	denominator := len(records)
	if denominator == 0 {
		denominator = 1
	}
	var sum float64
	for _, rec := range records {
		var analysis storedAnalysis
		if err := json.Unmarshal([]byte(rec.AnalysisJSON), &analysis); err == nil {
			sum += analysis.ConfidenceScore
		}
	}
	return sum / float64(denominator)
}
