package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
	"github.com/expirywatch/expiry-engine/pkg/models"
	"github.com/expirywatch/expiry-engine/pkg/services"
)

func samplePoint(desc string, urgency models.UrgencyLevel) *models.CriticalPointWithDocument {
	confidence := 0.85
	updated := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	return &models.CriticalPointWithDocument{
		CriticalPoint: models.CriticalPoint{
			ID:              1,
			DocumentID:      1,
			Description:     desc,
			Category:        models.CategoryTechnical,
			Urgency:         urgency,
			ConfidenceScore: &confidence,
			LastUpdatedDate: &updated,
			ContextSnippet:  "Mentions a retired API gateway",
		},
		DocumentFilename: "runbook.md",
		DocumentPath:     "/docs/runbook.md",
	}
}

func sampleReport(reportType string) *services.Report {
	critical := samplePoint("TLS certificates rotated manually", models.UrgencyCritical)
	high := samplePoint("On-call rotation references former staff", models.UrgencyHigh)

	return &services.Report{
		Metadata: services.ReportMetadata{
			ReportType:          reportType,
			GeneratedAt:         time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC),
			TotalDocuments:      2,
			TotalCriticalPoints: 2,
			AnalysisModel:       "gpt-4o",
		},
		ExecutiveSummary: services.ExecutiveSummary{
			Overview: "Two documents carry expiring operational knowledge.",
			KeyMetrics: services.KeyMetrics{
				DocumentsAnalyzed:        2,
				CriticalPointsIdentified: 2,
				ExpiredKnowledgeItems:    1,
				HighPriorityItems:        2,
				AverageConfidence:        0.85,
			},
		},
		CriticalFindings: []services.Finding{
			{
				Finding:        "Certificate process is undocumented",
				Impact:         "Outage risk at next rotation",
				Recommendation: "Automate renewal and document it",
			},
		},
		CriticalPoints: services.PointsBreakdown{
			ByUrgency: map[string][]*models.CriticalPointWithDocument{
				"critical": {critical},
				"high":     {high},
				"medium":   {},
				"low":      {},
			},
			ByCategory: map[string][]*models.CriticalPointWithDocument{
				"technical": {critical, high},
			},
			DetailedList: []*models.CriticalPointWithDocument{critical, high},
		},
		DocumentAnalysis: services.DocumentAnalytics{
			FileTypeDistribution:    map[string]int{"md": 2},
			AverageConfidenceScore:  0.85,
			ConfidenceDistribution:  map[string]int{"high (>0.8)": 2},
			DocumentAgeDistribution: map[string]int{"recent (<30 days)": 2},
		},
		ExpiryAnalysis: services.ExpiryAnalytics{
			TotalPointsWithIndicators: 2,
			MostCommonIndicators: []services.IndicatorCount{
				{Indicator: "version references", Count: 2},
			},
			IndicatorDistribution: map[string]int{"version references": 2},
		},
		TimelineAnalysis: services.TimelineAnalytics{
			TimelineCategories: map[string]int{
				"immediate_attention": 1,
				"next_30_days":        1,
			},
			DetailedTimeline: map[string][]*models.CriticalPointWithDocument{
				"immediate_attention": {critical},
				"next_30_days":        {high},
			},
		},
		Recommendations: services.ReportRecommendations{
			Strategic: []string{"Automate certificate renewal"},
			ActionItems: []services.ActionItem{
				{Task: "Automate certificate renewal", Priority: "High", Owner: "Platform", Timeline: "30 days"},
			},
		},
		Appendix: services.Appendix{
			DatabaseStatistics: services.DatabaseStats{
				DocumentsByStatus:       map[string]int{"analyzed": 2},
				CriticalPointsByUrgency: map[string]int{"critical": 1, "high": 1},
				TotalRecommendations:    2,
			},
			VectorDBStatistics: services.VectorStats{
				Collection:  "documents",
				PointsCount: 2,
				VectorSize:  1536,
			},
		},
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	e := NewFileExporter(zaptest.NewLogger(t))

	err := e.Export(sampleReport("comprehensive"), filepath.Join(t.TempDir(), "out.yaml"), "yaml", "comprehensive")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "yaml")
}

func TestExport_CreatesParentDirectories(t *testing.T) {
	e := NewFileExporter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "reports", "2026", "expiry.json")

	require.NoError(t, e.Export(sampleReport("comprehensive"), path, "json", "comprehensive"))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestExportJSON_RoundTrips(t *testing.T) {
	e := NewFileExporter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "report.json")
	report := sampleReport("comprehensive")

	require.NoError(t, e.Export(report, path, "JSON", "comprehensive"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded services.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.Metadata.AnalysisModel, decoded.Metadata.AnalysisModel)
	assert.Equal(t, report.ExecutiveSummary.KeyMetrics, decoded.ExecutiveSummary.KeyMetrics)
	assert.Len(t, decoded.CriticalPoints.DetailedList, 2)
	assert.Equal(t, uint64(1536), decoded.Appendix.VectorDBStatistics.VectorSize)
}

func TestExportCSV_WritesPointRows(t *testing.T) {
	e := NewFileExporter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "points.csv")
	report := sampleReport("comprehensive")
	report.CriticalPoints.DetailedList[0].ContextSnippet = strings.Repeat("x", 300)

	require.NoError(t, e.Export(report, path, "csv", "comprehensive"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])

	first := rows[1]
	assert.Equal(t, "TLS certificates rotated manually", first[0])
	assert.Equal(t, "technical", first[1])
	assert.Equal(t, "critical", first[2])
	assert.Equal(t, "runbook.md", first[3])
	assert.Equal(t, "0.85", first[4])
	assert.Equal(t, strings.Repeat("x", maxSnippetLen)+"...", first[5])
	assert.Equal(t, "2025-03-14", first[6])
}

func TestExportCSV_EmptyPointListFails(t *testing.T) {
	e := NewFileExporter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "points.csv")
	report := sampleReport("comprehensive")
	report.CriticalPoints.DetailedList = nil

	err := e.Export(report, path, "csv", "comprehensive")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoData)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportExcel_SheetSets(t *testing.T) {
	tests := []struct {
		reportType string
		sheets     []string
	}{
		{
			reportType: "executive",
			sheets:     []string{"Executive Summary", "Critical Findings", "Action Items"},
		},
		{
			reportType: "detailed",
			sheets:     []string{"All Critical Points", "Document Analysis", "Timeline Analysis"},
		},
		{
			reportType: "comprehensive",
			sheets: []string{
				"Executive Summary", "Critical Findings", "Action Items",
				"All Critical Points", "Document Analysis", "Timeline Analysis",
				"Expiry Analysis", "Statistics",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.reportType, func(t *testing.T) {
			e := NewFileExporter(zaptest.NewLogger(t))
			path := filepath.Join(t.TempDir(), "report.xlsx")

			require.NoError(t, e.Export(sampleReport(tt.reportType), path, "excel", tt.reportType))

			f, err := excelize.OpenFile(path)
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, tt.sheets, f.GetSheetList())
		})
	}
}

func TestExportExcel_ExecutiveSummaryContent(t *testing.T) {
	e := NewFileExporter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, e.Export(sampleReport("executive"), path, "excel", "executive"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Executive Summary", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Knowledge Expiry Report - Executive Summary", title)

	model, err := f.GetCellValue("Executive Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", model)

	docs, err := f.GetCellValue("Executive Summary", "B7")
	require.NoError(t, err)
	assert.Equal(t, "2", docs)
}

func TestExportExcel_CriticalPointRows(t *testing.T) {
	e := NewFileExporter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, e.Export(sampleReport("detailed"), path, "excel", "detailed"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("All Critical Points")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Description", "Category", "Urgency", "Document", "Confidence", "Context"}, rows[0])
	assert.Equal(t, "TLS certificates rotated manually", rows[1][0])
	assert.Equal(t, "Critical", rows[1][2])
	assert.Equal(t, "runbook.md", rows[1][3])
}
