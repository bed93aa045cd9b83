package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/expirywatch/expiry-engine/pkg/logging"
	"github.com/expirywatch/expiry-engine/pkg/models"
	"github.com/expirywatch/expiry-engine/pkg/services"
)

// Fill colors keyed by urgency, plus the shared header color.
const (
	colorHeader   = "4472C4"
	colorCritical = "C5504B"
	colorHigh     = "FF6B35"
	colorMedium   = "FFB347"
	colorLow      = "90EE90"
)

var urgencyColors = map[models.UrgencyLevel]string{
	models.UrgencyCritical: colorCritical,
	models.UrgencyHigh:     colorHigh,
	models.UrgencyMedium:   colorMedium,
	models.UrgencyLow:      colorLow,
}

// excelWriter wraps one workbook build so sheet helpers can share
// cached styles and stop at the first error.
type excelWriter struct {
	f      *excelize.File
	styles map[string]int
	err    error
}

// exportExcel writes a multi-sheet workbook. The sheet set depends on
// the report type: executive gets the summary sheets, detailed gets the
// data sheets, comprehensive gets both plus expiry and statistics.
func (e *FileExporter) exportExcel(report *services.Report, path string, reportType string) error {
	w := &excelWriter{f: excelize.NewFile(), styles: make(map[string]int)}
	defer w.f.Close()

	switch reportType {
	case "executive":
		w.executiveSheets(report)
	case "detailed":
		w.detailedSheets(report)
	default:
		w.executiveSheets(report)
		w.detailedSheets(report)
		w.expiryAnalysisSheet(report)
		w.statisticsSheet(report)
	}
	if w.err != nil {
		return fmt.Errorf("build workbook: %w", w.err)
	}

	// Drop the workbook's default sheet now that real ones exist.
	if err := w.f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}

	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (w *excelWriter) executiveSheets(report *services.Report) {
	w.executiveSummarySheet(report)
	w.criticalFindingsSheet(report)
	w.actionItemsSheet(report)
}

func (w *excelWriter) detailedSheets(report *services.Report) {
	w.criticalPointsSheet(report)
	w.documentAnalysisSheet(report)
	w.timelineSheet(report)
}

func (w *excelWriter) executiveSummarySheet(report *services.Report) {
	const sheet = "Executive Summary"
	w.newSheet(sheet)

	w.setCell(sheet, "A1", "Knowledge Expiry Report - Executive Summary")
	w.mergeCells(sheet, "A1", "D1")
	w.applyStyle(sheet, "A1", "A1", w.titleStyle())

	w.setCell(sheet, "A3", "Report Generated:")
	w.setCell(sheet, "B3", report.Metadata.GeneratedAt.Format(time.RFC3339))
	w.setCell(sheet, "A4", "Analysis Model:")
	w.setCell(sheet, "B4", report.Metadata.AnalysisModel)

	w.setCell(sheet, "A6", "Key Metrics")
	w.applyStyle(sheet, "A6", "A6", w.sectionStyle())

	metrics := report.ExecutiveSummary.KeyMetrics
	rows := []struct {
		label string
		value any
	}{
		{"Documents Analyzed", metrics.DocumentsAnalyzed},
		{"Critical Points Identified", metrics.CriticalPointsIdentified},
		{"Expired Knowledge Items", metrics.ExpiredKnowledgeItems},
		{"High Priority Items", metrics.HighPriorityItems},
		{"Average Confidence", metrics.AverageConfidence},
	}
	row := 7
	for _, m := range rows {
		w.setCell(sheet, cell("A", row), m.label)
		w.setCell(sheet, cell("B", row), m.value)
		row++
	}

	row++
	w.setCell(sheet, cell("A", row), "Executive Summary")
	w.applyStyle(sheet, cell("A", row), cell("A", row), w.sectionStyle())
	row++

	w.setCell(sheet, cell("A", row), report.ExecutiveSummary.Overview)
	w.mergeCells(sheet, cell("A", row), cell("D", row+5))
	w.setColWidth(sheet, "A", "D", 30)
}

func (w *excelWriter) criticalFindingsSheet(report *services.Report) {
	const sheet = "Critical Findings"
	w.newSheet(sheet)
	w.headerRow(sheet, 1, "Finding", "Impact", "Recommendation")

	row := 2
	for _, finding := range report.CriticalFindings {
		w.setCell(sheet, cell("A", row), finding.Finding)
		w.setCell(sheet, cell("B", row), finding.Impact)
		w.setCell(sheet, cell("C", row), finding.Recommendation)
		row++
	}
	w.setColWidth(sheet, "A", "C", 50)
}

func (w *excelWriter) actionItemsSheet(report *services.Report) {
	const sheet = "Action Items"
	w.newSheet(sheet)
	w.headerRow(sheet, 1, "Task", "Priority", "Owner", "Timeline", "Status")

	row := 2
	for _, item := range report.Recommendations.ActionItems {
		priority := item.Priority
		if priority == "" {
			priority = "Medium"
		}
		owner := item.Owner
		if owner == "" {
			owner = "TBD"
		}
		timeline := item.Timeline
		if timeline == "" {
			timeline = "TBD"
		}
		w.setCell(sheet, cell("A", row), item.Task)
		w.setCell(sheet, cell("B", row), priority)
		w.setCell(sheet, cell("C", row), owner)
		w.setCell(sheet, cell("D", row), timeline)
		w.setCell(sheet, cell("E", row), "Pending")

		if u, err := models.ParseUrgencyLevel(priority); err == nil {
			if color, ok := urgencyColors[u]; ok && u.RequiresAction() {
				w.applyStyle(sheet, cell("A", row), cell("E", row), w.fillStyle(color))
			}
		}
		row++
	}
	w.setColWidth(sheet, "A", "E", 30)
}

func (w *excelWriter) criticalPointsSheet(report *services.Report) {
	const sheet = "All Critical Points"
	w.newSheet(sheet)
	w.headerRow(sheet, 1, "Description", "Category", "Urgency", "Document", "Confidence", "Context")

	row := 2
	for _, point := range report.CriticalPoints.DetailedList {
		confidence := 0.0
		if point.ConfidenceScore != nil {
			confidence = *point.ConfidenceScore
		}
		w.setCell(sheet, cell("A", row), point.Description)
		w.setCell(sheet, cell("B", row), titleCase(string(point.Category)))
		w.setCell(sheet, cell("C", row), titleCase(string(point.Urgency)))
		w.setCell(sheet, cell("D", row), point.DocumentFilename)
		w.setCell(sheet, cell("E", row), confidence)
		w.setCell(sheet, cell("F", row), logging.TruncateString(point.ContextSnippet, 100))

		if color, ok := urgencyColors[point.Urgency]; ok {
			w.applyStyle(sheet, cell("A", row), cell("F", row), w.fillStyle(color))
		}
		row++
	}
	w.setColWidth(sheet, "A", "F", 40)
}

func (w *excelWriter) documentAnalysisSheet(report *services.Report) {
	const sheet = "Document Analysis"
	w.newSheet(sheet)

	w.setCell(sheet, "A1", "Document Analysis")
	w.applyStyle(sheet, "A1", "A1", w.sectionStyle())

	row := 3
	row = w.countTable(sheet, row, "File Type Distribution", "File Type", "Count",
		upperKeys(report.DocumentAnalysis.FileTypeDistribution))

	row += 2
	w.countTable(sheet, row, "Confidence Score Distribution", "Confidence Level", "Count",
		report.DocumentAnalysis.ConfidenceDistribution)

	w.setColWidth(sheet, "A", "B", 30)
}

func (w *excelWriter) timelineSheet(report *services.Report) {
	const sheet = "Timeline Analysis"
	w.newSheet(sheet)

	w.setCell(sheet, "A1", "Timeline Analysis")
	w.applyStyle(sheet, "A1", "A1", w.sectionStyle())

	w.headerRow(sheet, 3, "Timeline Category", "Items Count")

	// Fixed bucket order keeps workbooks comparable across runs.
	buckets := []string{
		"immediate_attention", "next_30_days", "next_90_days", "next_6_months", "annual_review",
	}
	bucketColors := map[string]string{
		"immediate_attention": colorCritical,
		"next_30_days":        colorHigh,
		"next_90_days":        colorMedium,
		"next_6_months":       colorLow,
		"annual_review":       colorLow,
	}

	row := 4
	for _, bucket := range buckets {
		w.setCell(sheet, cell("A", row), titleCase(strings.ReplaceAll(bucket, "_", " ")))
		w.setCell(sheet, cell("B", row), report.TimelineAnalysis.TimelineCategories[bucket])
		w.applyStyle(sheet, cell("A", row), cell("B", row), w.fillStyle(bucketColors[bucket]))
		row++
	}
	w.setColWidth(sheet, "A", "B", 25)
}

func (w *excelWriter) expiryAnalysisSheet(report *services.Report) {
	const sheet = "Expiry Analysis"
	w.newSheet(sheet)

	w.setCell(sheet, "A1", "Knowledge Expiry Analysis")
	w.applyStyle(sheet, "A1", "A1", w.sectionStyle())

	w.setCell(sheet, "A3", "Total Points with Expiry Indicators:")
	w.setCell(sheet, "B3", report.ExpiryAnalysis.TotalPointsWithIndicators)

	w.setCell(sheet, "A5", "Most Common Expiry Indicators")
	w.applyStyle(sheet, "A5", "A5", w.sectionStyle())
	w.headerRow(sheet, 6, "Indicator", "Frequency")

	row := 7
	for _, ic := range report.ExpiryAnalysis.MostCommonIndicators {
		w.setCell(sheet, cell("A", row), ic.Indicator)
		w.setCell(sheet, cell("B", row), ic.Count)
		row++
	}
	w.setColWidth(sheet, "A", "B", 40)
}

func (w *excelWriter) statisticsSheet(report *services.Report) {
	const sheet = "Statistics"
	w.newSheet(sheet)

	w.setCell(sheet, "A1", "Database Statistics")
	w.applyStyle(sheet, "A1", "A1", w.sectionStyle())

	stats := report.Appendix.DatabaseStatistics
	row := 3
	row = w.countTable(sheet, row, "Documents by Status", "Status", "Count", stats.DocumentsByStatus)
	row += 2
	row = w.countTable(sheet, row, "Critical Points by Urgency", "Urgency", "Count", stats.CriticalPointsByUrgency)
	row += 2
	w.setCell(sheet, cell("A", row), "Total Recommendations")
	w.setCell(sheet, cell("B", row), stats.TotalRecommendations)
	row += 2

	vector := report.Appendix.VectorDBStatistics
	w.setCell(sheet, cell("A", row), "Vector Database Statistics")
	w.applyStyle(sheet, cell("A", row), cell("A", row), w.sectionStyle())
	row++
	w.setCell(sheet, cell("A", row), "Collection")
	w.setCell(sheet, cell("B", row), vector.Collection)
	row++
	w.setCell(sheet, cell("A", row), "Points Count")
	w.setCell(sheet, cell("B", row), vector.PointsCount)
	row++
	w.setCell(sheet, cell("A", row), "Vector Size")
	w.setCell(sheet, cell("B", row), vector.VectorSize)

	w.setColWidth(sheet, "A", "B", 30)
}

// countTable writes a titled two-column table and returns the row after
// its last entry. Keys are emitted in sorted order for stable output.
func (w *excelWriter) countTable(sheet string, startRow int, title, keyHeader, valueHeader string, counts map[string]int) int {
	w.setCell(sheet, cell("A", startRow), title)
	w.applyStyle(sheet, cell("A", startRow), cell("A", startRow), w.sectionStyle())
	w.headerRow(sheet, startRow+1, keyHeader, valueHeader)

	row := startRow + 2
	for _, key := range sortedKeys(counts) {
		w.setCell(sheet, cell("A", row), key)
		w.setCell(sheet, cell("B", row), counts[key])
		row++
	}
	return row
}

func (w *excelWriter) newSheet(name string) {
	if w.err != nil {
		return
	}
	_, w.err = w.f.NewSheet(name)
}

func (w *excelWriter) setCell(sheet, axis string, value any) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellValue(sheet, axis, value)
}

func (w *excelWriter) mergeCells(sheet, from, to string) {
	if w.err != nil {
		return
	}
	w.err = w.f.MergeCell(sheet, from, to)
}

func (w *excelWriter) applyStyle(sheet, from, to string, style int) {
	if w.err != nil || style == 0 {
		return
	}
	w.err = w.f.SetCellStyle(sheet, from, to, style)
}

func (w *excelWriter) setColWidth(sheet, from, to string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(sheet, from, to, width)
}

func (w *excelWriter) headerRow(sheet string, row int, headers ...string) {
	for i, header := range headers {
		w.setCell(sheet, cell(string(rune('A'+i)), row), header)
	}
	last := string(rune('A' + len(headers) - 1))
	w.applyStyle(sheet, cell("A", row), cell(last, row), w.headerStyle())
}

// Style helpers cache by name so repeated sheets reuse one style ID.

func (w *excelWriter) cachedStyle(name string, build func() *excelize.Style) int {
	if w.err != nil {
		return 0
	}
	if id, ok := w.styles[name]; ok {
		return id
	}
	id, err := w.f.NewStyle(build())
	if err != nil {
		w.err = err
		return 0
	}
	w.styles[name] = id
	return id
}

func (w *excelWriter) titleStyle() int {
	return w.cachedStyle("title", func() *excelize.Style {
		return &excelize.Style{
			Font: &excelize.Font{Size: 16, Bold: true, Color: "FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorHeader}},
		}
	})
}

func (w *excelWriter) sectionStyle() int {
	return w.cachedStyle("section", func() *excelize.Style {
		return &excelize.Style{Font: &excelize.Font{Size: 14, Bold: true}}
	})
}

func (w *excelWriter) headerStyle() int {
	return w.cachedStyle("header", func() *excelize.Style {
		return &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorHeader}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}
	})
}

func (w *excelWriter) fillStyle(color string) int {
	return w.cachedStyle("fill-"+color, func() *excelize.Style {
		return &excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		}
	})
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func upperKeys(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[strings.ToUpper(k)] += v
	}
	return out
}
