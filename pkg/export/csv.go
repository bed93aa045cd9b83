package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
	"github.com/expirywatch/expiry-engine/pkg/logging"
	"github.com/expirywatch/expiry-engine/pkg/services"
)

// maxSnippetLen caps context snippets so rows stay readable in
// spreadsheet tools.
const maxSnippetLen = 200

var csvHeader = []string{
	"description",
	"category",
	"urgency",
	"document_filename",
	"confidence_score",
	"context_snippet",
	"last_updated_date",
}

// exportCSV flattens the critical-point detailed list into a flat CSV.
// The rest of the report tree has no tabular shape and is not exported
// in this format. An empty point list is an error, not an empty file.
func (e *FileExporter) exportCSV(report *services.Report, path string) error {
	points := report.CriticalPoints.DetailedList
	if len(points) == 0 {
		return fmt.Errorf("no critical points to export: %w", apperrors.ErrNoData)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range points {
		confidence := ""
		if p.ConfidenceScore != nil {
			confidence = strconv.FormatFloat(*p.ConfidenceScore, 'f', -1, 64)
		}
		lastUpdated := ""
		if p.LastUpdatedDate != nil {
			lastUpdated = p.LastUpdatedDate.Format("2006-01-02")
		}
		row := []string{
			p.Description,
			string(p.Category),
			string(p.Urgency),
			p.DocumentFilename,
			confidence,
			logging.TruncateString(p.ContextSnippet, maxSnippetLen),
			lastUpdated,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
