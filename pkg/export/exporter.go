// Package export writes report trees to Excel, JSON, or CSV files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
	"github.com/expirywatch/expiry-engine/pkg/services"
)

// FileExporter implements services.Exporter against the local
// filesystem. Parent directories are created as needed.
type FileExporter struct {
	logger *zap.Logger
}

// NewFileExporter creates a file-based report exporter.
func NewFileExporter(logger *zap.Logger) *FileExporter {
	return &FileExporter{logger: logger.Named("export")}
}

var _ services.Exporter = (*FileExporter)(nil)

// Export writes the report to path in the requested format. An
// unrecognized format is a user-facing configuration error.
func (e *FileExporter) Export(report *services.Report, path string, format string, reportType string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	var err error
	switch strings.ToLower(format) {
	case "excel":
		err = e.exportExcel(report, path, reportType)
	case "json":
		err = e.exportJSON(report, path)
	case "csv":
		err = e.exportCSV(report, path)
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return err
	}

	e.logger.Info("report exported",
		zap.String("path", path),
		zap.String("format", strings.ToLower(format)))
	return nil
}
