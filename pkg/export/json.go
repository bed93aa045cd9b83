package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/expirywatch/expiry-engine/pkg/services"
)

// exportJSON writes the full report tree as indented JSON. The output
// round-trips: decoding it reproduces the in-memory tree.
func (e *FileExporter) exportJSON(report *services.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}
