package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"dwd-connect/internal/weather"

	"github.com/rs/zerolog"
)

// JSONExporter writes rows to JSON files (one file per dataset).
type JSONExporter struct {
	basePath string
	logger   zerolog.Logger
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(basePath string, logger zerolog.Logger) *JSONExporter {
	return &JSONExporter{basePath: basePath, logger: logger}
}

// Init initializes the export directory.
func (e *JSONExporter) Init() error {
	if err := os.MkdirAll(e.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create JSON export directory: %w", err)
	}
	e.logger.Info().Str("path", e.basePath).Msg("JSON export directory ready")
	return nil
}

// Export appends rows to the array stored in <dataset>.json.
func (e *JSONExporter) Export(dataset string, rows []weather.Row) (int, error) {
	fileName, err := datasetFileName(dataset, ExportFormatJSON)
	if err != nil {
		return 0, err
	}
	filePath := filepath.Join(e.basePath, fileName)

	var existing []exportRecord
	if data, err := os.ReadFile(filePath); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return 0, fmt.Errorf("failed to read existing JSON file %s: %w", fileName, err)
		}
	}

	all := append(existing, toExportRecords(rows)...)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal JSON data: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write JSON file: %w", err)
	}

	e.logger.Info().Str("file", fileName).Int("rows", len(rows)).Int("total", len(all)).Msg("exported rows")
	return len(rows), nil
}
