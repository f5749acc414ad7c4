package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"dwd-connect/internal/weather"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
)

// CSVExporter writes rows to CSV files (one file per dataset).
type CSVExporter struct {
	basePath string
	logger   zerolog.Logger
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(basePath string, logger zerolog.Logger) *CSVExporter {
	return &CSVExporter{basePath: basePath, logger: logger}
}

// Init initializes the export directory.
func (e *CSVExporter) Init() error {
	if err := os.MkdirAll(e.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create CSV export directory: %w", err)
	}
	e.logger.Info().Str("path", e.basePath).Msg("CSV export directory ready")
	return nil
}

// Export appends rows to <dataset>.csv, writing the header only for new files.
func (e *CSVExporter) Export(dataset string, rows []weather.Row) (int, error) {
	fileName, err := datasetFileName(dataset, ExportFormatCSV)
	if err != nil {
		return 0, err
	}
	filePath := filepath.Join(e.basePath, fileName)

	fileExists := false
	if _, err := os.Stat(filePath); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	records := toExportRecords(rows)
	if fileExists {
		err = gocsv.MarshalWithoutHeaders(&records, file)
	} else {
		err = gocsv.MarshalFile(&records, file)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write CSV file: %w", err)
	}

	e.logger.Info().Str("file", fileName).Int("rows", len(records)).Msg("exported rows")
	return len(records), nil
}
