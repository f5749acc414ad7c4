package storage

import (
	"fmt"
	"strings"

	"dwd-connect/internal/timerange"
	"dwd-connect/internal/weather"

	"github.com/rs/zerolog"
)

// Exporter writes rows to files instead of a database.
type Exporter interface {
	// Init prepares the output location.
	Init() error

	// Export appends rows to the file named after dataset and returns the number written.
	Export(dataset string, rows []weather.Row) (int, error)
}

// ExportFormat represents the file formats rows can be exported to.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

// NewExporter creates an exporter for the given format.
func NewExporter(format ExportFormat, basePath string, logger zerolog.Logger) (Exporter, error) {
	switch format {
	case ExportFormatCSV:
		return NewCSVExporter(basePath, logger), nil
	case ExportFormatJSON:
		return NewJSONExporter(basePath, logger), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// exportRecord is the flat file representation of a weather.Row.
type exportRecord struct {
	DateTime         string   `csv:"date_time" json:"date_time"`
	Lat              float64  `csv:"lat" json:"lat"`
	Lon              float64  `csv:"lon" json:"lon"`
	WindDirection    *float64 `csv:"wind_direction" json:"wind_direction"`
	WindSpeed        *float64 `csv:"wind_speed" json:"wind_speed"`
	Precipitation    *float64 `csv:"precipitation" json:"precipitation"`
	Temperature      *float64 `csv:"temperature" json:"temperature"`
	RelativeHumidity *float64 `csv:"relative_humidity" json:"relative_humidity"`
	CloudCover       *float64 `csv:"cloud_cover" json:"cloud_cover"`
	PressureMSL      *float64 `csv:"pressure_msl" json:"pressure_msl"`
	Sunshine         *float64 `csv:"sunshine" json:"sunshine"`
	ForecastedAt     string   `csv:"date_time_forecast" json:"date_time_forecast,omitempty"`
}

func toExportRecords(rows []weather.Row) []exportRecord {
	records := make([]exportRecord, len(rows))
	for i, row := range rows {
		rec := exportRecord{
			DateTime:         row.Timestamp.UTC().Format(timerange.TimestampLayout),
			Lat:              row.Lat,
			Lon:              row.Lon,
			WindDirection:    ptr(row.WindDirection.TakeOr(0), row.WindDirection.IsSome()),
			WindSpeed:        ptr(row.WindSpeed.TakeOr(0), row.WindSpeed.IsSome()),
			Precipitation:    ptr(row.Precipitation.TakeOr(0), row.Precipitation.IsSome()),
			Temperature:      ptr(row.Temperature.TakeOr(0), row.Temperature.IsSome()),
			RelativeHumidity: ptr(row.RelativeHumidity.TakeOr(0), row.RelativeHumidity.IsSome()),
			CloudCover:       ptr(row.CloudCover.TakeOr(0), row.CloudCover.IsSome()),
			PressureMSL:      ptr(row.PressureMSL.TakeOr(0), row.PressureMSL.IsSome()),
			Sunshine:         ptr(row.Sunshine.TakeOr(0), row.Sunshine.IsSome()),
		}
		if row.ForecastedAt.IsSome() {
			rec.ForecastedAt = row.ForecastedAt.Unwrap().UTC().Format(timerange.TimestampLayout)
		}
		records[i] = rec
	}
	return records
}

func ptr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func datasetFileName(dataset string, format ExportFormat) (string, error) {
	if dataset == "" || strings.ContainsAny(dataset, `/\`) || strings.Contains(dataset, "..") {
		return "", fmt.Errorf("invalid dataset name %q", dataset)
	}
	return fmt.Sprintf("%s.%s", dataset, format), nil
}
