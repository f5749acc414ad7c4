package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"dwd-connect/internal/brightsky"
	"dwd-connect/internal/storage"
	"dwd-connect/internal/timerange"
	"dwd-connect/internal/weather"

	"github.com/spf13/cobra"
)

var (
	exportDataset  string
	exportFromDate string
	exportToDate   string
	exportFormat   string
	exportOutput   string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch weather data into CSV or JSON files",
	Long: `Fetch observations or the current forecast for the grid and write them to
files instead of a database. Rows are appended to <output>/<dataset>.<format>.

Examples:
  # Observations of the last two days as CSV
  dwd-connect export --format csv --output ./data

  # A year of observations as JSON
  dwd-connect export --from 2023-01-01 --to 2023-12-31 --format json

  # Forecast snapshot
  dwd-connect export --dataset forecasts`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	kind, err := brightsky.ParseObservationType(datasetKind(exportDataset))
	if err != nil {
		return fmt.Errorf("unknown dataset %q: must be observations or forecasts", exportDataset)
	}

	exporter, err := storage.NewExporter(storage.ExportFormat(exportFormat), exportOutput, a.log)
	if err != nil {
		return err
	}
	if err := exporter.Init(); err != nil {
		return err
	}

	client := a.newClient()
	client.OnProgress = progressPrinter(os.Stdout, verbose)
	coords := a.conf.Grid.Coordinates()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []weather.Row
	var dataset string
	switch kind {
	case brightsky.Forecast:
		dataset = a.conf.Forecasts.Table
		rows, err = fetchForecasts(ctx, client, coords, time.Now, os.Stdout)
	default:
		dataset = a.conf.Observations.Table
		from := exportFromDate
		if from == "" {
			from = timerange.TwoDaysAgo(time.Now())
		}
		var ranges []timerange.DateRange
		ranges, err = timerange.Split(from, exportToDate)
		if err != nil {
			return err
		}
		rows, err = fetchObservations(ctx, client, coords, ranges, os.Stdout)
	}
	if err != nil {
		return err
	}

	written, err := exporter.Export(dataset, rows)
	if err != nil {
		return err
	}

	fmt.Printf("🎯 Exported %d rows to %s/%s.%s\n", written, exportOutput, dataset, exportFormat)
	return nil
}

// datasetKind maps a dataset name to the observation type it is fetched with.
func datasetKind(dataset string) string {
	switch dataset {
	case "observations":
		return string(brightsky.Observed)
	case "forecasts":
		return string(brightsky.Forecast)
	}
	return dataset
}

func init() {
	exportCmd.Flags().StringVar(&exportDataset, "dataset", "observations", "dataset to export (observations, forecasts)")
	exportCmd.Flags().StringVar(&exportFromDate, "from", "", "start date for observations (YYYY-MM-DD, default: two days ago)")
	exportCmd.Flags().StringVar(&exportToDate, "to", "", "end date for observations (YYYY-MM-DD, default: today)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "file format (csv, json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "data", "output directory")
}
