package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"dwd-connect/internal/weather"

	"github.com/spf13/cobra"
)

var (
	fcMode  string
	fcTable string
)

// forecastsCmd represents the forecasts command
var forecastsCmd = &cobra.Command{
	Use:   "forecasts",
	Short: "Historize the current weather forecast",
	Long: `Fetch the forecast for the next five days for every grid coordinate and
store it together with the time it was taken.

The API only serves the latest forecast, so this has to run on a schedule to
build up a history of past forecasts.

Examples:
  dwd-connect forecasts
  dwd-connect forecasts --table scratch.dwd_forecasts --mode insert`,
	RunE: runForecasts,
}

func runForecasts(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	target, err := resolveTarget(a.conf.Forecasts, fcTable, fcMode)
	if err != nil {
		return err
	}
	coords := a.conf.Grid.Coordinates()

	fmt.Printf("🚀 Fetching forecasts for %d coordinates...\n", len(coords))

	client := a.newClient()
	client.OnProgress = progressPrinter(os.Stdout, verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := fetchForecasts(ctx, client, coords, time.Now, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Retrieved %d rows\n", len(rows))

	l, err := a.newLoader()
	if err != nil {
		return err
	}
	if err := loadRows(ctx, l, target, weather.ForecastColumns, rows, os.Stdout); err != nil {
		return err
	}

	fmt.Println("🎯 Forecasts historized successfully!")
	return nil
}

func init() {
	forecastsCmd.Flags().StringVar(&fcMode, "mode", "", "load mode (insert, replace, truncate)")
	forecastsCmd.Flags().StringVar(&fcTable, "table", "", "target table (schema.table or table)")
}
