package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"dwd-connect/internal/timerange"
	"dwd-connect/internal/ui"
	"dwd-connect/internal/weather"

	"github.com/spf13/cobra"
)

var (
	obsFromDate    string
	obsToDate      string
	obsMode        string
	obsTable       string
	obsSkipConfirm bool
)

// observationsCmd represents the observations command
var observationsCmd = &cobra.Command{
	Use:   "observations",
	Short: "Fetch observed weather and load it into the database",
	Long: `Fetch observed (current and historical) weather for every grid coordinate
and load it into the observations table.

Spans of a year or more are requested one calendar year at a time. By default
the last two days up to today are fetched, so a missed daily run leaves no gap.

Examples:
  # Last two days into the configured table
  dwd-connect observations --yes

  # Backfill a specific period
  dwd-connect observations --from 2020-02-06 --to 2022-05-20

  # Load into another table, appending without deduplication
  dwd-connect observations --table scratch.dwd_observations --mode insert`,
	RunE: runObservations,
}

func runObservations(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	target, err := resolveTarget(a.conf.Observations, obsTable, obsMode)
	if err != nil {
		return err
	}

	from := obsFromDate
	if from == "" {
		from = timerange.TwoDaysAgo(time.Now())
	}
	ranges, err := timerange.Split(from, obsToDate)
	if err != nil {
		return err
	}
	coords := a.conf.Grid.Coordinates()

	if !obsSkipConfirm {
		start, _ := ranges[0].Format()
		_, end := ranges[len(ranges)-1].Format()
		plan := ui.FetchPlan{
			Dataset:            "observations",
			FromDate:           start,
			ToDate:             end,
			Chunks:             len(ranges),
			Coordinates:        len(coords),
			RateLimitPerSecond: a.conf.API.RateLimit,
			Target:             targetName(target),
			Mode:               target.Mode,
		}
		if !ui.ConfirmExecution(plan) {
			fmt.Println("❌ Operation cancelled by user")
			return nil
		}
	}

	fmt.Printf("🚀 Fetching observations for %d coordinates in %d period(s)...\n", len(coords), len(ranges))

	client := a.newClient()
	client.OnProgress = progressPrinter(os.Stdout, verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := fetchObservations(ctx, client, coords, ranges, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Retrieved %d rows\n", len(rows))

	l, err := a.newLoader()
	if err != nil {
		return err
	}
	if err := loadRows(ctx, l, target, weather.ObservationColumns, rows, os.Stdout); err != nil {
		return err
	}

	fmt.Println("🎯 Observations loaded successfully!")
	return nil
}

func init() {
	observationsCmd.Flags().StringVar(&obsFromDate, "from", "", "start date (YYYY-MM-DD, default: two days ago)")
	observationsCmd.Flags().StringVar(&obsToDate, "to", "", "end date (YYYY-MM-DD, default: today)")
	observationsCmd.Flags().StringVar(&obsMode, "mode", "", "load mode (insert, replace, truncate)")
	observationsCmd.Flags().StringVar(&obsTable, "table", "", "target table (schema.table or table)")
	observationsCmd.Flags().BoolVarP(&obsSkipConfirm, "yes", "y", false, "skip confirmation prompt")
}
