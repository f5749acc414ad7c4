package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName        = "dwd-connect"
	appDescription = "Loads DWD weather observations and forecasts from the Bright Sky API"
	version        = "1.0.0"
)

var (
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Fetch DWD weather data for a coordinate grid",
	Long: fmt.Sprintf(`%s - %s

Fetches hourly weather for every point of a coordinate grid (Berlin by
default) and loads it into an analytical database:

• ClickHouse - production target (default), ReplacingMergeTree tables
• DuckDB - local analytical database file
• SQLite - portable database file

Features:
- Observations split into calendar-year requests
- Forecast snapshots stamped with the time they were taken
- Replace mode that keeps one row per key
- Rate-limited API calls, aborting on the first failed request
- CSV and JSON export without a database`, appName, appDescription),
	Version: version,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Run executes the root command with fixed arguments. Single purpose
// binaries use it instead of reading the command line.
func Run(args ...string) {
	rootCmd.SetArgs(args)
	Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(observationsCmd)
	rootCmd.AddCommand(forecastsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(initCmd)
}
