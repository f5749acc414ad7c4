package cli

import (
	"context"
	"fmt"
	"time"

	"dwd-connect/internal/brightsky"
	"dwd-connect/internal/config"
	"dwd-connect/internal/logger"
	"dwd-connect/internal/storage"
	"dwd-connect/internal/timerange"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, database and API connectivity",
	Long: `Validate your configuration file and test connectivity.

This command performs the following checks:
- Validates configuration file format and required fields
- Connects to the storage backend and inspects the target tables
- Requests one coordinate from the Bright Sky API

This is useful for troubleshooting issues before running a full load.

Examples:
  # Validate default config file
  dwd-connect validate

  # Validate specific config file
  dwd-connect validate --config my-config.yaml`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("🔍 Validating: %s\n\n", configFile)

	conf, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("❌ Config file error: %v", err)
	}

	showFieldValidationReport(conf)

	validation := conf.ValidateComplete()
	if validation.HasErrors() {
		fmt.Println("\n❌ VALIDATION ERRORS:")
		for _, err := range validation.Errors {
			fmt.Printf("   • %s\n", err.Error())
		}
		return fmt.Errorf("\nPlease fix the above errors and try again")
	}

	fmt.Println("🔄 Testing components...")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	quiet := logger.NewSilent()

	if err := testStorage(ctx, conf, quiet); err != nil {
		fmt.Printf("   ❌ Storage: %v\n", err)
		return fmt.Errorf("storage test failed")
	}
	fmt.Println("   ✅ Storage: Ready")

	coord, err := testAPI(ctx, conf, quiet)
	if err != nil {
		fmt.Printf("   ❌ API: %v\n", err)
		return fmt.Errorf("API test failed")
	}
	fmt.Printf("   ✅ API: Answered for %s\n", coord)

	showExecutionEstimate(conf)

	fmt.Println("\n🎉 All validations passed!")
	fmt.Println("   Ready to load weather data")
	return nil
}

func showFieldValidationReport(conf *config.Config) {
	fmt.Println("📋 Configuration Check:")

	checkField("API URL", conf.API.BaseURL != "", conf.API.BaseURL)
	checkField("Rate Limit", conf.API.RateLimit > 0, fmt.Sprintf("%g req/s", conf.API.RateLimit))

	gridErr := conf.Grid.Validate()
	checkFieldWithNote("Grid", gridErr == nil, fmt.Sprintf("%d coordinates", len(conf.Grid.Coordinates())), errString(gridErr))

	checkField("Storage Type", isValidStorageType(conf.Storage.Type), conf.Storage.Type)
	if conf.Storage.Type == string(storage.StorageTypeClickHouse) {
		checkField("DB Host", conf.Database.Host != "", conf.Database.Host)
		checkField("DB User", conf.Database.User != "", conf.Database.User)
		checkField("DB Password", conf.Database.Password != "", conf.Database.Password != "")
	} else {
		checkField("Storage Path", conf.Storage.Path != "", conf.Storage.Path)
	}

	checkField("Observations", validTarget(conf.Observations), fmt.Sprintf("%s (%s)", targetName(conf.Observations), conf.Observations.Mode))
	checkField("Forecasts", validTarget(conf.Forecasts), fmt.Sprintf("%s (%s)", targetName(conf.Forecasts), conf.Forecasts.Mode))
}

func checkField(name string, isValid bool, value interface{}) {
	checkFieldWithNote(name, isValid, value, "")
}

func checkFieldWithNote(name string, isValid bool, value interface{}, note string) {
	status := "❌"
	if isValid {
		status = "✅"
	}

	var displayValue string
	switch v := value.(type) {
	case string:
		displayValue = v
	case bool:
		if v {
			displayValue = "present"
		} else {
			displayValue = "missing"
		}
	default:
		displayValue = fmt.Sprintf("%v", v)
	}

	if !isValid && note != "" {
		displayValue = displayValue + " ⚠️  " + note
	}

	fmt.Printf("   %s %-15s %s\n", status, name+":", displayValue)
}

// testStorage opens the backend and reads the metadata of both target tables.
func testStorage(ctx context.Context, conf *config.Config, log zerolog.Logger) error {
	connector, err := storage.NewConnector(storage.StorageType(conf.Storage.Type), conf.StorageOptions(), log)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	for _, t := range []config.Target{conf.Observations, conf.Forecasts} {
		if _, err := inspectTable(ctx, connector, t.Schema, t.Table); err != nil {
			return err
		}
	}
	return nil
}

// testAPI requests the last two days for the first grid coordinate.
func testAPI(ctx context.Context, conf *config.Config, log zerolog.Logger) (brightsky.Coordinate, error) {
	coords := conf.Grid.Coordinates()
	if len(coords) == 0 {
		return brightsky.Coordinate{}, fmt.Errorf("grid has no coordinates")
	}

	client := brightsky.NewClient(brightsky.Options{
		BaseURL:           conf.API.BaseURL,
		RequestsPerSecond: conf.API.RateLimit,
		Timeout:           conf.API.Timeout,
	}, log)

	now := time.Now()
	start := timerange.TwoDaysAgo(now)
	end := now.Format(timerange.DateLayout)
	if _, err := client.GetWeather(ctx, coords[0], start, end); err != nil {
		return coords[0], err
	}
	return coords[0], nil
}

func showExecutionEstimate(conf *config.Config) {
	// one observations period and one forecast window per coordinate
	totalAPICalls := 2 * len(conf.Grid.Coordinates())

	estimatedTimeSeconds := float64(totalAPICalls) / conf.API.RateLimit
	estimatedMinutes := int(estimatedTimeSeconds / 60)

	fmt.Println("\n⏱️  Execution Estimate (one daily run of each dataset):")
	fmt.Printf("   📊 API Calls: ~%d\n", totalAPICalls)
	if estimatedMinutes > 0 {
		fmt.Printf("   ⏳ Time: ~%d minutes\n", estimatedMinutes)
	} else {
		fmt.Printf("   ⏳ Time: ~%d seconds\n", int(estimatedTimeSeconds))
	}
}

func validTarget(t config.Target) bool {
	_, err := resolveTarget(t, "", "")
	return err == nil
}

func isValidStorageType(storageType string) bool {
	for _, valid := range storage.StorageTypes {
		if storageType == string(valid) {
			return true
		}
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
