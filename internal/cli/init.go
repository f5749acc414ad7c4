package cli

import (
	"fmt"
	"os"

	"dwd-connect/internal/config"

	"github.com/spf13/cobra"
)

var initForce bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration (Berlin grid, ClickHouse targets in replace
mode) to the config file so it can be edited.

Examples:
  dwd-connect init
  dwd-connect init --config local.yaml --force`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configFile); err == nil && !initForce {
		return fmt.Errorf("%s already exists, use --force to overwrite it", configFile)
	}

	if err := config.Save(configFile, config.Default()); err != nil {
		return fmt.Errorf("failed to write %s: %w", configFile, err)
	}

	fmt.Printf("✅ Wrote default configuration to %s\n", configFile)
	fmt.Println("   Set DB_HOST, DB_USER and DB_PASSWORD (or a .env file) before loading")
	return nil
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}
