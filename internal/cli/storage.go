package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// storageCmd represents the storage command
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Information about storage backends",
	Long: `Display information about available storage backends and how each of them
handles the load modes.

This command helps you choose the right storage backend for your needs.`,
	RunE: runStorage,
}

func runStorage(cmd *cobra.Command, args []string) error {
	fmt.Println("📦 Available Storage Backends")
	fmt.Println(strings.Repeat("=", 50))

	fmt.Println("\n🏠 ClickHouse (default)")
	fmt.Println("  - Best for: The shared production database")
	fmt.Println("  - Connection: database.* in the config or DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD")
	fmt.Println("  - Replace mode: ReplacingMergeTree tables, deduplicated by their sorting key")
	fmt.Println("  - Compaction: OPTIMIZE TABLE ... FINAL")
	fmt.Println("  - Example: storage: {type: \"clickhouse\"}, database: {host: \"db.example.com\", port: 9440}")

	fmt.Println("\n🚀 DuckDB")
	fmt.Println("  - Best for: Local analysis, development without a server")
	fmt.Println("  - Format: Single database file (.duckdb), schemas are created inside it")
	fmt.Println("  - Replace mode: tables with a PRIMARY KEY, rows are upserted")
	fmt.Println("  - Example: storage: {type: \"duckdb\", path: \"weather.duckdb\"}")

	fmt.Println("\n💾 SQLite")
	fmt.Println("  - Best for: Universal compatibility, small datasets")
	fmt.Println("  - Format: One main file plus one attached file per schema")
	fmt.Println("  - Replace mode: tables with a PRIMARY KEY, rows are upserted")
	fmt.Println("  - Example: storage: {type: \"sqlite\", path: \"weather.sqlite\", schemas: [\"fairq_raw\"]}")

	fmt.Println("\n📄 Files (export command)")
	fmt.Println("  - CSV: one <dataset>.csv per dataset, header written once")
	fmt.Println("  - JSON: one <dataset>.json array per dataset")
	fmt.Println("  - Load modes do not apply, rows are always appended")
	fmt.Println("  - Example: dwd-connect export --format csv --output ./data")

	fmt.Println("\n💡 Recommendations:")
	fmt.Println("  - For the scheduled daily jobs: ClickHouse")
	fmt.Println("  - For local backfills and analysis: DuckDB")
	fmt.Println("  - For spreadsheets: CSV export")

	return nil
}
