package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"dwd-connect/internal/loader"
	"dwd-connect/internal/storage"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// tableCmd represents the table command
var tableCmd = &cobra.Command{
	Use:   "table [schema.table]",
	Short: "Show how a target table is set up for loading",
	Long: `Inspect a table in the configured database and display its engine, key
columns and whether replace mode can be used on it.

Without an argument the configured observations and forecasts tables are shown.

Examples:
  dwd-connect table
  dwd-connect table fairq_raw.dwd_observations`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTable,
}

// tableInfo is what the table command reports for one table.
type tableInfo struct {
	Name            string
	Meta            storage.TableMetadata
	ProcessedExists bool
}

func runTable(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	var names []string
	if len(args) == 1 {
		names = args
	} else {
		names = []string{targetName(a.conf.Observations), targetName(a.conf.Forecasts)}
	}

	connector, err := a.newConnector()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Println("🔍 Inspecting tables...")
	for _, name := range names {
		schema, table, found := strings.Cut(name, ".")
		if !found {
			return fmt.Errorf("table must be given as schema.table, got %q", name)
		}
		info, err := inspectTable(ctx, connector, schema, table)
		if err != nil {
			return err
		}
		displayTable(os.Stdout, info)
	}
	return nil
}

func inspectTable(ctx context.Context, connector storage.Connector, schema, table string) (tableInfo, error) {
	info := tableInfo{Name: schema + "." + table}
	err := storage.WithConn(ctx, connector, func(conn storage.Conn) error {
		var err error
		if info.Meta, err = conn.TableMetadata(ctx, schema, table); err != nil {
			return err
		}
		info.ProcessedExists, err = conn.TableExists(ctx, schema, table+loader.ProcessedSuffix)
		return err
	})
	if err != nil {
		return info, fmt.Errorf("failed to inspect %s: %w", info.Name, err)
	}
	return info, nil
}

func displayTable(out io.Writer, info tableInfo) {
	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
	fmt.Fprintf(out, "📋 %s\n", info.Name)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	t := tablewriter.NewWriter(out)
	t.SetHeader([]string{"Field", "Value"})
	t.SetBorder(true)
	t.SetRowLine(true)
	t.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiBlueColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiBlueColor},
	)
	t.SetColumnColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Normal},
	)

	keys := strings.Join(info.Meta.KeyColumns, ", ")
	if keys == "" {
		keys = "(none)"
	}
	replace := "❌ no"
	if info.Meta.Engine.SupportsKeyedDedup() {
		replace = "✅ yes"
	}
	processed := "missing"
	if info.ProcessedExists {
		processed = "exists, compacted after replace"
	}

	rows := [][]string{
		{"Engine", string(info.Meta.Engine)},
		{"Key Columns", keys},
		{"Replace Mode", replace},
		{"Processed Table", processed},
	}
	for _, row := range rows {
		t.Append(row)
	}
	t.Render()
}
