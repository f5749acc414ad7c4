package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"
)

// NewDuckDBConnector creates a connector for a DuckDB database file.
func NewDuckDBConnector(path string, logger zerolog.Logger) *SQLConnector {
	open := func(ctx context.Context) (*sql.DB, error) {
		return sql.Open("duckdb", path)
	}
	return &SQLConnector{
		openDB:  open,
		dialect: embeddedDialect{backend: "duckdb", catalog: duckDBCatalog{}},
		logger:  logger,
	}
}

type duckDBCatalog struct{}

func (duckDBCatalog) tableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
		schema, table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check existence of %s.%s: %w", schema, table, err)
	}
	return n > 0, nil
}

func (duckDBCatalog) primaryKey(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT unnest(constraint_column_names) FROM duckdb_constraints() "+
			"WHERE schema_name = ? AND table_name = ? AND constraint_type = 'PRIMARY KEY'",
		schema, table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary key of %s.%s: %w", schema, table, err)
	}
	keys, err := scanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary key of %s.%s: %w", schema, table, err)
	}
	return keys, nil
}
