package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"dwd-connect/internal/timerange"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// NewSQLiteConnector creates a connector for a SQLite database file. Every
// schema other than main is attached from <schema>.sqlite next to path.
func NewSQLiteConnector(path string, schemas []string, logger zerolog.Logger) *SQLConnector {
	open := func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open("sqlite3", path)
		if err != nil {
			return nil, err
		}
		// ATTACH is per connection.
		db.SetMaxOpenConns(1)

		for _, schema := range schemas {
			if schema == "main" || schema == "temp" {
				continue
			}
			if err := checkIdentifiers(schema); err != nil {
				db.Close()
				return nil, err
			}
			file := filepath.Join(filepath.Dir(path), schema+".sqlite")
			if _, err := db.ExecContext(ctx, fmt.Sprintf(`ATTACH DATABASE ? AS "%s"`, schema), file); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to attach schema %s: %w", schema, err)
			}
		}
		return db, nil
	}
	return &SQLConnector{
		openDB: open,
		dialect: embeddedDialect{
			backend:    "sqlite",
			catalog:    sqliteCatalog{},
			timeLayout: timerange.TimestampLayout,
		},
		logger: logger,
	}
}

type sqliteCatalog struct{}

func (sqliteCatalog) tableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error) {
	var n int
	query := fmt.Sprintf(`SELECT count(*) FROM "%s".sqlite_master WHERE type = 'table' AND name = ?`, schema)
	if err := db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check existence of %s.%s: %w", schema, table, err)
	}
	return n > 0, nil
}

func (sqliteCatalog) primaryKey(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk",
		table, schema,
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
