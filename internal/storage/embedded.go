package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// catalog answers the schema questions an embedded backend can't express in plain SQL.
type catalog interface {
	tableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error)
	primaryKey(ctx context.Context, db *sql.DB, schema, table string) ([]string, error)
}

// embeddedDialect covers DuckDB and SQLite. A table with a primary key is
// treated as keyed: inserts replace rows with the same key and compaction
// keeps the newest rowid per key.
type embeddedDialect struct {
	backend    string
	catalog    catalog
	timeLayout string
}

func (d embeddedDialect) name() string { return d.backend }

func (embeddedDialect) quote(identifier string) string {
	return `"` + identifier + `"`
}

func (d embeddedDialect) tableMetadata(ctx context.Context, db *sql.DB, schema, table string) (TableMetadata, error) {
	exists, err := d.catalog.tableExists(ctx, db, schema, table)
	if err != nil {
		return TableMetadata{}, err
	}
	if !exists {
		return TableMetadata{}, fmt.Errorf("table %s.%s not found", schema, table)
	}

	keys, err := d.catalog.primaryKey(ctx, db, schema, table)
	if err != nil {
		return TableMetadata{}, err
	}
	engine := EngineHeapTable
	if len(keys) > 0 {
		engine = EngineKeyedTable
	}
	return TableMetadata{Engine: engine, KeyColumns: keys}, nil
}

func (d embeddedDialect) tableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error) {
	return d.catalog.tableExists(ctx, db, schema, table)
}

func (d embeddedDialect) insertStatement(ctx context.Context, db *sql.DB, schema, table string, columns []string) (string, error) {
	keys, err := d.catalog.primaryKey(ctx, db, schema, table)
	if err != nil {
		return "", err
	}
	verb := "INSERT"
	if len(keys) > 0 {
		verb = "INSERT OR REPLACE"
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb, qualified(d, schema, table), columnList(d, columns), placeholders), nil
}

func (d embeddedDialect) truncate(ctx context.Context, db *sql.DB, schema, table string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM "+qualified(d, schema, table)); err != nil {
		return fmt.Errorf("failed to truncate %s.%s: %w", schema, table, err)
	}
	return nil
}

func (d embeddedDialect) compact(ctx context.Context, db *sql.DB, schema, table string) error {
	keys, err := d.catalog.primaryKey(ctx, db, schema, table)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	target := qualified(d, schema, table)
	query := fmt.Sprintf("DELETE FROM %s WHERE rowid NOT IN (SELECT max(rowid) FROM %s GROUP BY %s)",
		target, target, columnList(d, keys))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to compact %s.%s: %w", schema, table, err)
	}
	return nil
}

func (d embeddedDialect) driverValue(v any) any {
	if t, ok := v.(time.Time); ok && d.timeLayout != "" {
		return t.Format(d.timeLayout)
	}
	return v
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
