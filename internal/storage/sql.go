package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dwd-connect/internal/weather"

	"github.com/rs/zerolog"
)

// dialect holds the backend specific SQL behind a sqlConn.
type dialect interface {
	name() string
	quote(identifier string) string
	tableMetadata(ctx context.Context, db *sql.DB, schema, table string) (TableMetadata, error)
	tableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error)
	insertStatement(ctx context.Context, db *sql.DB, schema, table string, columns []string) (string, error)
	truncate(ctx context.Context, db *sql.DB, schema, table string) error
	compact(ctx context.Context, db *sql.DB, schema, table string) error
	driverValue(v any) any
}

// SQLConnector opens a fresh database/sql handle for every session.
type SQLConnector struct {
	openDB  func(ctx context.Context) (*sql.DB, error)
	dialect dialect
	logger  zerolog.Logger
}

// Open acquires a new session.
func (c *SQLConnector) Open(ctx context.Context) (Conn, error) {
	db, err := c.openDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s connection failed: %w", c.dialect.name(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s ping failed: %w", c.dialect.name(), err)
	}
	return &sqlConn{db: db, dialect: c.dialect, logger: c.logger}, nil
}

type sqlConn struct {
	db      *sql.DB
	dialect dialect
	logger  zerolog.Logger
}

func (c *sqlConn) TableMetadata(ctx context.Context, schema, table string) (TableMetadata, error) {
	if err := checkIdentifiers(schema, table); err != nil {
		return TableMetadata{}, err
	}
	c.logger.Debug().Str("table", schema+"."+table).Msg("reading table metadata")
	return c.dialect.tableMetadata(ctx, c.db, schema, table)
}

func (c *sqlConn) TableExists(ctx context.Context, schema, table string) (bool, error) {
	if err := checkIdentifiers(schema, table); err != nil {
		return false, err
	}
	return c.dialect.tableExists(ctx, c.db, schema, table)
}

// Insert writes all rows inside one transaction through a prepared statement.
// Any failing row aborts the whole batch.
func (c *sqlConn) Insert(ctx context.Context, schema, table string, columns []string, rows []weather.Row) (int, error) {
	if err := checkIdentifiers(schema, table); err != nil {
		return 0, err
	}
	if err := checkIdentifiers(columns...); err != nil {
		return 0, err
	}

	query, err := c.dialect.insertStatement(ctx, c.db, schema, table, columns)
	if err != nil {
		return 0, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("DB transaction error: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("DB prepare error: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		values, err := row.Values(columns)
		if err != nil {
			return 0, err
		}
		for j, v := range values {
			values[j] = c.dialect.driverValue(v)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("insert error at row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit error: %w", err)
	}
	c.logger.Debug().Str("table", schema+"."+table).Int("rows", len(rows)).Msg("inserted rows")
	return len(rows), nil
}

func (c *sqlConn) Truncate(ctx context.Context, schema, table string) error {
	if err := checkIdentifiers(schema, table); err != nil {
		return err
	}
	return c.dialect.truncate(ctx, c.db, schema, table)
}

func (c *sqlConn) Compact(ctx context.Context, schema, table string) error {
	if err := checkIdentifiers(schema, table); err != nil {
		return err
	}
	c.logger.Debug().Str("table", schema+"."+table).Msg("compacting table")
	return c.dialect.compact(ctx, c.db, schema, table)
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}

func qualified(d dialect, schema, table string) string {
	return d.quote(schema) + "." + d.quote(table)
}

func columnList(d dialect, columns []string) string {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = d.quote(column)
	}
	return strings.Join(quoted, ", ")
}
