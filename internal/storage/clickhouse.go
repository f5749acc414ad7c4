package storage

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/rs/zerolog"
)

// NewClickHouseConnector creates a connector that dials ClickHouse for every session.
func NewClickHouseConnector(opts Options, logger zerolog.Logger) *SQLConnector {
	open := func(ctx context.Context) (*sql.DB, error) {
		chOpts := &clickhouse.Options{
			Addr: []string{opts.Host + ":" + strconv.Itoa(opts.Port)},
			Auth: clickhouse.Auth{
				Database: opts.Database,
				Username: opts.User,
				Password: opts.Password,
			},
		}
		if opts.Secure {
			chOpts.TLS = &tls.Config{}
		}
		return clickhouse.OpenDB(chOpts), nil
	}
	return &SQLConnector{openDB: open, dialect: clickHouseDialect{}, logger: logger}
}

type clickHouseDialect struct{}

func (clickHouseDialect) name() string { return "clickhouse" }

func (clickHouseDialect) quote(identifier string) string {
	return "`" + identifier + "`"
}

func (d clickHouseDialect) tableMetadata(ctx context.Context, db *sql.DB, schema, table string) (TableMetadata, error) {
	var engine, sortingKey string
	err := db.QueryRowContext(ctx,
		"SELECT engine, sorting_key FROM system.tables WHERE database = ? AND name = ?",
		schema, table,
	).Scan(&engine, &sortingKey)
	if errors.Is(err, sql.ErrNoRows) {
		return TableMetadata{}, fmt.Errorf("table %s.%s not found", schema, table)
	}
	if err != nil {
		return TableMetadata{}, fmt.Errorf("failed to read metadata of %s.%s: %w", schema, table, err)
	}
	return TableMetadata{Engine: Engine(engine), KeyColumns: splitSortingKey(sortingKey)}, nil
}

func (d clickHouseDialect) tableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error) {
	var exists uint8
	if err := db.QueryRowContext(ctx, "EXISTS TABLE "+qualified(d, schema, table)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence of %s.%s: %w", schema, table, err)
	}
	return exists == 1, nil
}

func (d clickHouseDialect) insertStatement(_ context.Context, _ *sql.DB, schema, table string, columns []string) (string, error) {
	return fmt.Sprintf("INSERT INTO %s (%s)", qualified(d, schema, table), columnList(d, columns)), nil
}

func (d clickHouseDialect) truncate(ctx context.Context, db *sql.DB, schema, table string) error {
	if _, err := db.ExecContext(ctx, "TRUNCATE TABLE "+qualified(d, schema, table)); err != nil {
		return fmt.Errorf("failed to truncate %s.%s: %w", schema, table, err)
	}
	return nil
}

func (d clickHouseDialect) compact(ctx context.Context, db *sql.DB, schema, table string) error {
	if _, err := db.ExecContext(ctx, "OPTIMIZE TABLE "+qualified(d, schema, table)+" FINAL"); err != nil {
		return fmt.Errorf("failed to optimize %s.%s: %w", schema, table, err)
	}
	return nil
}

func (clickHouseDialect) driverValue(v any) any { return v }

// splitSortingKey turns system.tables.sorting_key ("date_time, lat, lon") into column names.
func splitSortingKey(key string) []string {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	parts := strings.Split(key, ",")
	columns := make([]string, 0, len(parts))
	for _, part := range parts {
		if column := strings.TrimSpace(part); column != "" {
			columns = append(columns, column)
		}
	}
	return columns
}
