package storage

import (
	"context"
	"fmt"
	"regexp"

	"dwd-connect/internal/weather"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Engine is the storage engine kind reported for a table.
type Engine string

const (
	// EngineReplacingMergeTree is ClickHouse's keyed, last-write-wins engine.
	EngineReplacingMergeTree Engine = "ReplacingMergeTree"
	// EngineKeyedTable is an embedded table with a declared primary key.
	EngineKeyedTable Engine = "KeyedTable"
	// EngineHeapTable is an embedded table without a primary key.
	EngineHeapTable Engine = "HeapTable"
)

// SupportsKeyedDedup reports whether rows sharing a key collapse into one on compaction.
func (e Engine) SupportsKeyedDedup() bool {
	return e == EngineReplacingMergeTree || e == EngineKeyedTable
}

// TableMetadata is what the database reports about a table.
type TableMetadata struct {
	Engine     Engine
	KeyColumns []string
}

// Conn is a single acquired database session.
type Conn interface {
	// TableMetadata returns the engine kind and key columns of schema.table.
	TableMetadata(ctx context.Context, schema, table string) (TableMetadata, error)

	// TableExists reports whether schema.table exists.
	TableExists(ctx context.Context, schema, table string) (bool, error)

	// Insert writes rows using the given column layout and returns the number written.
	Insert(ctx context.Context, schema, table string, columns []string, rows []weather.Row) (int, error)

	// Truncate removes all rows from schema.table.
	Truncate(ctx context.Context, schema, table string) error

	// Compact merges rows sharing a key so that one row per key survives.
	Compact(ctx context.Context, schema, table string) error

	// Close releases the session.
	Close() error
}

// Connector acquires database sessions.
type Connector interface {
	Open(ctx context.Context) (Conn, error)
}

// WithConn acquires a session, hands it to fn and releases it right after.
// A failure to release is reported alongside fn's error.
func WithConn(ctx context.Context, connector Connector, fn func(Conn) error) error {
	conn, err := connector.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	var result *multierror.Error
	if err := fn(conn); err != nil {
		result = multierror.Append(result, err)
	}
	if err := conn.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close database connection: %w", err))
	}
	if result != nil && len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result.ErrorOrNil()
}

// StorageType represents the different storage types available.
type StorageType string

const (
	StorageTypeClickHouse StorageType = "clickhouse"
	StorageTypeDuckDB     StorageType = "duckdb"
	StorageTypeSQLite     StorageType = "sqlite"
)

// StorageTypes lists every supported backend.
var StorageTypes = []StorageType{StorageTypeClickHouse, StorageTypeDuckDB, StorageTypeSQLite}

// Options carries what the backends need to open a session.
type Options struct {
	// Path is the database file for embedded backends.
	Path string
	// Schemas are attached next to Path for SQLite.
	Schemas []string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	Secure   bool
}

// NewConnector creates a connector based on the specified type.
func NewConnector(storageType StorageType, opts Options, logger zerolog.Logger) (Connector, error) {
	switch storageType {
	case StorageTypeClickHouse:
		return NewClickHouseConnector(opts, logger), nil
	case StorageTypeDuckDB:
		return NewDuckDBConnector(opts.Path, logger), nil
	case StorageTypeSQLite:
		return NewSQLiteConnector(opts.Path, opts.Schemas, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", storageType)
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used unquoted as a schema,
// table or column name. Identifiers are interpolated into SQL, so anything
// else is rejected.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

func checkIdentifiers(names ...string) error {
	for _, name := range names {
		if !ValidIdentifier(name) {
			return fmt.Errorf("invalid identifier %q", name)
		}
	}
	return nil
}
