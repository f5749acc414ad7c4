// Package loader writes weather batches into a table while keeping it free of
// rows that share a key.
package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dwd-connect/internal/storage"
	"dwd-connect/internal/timerange"
	"dwd-connect/internal/weather"

	"github.com/rs/zerolog"
)

// Mode selects how a batch is written.
type Mode string

const (
	// ModeInsert appends the batch as is.
	ModeInsert Mode = "insert"
	// ModeReplace appends the batch and compacts the table so one row per key survives.
	ModeReplace Mode = "replace"
	// ModeTruncate empties the table before appending the batch.
	ModeTruncate Mode = "truncate"
)

// Modes lists every supported load mode.
var Modes = []Mode{ModeInsert, ModeReplace, ModeTruncate}

// ParseMode validates a user supplied mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", &InvalidModeError{Mode: s}
}

// ProcessedSuffix names the table a materialized view fills from the target.
const ProcessedSuffix = "_processed"

// Request is one batch to load.
type Request struct {
	Schema  string
	Table   string
	Mode    Mode
	Columns []string
	Rows    []weather.Row
}

// Loader writes batches through short lived connections, one per step.
type Loader struct {
	connector storage.Connector
	logger    zerolog.Logger
}

// New creates a Loader.
func New(connector storage.Connector, logger zerolog.Logger) *Loader {
	return &Loader{connector: connector, logger: logger}
}

// Load writes req according to its mode. Checks run before anything is
// written. An empty batch skips the insert and everything after it.
func (l *Loader) Load(ctx context.Context, req Request) error {
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return err
	}
	if len(req.Columns) == 0 {
		return fmt.Errorf("no columns given for %s.%s", req.Schema, req.Table)
	}

	log := l.logger.With().Str("table", req.Schema+"."+req.Table).Str("mode", string(req.Mode)).Logger()

	if req.Mode == ModeReplace {
		if err := l.checkEngine(ctx, req, log); err != nil {
			return err
		}
		if err := l.checkDuplicates(ctx, req, log); err != nil {
			return err
		}
	}

	if req.Mode == ModeTruncate {
		log.Info().Msg("truncating table")
		err := storage.WithConn(ctx, l.connector, func(conn storage.Conn) error {
			return conn.Truncate(ctx, req.Schema, req.Table)
		})
		if err != nil {
			return fmt.Errorf("failed to truncate %s.%s: %w", req.Schema, req.Table, err)
		}
	}

	if len(req.Rows) == 0 {
		log.Info().Msg("empty batch, nothing to insert")
		return nil
	}

	log.Info().Int("rows", len(req.Rows)).Msg("sending data to database")
	err := storage.WithConn(ctx, l.connector, func(conn storage.Conn) error {
		_, err := conn.Insert(ctx, req.Schema, req.Table, req.Columns, req.Rows)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert into %s.%s: %w", req.Schema, req.Table, err)
	}

	if req.Mode == ModeReplace {
		if err := l.compact(ctx, req, log); err != nil {
			return err
		}
	}

	log.Info().Msg("done")
	return nil
}

func (l *Loader) metadata(ctx context.Context, schema, table string) (storage.TableMetadata, error) {
	var meta storage.TableMetadata
	err := storage.WithConn(ctx, l.connector, func(conn storage.Conn) error {
		var err error
		meta, err = conn.TableMetadata(ctx, schema, table)
		return err
	})
	return meta, err
}

func (l *Loader) checkEngine(ctx context.Context, req Request, log zerolog.Logger) error {
	log.Info().Msg("checking table engine")
	meta, err := l.metadata(ctx, req.Schema, req.Table)
	if err != nil {
		return fmt.Errorf("failed to read engine of %s.%s: %w", req.Schema, req.Table, err)
	}
	if !meta.Engine.SupportsKeyedDedup() {
		return &UnsupportedEngineError{Schema: req.Schema, Table: req.Table, Engine: meta.Engine}
	}
	return nil
}

func (l *Loader) checkDuplicates(ctx context.Context, req Request, log zerolog.Logger) error {
	log.Info().Msg("checking for duplicates")
	meta, err := l.metadata(ctx, req.Schema, req.Table)
	if err != nil {
		return fmt.Errorf("failed to read key columns of %s.%s: %w", req.Schema, req.Table, err)
	}
	return FindDuplicates(meta.KeyColumns, req.Rows)
}

func (l *Loader) compact(ctx context.Context, req Request, log zerolog.Logger) error {
	log.Info().Msg("optimizing table to remove duplicates")
	err := storage.WithConn(ctx, l.connector, func(conn storage.Conn) error {
		return conn.Compact(ctx, req.Schema, req.Table)
	})
	if err != nil {
		return fmt.Errorf("failed to compact %s.%s: %w", req.Schema, req.Table, err)
	}

	processed := req.Table + ProcessedSuffix
	var exists bool
	err = storage.WithConn(ctx, l.connector, func(conn storage.Conn) error {
		var err error
		exists, err = conn.TableExists(ctx, req.Schema, processed)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to check for %s.%s: %w", req.Schema, processed, err)
	}
	if !exists {
		return nil
	}

	log.Info().Str("processed", processed).Msg("optimizing table processed by materialized view")
	err = storage.WithConn(ctx, l.connector, func(conn storage.Conn) error {
		return conn.Compact(ctx, req.Schema, processed)
	})
	if err != nil {
		return fmt.Errorf("failed to compact %s.%s: %w", req.Schema, processed, err)
	}
	return nil
}

// FindDuplicates returns a *DuplicateKeyError when two or more rows share the
// same values on keyColumns. Every row of a colliding group is counted.
func FindDuplicates(keyColumns []string, rows []weather.Row) error {
	if len(keyColumns) == 0 || len(rows) < 2 {
		return nil
	}

	counts := make(map[string]int, len(rows))
	var order []string
	for _, row := range rows {
		key, err := formatKey(keyColumns, row)
		if err != nil {
			return err
		}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	dup := &DuplicateKeyError{KeyColumns: keyColumns}
	for _, key := range order {
		if n := counts[key]; n > 1 {
			dup.Keys = append(dup.Keys, key)
			dup.Rows += n
		}
	}
	if len(dup.Keys) == 0 {
		return nil
	}
	return dup
}

func formatKey(keyColumns []string, row weather.Row) (string, error) {
	parts := make([]string, len(keyColumns))
	for i, column := range keyColumns {
		v, ok := row.Value(column)
		if !ok {
			return "", fmt.Errorf("key column %q is not part of the batch: %w", column, &weather.UnknownColumnError{Column: column})
		}
		parts[i] = formatKeyValue(v)
	}
	return strings.Join(parts, ", "), nil
}

func formatKeyValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return v.UTC().Format(timerange.TimestampLayout)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
