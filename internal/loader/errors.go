package loader

import (
	"fmt"
	"strings"

	"dwd-connect/internal/storage"
)

// maxReportedKeys caps how many colliding keys a DuplicateKeyError prints.
const maxReportedKeys = 10

// InvalidModeError is returned for a load mode other than insert, replace or truncate.
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid load mode %q: allowed modes are: insert, replace, truncate", e.Mode)
}

// UnsupportedEngineError is returned when replace mode targets a table whose
// engine cannot collapse rows sharing a key.
type UnsupportedEngineError struct {
	Schema string
	Table  string
	Engine storage.Engine
}

func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("can't use mode 'replace' for table %s.%s: engine %q does not deduplicate by key",
		e.Schema, e.Table, e.Engine)
}

// DuplicateKeyError is returned when rows of one batch collide on the table's key.
type DuplicateKeyError struct {
	KeyColumns []string
	// Keys holds each colliding key once, formatted as "v1, v2, ...".
	Keys []string
	// Rows is the number of rows involved in a collision.
	Rows int
}

func (e *DuplicateKeyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "there are duplicates in the data with respect to the key columns %s: %d rows share %d keys",
		strings.Join(e.KeyColumns, ", "), e.Rows, len(e.Keys))

	shown := e.Keys
	if len(shown) > maxReportedKeys {
		shown = shown[:maxReportedKeys]
	}
	for _, key := range shown {
		fmt.Fprintf(&b, "\n  (%s)", key)
	}
	if rest := len(e.Keys) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n  ... and %d more", rest)
	}
	return b.String()
}
