package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// New returns a debug level logger that writes readable lines to stdout and
// JSON lines to the append-only file at logPath. The returned closer releases
// the file and must be called once logging is done.
func New(logPath string) (zerolog.Logger, io.Closer, error) {
	if dir := filepath.Dir(logPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return NewWithWriter(zerolog.MultiLevelWriter(console, logFile), zerolog.DebugLevel), logFile, nil
}

// NewWithWriter creates a logger with a custom writer.
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewSilent creates a logger that discards all output (for clean console output)
func NewSilent() zerolog.Logger {
	return zerolog.Nop()
}
