// Package log builds the application logger. docdex speaks MCP over
// stdout, so every log record goes to stderr; components receive a
// *slog.Logger through their constructors and add context with With.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config defines logger construction options.
type Config struct {
	Level     string // debug, info, warn, error (default info)
	JSON      bool   // JSON handler instead of text
	AddSource bool   // annotate records with file:line
}

// New creates a logger writing to stderr. Stdout stays reserved for the
// MCP stdio transport.
func New(cfg Config) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// NewNop creates a logger that discards everything, for tests.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// parseLevel maps a level name to its slog.Level. Unknown or empty names
// mean info.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
