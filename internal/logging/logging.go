// Package logging holds the small conventions every component follows for
// structured logging.
//
//   - Loggers are injected, never global. main() owns the handler.
//   - Each component scopes its logger once at construction time.
//   - A nil logger means "discard".
//
// Log at lifecycle boundaries (rebuild started, rebuild finished, results
// truncated, record skipped). Never log inside segment extraction, sorting,
// or bisection loops.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns logger if non-nil, otherwise a discard logger.
//
//	func NewBuilder(logger *slog.Logger) *Builder {
//	    logger = logging.Default(logger)
//	    return &Builder{logger: logger.With("component", "builder")}
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the process logger: text records on w at the given level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}
