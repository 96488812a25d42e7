// Package logging builds fdspp's slog logger and carries it through a
// context.Context.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", s)
}

// CheckFormat validates a log format name.
func CheckFormat(s string) error {
	switch strings.ToLower(s) {
	case "text", "json", "":
		return nil
	}
	return fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", s)
}

// New returns a logger writing to every writer in outs with the same level
// and format. It does not touch the global logger.
func New(level slog.Level, format string, outs ...io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	handlers := make([]slog.Handler, 0, len(outs))
	for _, w := range outs {
		if strings.EqualFold(format, "json") {
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		}
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

type key struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, key{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default if none is.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(key{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
