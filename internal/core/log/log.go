// Package log builds the structured loggers every component requests by
// name, so log lines are consistently tagged with which part of the
// adapter emitted them.
package log

import (
	"log/slog"
	"os"
	"strings"

	"github.com/jnsquire/dapper/internal/core/config"
)

// New builds a slog.Logger per cfg: text or JSON handler, writing to
// stderr so stdout stays free for any transport that uses it.
func New(cfg config.LogConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// For names per session/component, e.g. log.For(base, "backend", "external").
func For(base *slog.Logger, component string, attrs ...any) *slog.Logger {
	args := append([]any{"component", component}, attrs...)
	return base.With(args...)
}
