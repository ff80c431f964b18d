package logger

import (
	"io"
	"log/slog"
	"strings"
)

var level = new(slog.LevelVar)

// Init installs the process-wide slog default logger writing to w.
// format selects "text" or "json" output; anything else falls back to text.
func Init(w io.Writer, format string) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// SetLevel sets the global log level from a string.
// Unknown strings default to info.
func SetLevel(levelStr string) {
	switch strings.ToLower(levelStr) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// Level returns the current global log level.
func Level() slog.Level {
	return level.Level()
}
