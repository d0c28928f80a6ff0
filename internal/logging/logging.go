// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the default logger on stdout. Output is JSON when
// DF_JSON_LOG is 1, true or json; the level comes from DF_LOG_LEVEL.
func Init(service string) *slog.Logger {
	json := jsonFromEnv()
	logger := New(service, os.Stdout, json, levelFromEnv())
	slog.SetDefault(logger)
	logger.Info("logging initialized", "json", json)
	return logger
}

// New builds a logger writing to w with every record tagged by service.
func New(service string, w io.Writer, json bool, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", service)
}

func jsonFromEnv() bool {
	switch strings.ToLower(os.Getenv("DF_JSON_LOG")) {
	case "1", "true", "json":
		return true
	}
	return false
}

func levelFromEnv() slog.Leveler {
	switch strings.ToLower(os.Getenv("DF_LOG_LEVEL")) {
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
