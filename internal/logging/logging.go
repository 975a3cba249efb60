// Package logging builds the structured logger shared by the server and the worker.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// New creates a structured logger with configurable level and format and
// installs it as the slog default.
// level: "debug", "info", "warn", "error" (defaults to info if invalid)
// format: "json" for JSON output, anything else for human-readable text
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// AsynqAdapter wraps slog.Logger to implement the asynq.Logger interface.
type AsynqAdapter struct {
	Logger *slog.Logger
}

func (a *AsynqAdapter) Debug(args ...interface{}) {
	a.Logger.Debug(fmt.Sprint(args...))
}

func (a *AsynqAdapter) Info(args ...interface{}) {
	a.Logger.Info(fmt.Sprint(args...))
}

func (a *AsynqAdapter) Warn(args ...interface{}) {
	a.Logger.Warn(fmt.Sprint(args...))
}

func (a *AsynqAdapter) Error(args ...interface{}) {
	a.Logger.Error(fmt.Sprint(args...))
}

func (a *AsynqAdapter) Fatal(args ...interface{}) {
	a.Logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}
