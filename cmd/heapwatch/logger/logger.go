// Package logger holds heapwatch's process-wide slog handle. The TUI
// owns the terminal, so log output goes to the file named by --debug,
// or nowhere.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// L discards everything until Init points it at a file.
var L = slog.New(slog.NewJSONHandler(io.Discard, nil))

// Init sends all subsequent log calls to a JSON session log at path,
// replacing any previous run's file. An empty path keeps the discard
// handler. Call from main() before any log calls.
func Init(path string, level slog.Level) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return nil
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
