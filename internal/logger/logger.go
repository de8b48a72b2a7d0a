// Package logger holds the process-wide slog logger used by digctl.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// L is the global logger instance. It discards everything until Init is
// called.
var L = slog.New(slog.DiscardHandler)

// Options configures the logger.
type Options struct {
	Level  slog.Level // minimum level; zero is info
	Format string     // "text" or "json"; default text
	File   string     // append to this file; empty writes to Writer
	Writer io.Writer  // used when File is empty; nil means stderr
}

// Init configures L. The returned close function releases the log file, if
// one was opened, and is always safe to call.
func Init(opts Options) (func() error, error) {
	noop := func() error { return nil }

	w := opts.Writer
	closeFn := noop
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return noop, fmt.Errorf("log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return noop, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	switch opts.Format {
	case "", "text":
		L = slog.New(slog.NewTextHandler(w, handlerOpts))
	case "json":
		L = slog.New(slog.NewJSONHandler(w, handlerOpts))
	default:
		_ = closeFn()
		return noop, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return closeFn, nil
}

// Discard resets L to drop all output.
func Discard() { L = slog.New(slog.DiscardHandler) }

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
