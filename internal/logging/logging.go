// Package logging writes difyctl's diagnostic log to a rotating file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds log file configuration.
type Config struct {
	Path       string // Log file path
	MaxSizeMB  int    // Max size in MB before rotation
	MaxBackups int    // Number of old files to keep
	MaxAgeDays int    // Max age in days
	Compress   bool   // Compress old files
	Verbose    bool   // Keep debug records
}

// DefaultConfig returns the rotation policy for a CLI that logs a few
// lines per invocation.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Compress:   true,
	}
}

// NewRotatingWriter creates a log writer with rotation support.
func NewRotatingWriter(cfg Config) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

// Open returns a logger writing to cfg.Path and a func closing the file.
// When the log directory cannot be created the logger discards, so a
// read-only home never fails a command.
func Open(cfg Config) (*slog.Logger, func()) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return slog.New(slog.DiscardHandler), func() {}
	}
	w := NewRotatingWriter(cfg)
	return NewLogger(w, cfg.Verbose), func() { _ = w.Close() }
}

// NewLogger creates a structured logger that writes to the given writer.
// Debug records are kept only when verbose is set.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	})).With("component", "difyctl")
}

// secretKeys name attributes whose values never reach the log file.
var secretKeys = []string{"key", "secret", "token", "credential", "password"}

func redact(_ []string, a slog.Attr) slog.Attr {
	name := strings.ToLower(a.Key)
	for _, k := range secretKeys {
		if strings.Contains(name, k) {
			return slog.String(a.Key, "[redacted]")
		}
	}
	return a
}
