// Package logger builds the supervisor's own operational slog.Logger: the
// stream describing what the engine itself is doing (starts, stops,
// recycles, spawn failures), as distinct from a supervised child's own
// stdout/stderr capture, which the engine writes through a raw OS file
// handle per spec.Spec.LogFile rather than through this package.
package logger

import (
	"io"
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Format selects the operational log's rendering.
type Format string

const (
	FormatText  Format = "text"  // plain slog.TextHandler
	FormatColor Format = "color" // ANSI-colored text, for interactive terminals
	FormatJSON  Format = "json"
)

// Default rotation parameters, mirrored from the teacher's per-child log
// rotation defaults since the supervisor's own log rotates on the same
// reasonable schedule.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes where and how the supervisor's own log is written. An
// empty Path logs to stderr with no rotation.
type Config struct {
	Path       string
	Format     Format
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New builds the operational logger described by c.
func New(c Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if c.Path != "" {
		w = &lj.Logger{
			Filename:   c.Path,
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}
	}

	opts := &slog.HandlerOptions{Level: c.Level}
	var h slog.Handler
	switch c.Format {
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	case FormatColor:
		h = NewColorTextHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
