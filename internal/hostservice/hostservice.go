// Package hostservice adapts the engine to whatever process hosts it. The
// only shipped adapter runs the engine directly in the current process;
// the interface exists so a platform-specific host (a Windows service
// handler, for instance) could wrap the same engine without the engine
// package knowing about it.
package hostservice

import (
	"context"
	"log/slog"

	"github.com/haribo256/process-orchestrator/internal/engine"
)

// Adapter runs an Engine under whatever host is supervising this process.
type Adapter interface {
	Run(ctx context.Context, eng *engine.Engine) error
}

// Standalone runs the engine directly: Run blocks until the engine's own
// Run returns, logging the running/stopped transition at info level.
type Standalone struct {
	Logger *slog.Logger
}

// NewStandalone returns a Standalone adapter. A nil logger falls back to
// slog.Default().
func NewStandalone(logger *slog.Logger) *Standalone {
	if logger == nil {
		logger = slog.Default()
	}
	return &Standalone{Logger: logger}
}

// Run implements Adapter.
func (s *Standalone) Run(ctx context.Context, eng *engine.Engine) error {
	s.Logger.Info("host service running")
	err := eng.Run(ctx)
	if err != nil {
		s.Logger.Error("host service stopped", "error", err)
	} else {
		s.Logger.Info("host service stopped")
	}
	return err
}
