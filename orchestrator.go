// Package orchestrator is a thin embeddable facade over internal/engine,
// the way the teacher repo exposes its process.Manager through a root
// package for callers that want to drive the supervisor from their own
// process rather than through cmd/orchestratord.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/haribo256/process-orchestrator/internal/control"
	"github.com/haribo256/process-orchestrator/internal/engine"
	"github.com/haribo256/process-orchestrator/internal/history"
	"github.com/haribo256/process-orchestrator/internal/osadapter"
	"github.com/haribo256/process-orchestrator/internal/spec"
	"github.com/haribo256/process-orchestrator/internal/specload"
)

// Re-exported core types for external consumers. These are aliases, so
// conversions to/from the internal types are zero-cost.
type (
	Spec        = spec.Spec
	StopMethod  = spec.StopMethod
	HistorySink = engine.HistorySink
	Recorder    = engine.Recorder
)

const (
	StopGracefulInterrupt = spec.StopGracefulInterrupt
	StopForcibleTerminate = spec.StopForcibleTerminate
)

// Orchestrator wraps an *engine.Engine behind a stable public surface.
type Orchestrator struct {
	eng *engine.Engine
}

// Option configures an Orchestrator at construction time.
type Option func(*engine.Engine)

func WithLogger(l *slog.Logger) Option    { return func(e *engine.Engine) { engine.WithLogger(l)(e) } }
func WithHistory(h HistorySink) Option    { return func(e *engine.Engine) { engine.WithHistory(h)(e) } }
func WithMetrics(r Recorder) Option       { return func(e *engine.Engine) { engine.WithMetrics(r)(e) } }
func WithTickInterval(d time.Duration) Option {
	return func(e *engine.Engine) { engine.WithTickInterval(d)(e) }
}

// NewFromSpecsDir builds an Orchestrator that loads its process specs from
// a directory of *.toml files and supervises them using the platform OS
// adapter. It also wires a SIGINT/SIGTERM control source automatically,
// matching the standalone CLI's behavior.
func NewFromSpecsDir(dir string, opts ...Option) *Orchestrator {
	e := engine.New(osadapter.New(), specload.NewDirLoader(dir), engine.WithControlSource(control.NotifyOnInterrupt))
	for _, opt := range opts {
		opt(e)
	}
	return &Orchestrator{eng: e}
}

// NewFromSpecs builds an Orchestrator from an already-decoded set of specs,
// for embedders that load configuration their own way rather than through
// the directory-of-TOML-files convention.
func NewFromSpecs(specs []Spec, opts ...Option) *Orchestrator {
	e := engine.New(osadapter.New(), staticLoader(specs), engine.WithControlSource(control.NotifyOnInterrupt))
	for _, opt := range opts {
		opt(e)
	}
	return &Orchestrator{eng: e}
}

type staticLoader []Spec

func (l staticLoader) Load() ([]Spec, error) { return l, nil }

// NopHistorySink discards every lifecycle event. It is the default when no
// history sink is configured.
func NopHistorySink() HistorySink { return history.NopSink{} }

// Run blocks until the orchestrator is stopped, either by a call to Stop
// from another goroutine or by SIGINT/SIGTERM through the control source
// wired at construction. Cancelling ctx stops the tick and signal sources
// but does not by itself end Run. It returns the first fatal error
// encountered loading specs, or nil on a clean shutdown.
func (o *Orchestrator) Run(ctx context.Context) error { return o.eng.Run(ctx) }

// Stop requests a graceful shutdown of every supervised process. Safe to
// call multiple times or before Run has started processing events.
func (o *Orchestrator) Stop() { o.eng.RequestStop() }

// LiveCount returns the number of currently live supervised processes.
func (o *Orchestrator) LiveCount() int { return o.eng.LiveCount() }
