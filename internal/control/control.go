// Package control turns OS interrupt signals into an engine ControlSource.
package control

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// NotifyOnInterrupt is an engine.ControlSource: it blocks until
// SIGINT/SIGTERM arrives, then calls requestStop. If ctx is cancelled
// first, it returns without calling requestStop.
// Calling requestStop more than once (e.g. a second signal while the first
// is still being processed) must be idempotent; that guarantee lives in
// the engine itself, not here.
func NotifyOnInterrupt(ctx context.Context, requestStop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)
	select {
	case <-ch:
		requestStop()
	case <-ctx.Done():
	}
}

// Manual is a ControlSource driven by an explicit Trigger call, for tests
// and for hosts (e.g. Windows service control) that receive their stop
// request through something other than a Unix signal.
type Manual struct {
	once sync.Once
	ch   chan struct{}
}

// NewManual returns a ready-to-use Manual control source.
func NewManual() *Manual {
	return &Manual{ch: make(chan struct{})}
}

// Run blocks until Trigger is called, then calls requestStop. If ctx is
// cancelled first, it returns without calling requestStop. It matches
// engine.ControlSource.
func (m *Manual) Run(ctx context.Context, requestStop func()) {
	select {
	case <-m.ch:
		requestStop()
	case <-ctx.Done():
	}
}

// Trigger requests a shutdown. Safe to call multiple times or concurrently.
func (m *Manual) Trigger() {
	m.once.Do(func() { close(m.ch) })
}
