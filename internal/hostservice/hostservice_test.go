package hostservice

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/haribo256/process-orchestrator/internal/engine"
	"github.com/haribo256/process-orchestrator/internal/handle"
	"github.com/haribo256/process-orchestrator/internal/osadapter"
	"github.com/haribo256/process-orchestrator/internal/spec"
)

type emptyLoader struct{}

func (emptyLoader) Load() ([]spec.Spec, error) { return nil, nil }

type noopAdapter struct{}

func (noopAdapter) Spawn(spec.Spec, string, func()) (osadapter.SpawnResult, error) {
	return osadapter.SpawnResult{}, nil
}
func (noopAdapter) IsRunning(handle.Process) bool { return false }
func (noopAdapter) PollMetrics(handle.Process) (*float64, *float64) {
	return nil, nil
}
func (noopAdapter) SignalGracefulInterrupt(handle.Process) {}
func (noopAdapter) ForciblyTerminate(handle.Process)       {}

func TestStandaloneRunReturnsAfterRequestStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eng := engine.New(noopAdapter{}, emptyLoader{})
	s := NewStandalone(slog.Default())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, eng) }()

	time.Sleep(20 * time.Millisecond)
	eng.RequestStop()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after RequestStop/cancel")
	}
}
