// Package osadapter is the thin abstraction over platform primitives the
// engine uses to spawn, observe, and stop children. It is the only package
// that touches raw OS process handles; the engine never calls os/exec or
// syscall directly.
package osadapter

import (
	"io"

	"github.com/haribo256/process-orchestrator/internal/handle"
	"github.com/haribo256/process-orchestrator/internal/spec"
)

// SpawnResult bundles everything the engine must retain about a freshly
// spawned child: its owned process handle, an optional owned log file, and
// the token needed to unregister its one-shot exit wait later.
type SpawnResult struct {
	Process handle.Process
	LogFile io.Closer
	ExitReg handle.ExitRegistration
}

// Adapter is implemented once per platform (see unix.go / windows.go) and
// is faked in engine tests (see engine's fake_adapter_test.go) to drive the
// state machine without touching real OS processes.
type Adapter interface {
	// Spawn launches spec with arguments, environment, working directory
	// and output redirection as described, and registers a one-shot
	// exit wait that invokes onExit exactly once when the child exits.
	// onExit must be safe to call from an arbitrary goroutine; its only
	// job is to enqueue a poll event, never to touch engine state
	// directly.
	Spawn(s spec.Spec, id string, onExit func()) (SpawnResult, error)

	// IsRunning reports whether the OS still considers p alive.
	IsRunning(p handle.Process) bool

	// PollMetrics returns resident memory in mebibytes and wall-clock
	// uptime in seconds. Either may be nil if the OS query failed; a
	// query failure is never returned as an error, and neither the
	// adapters nor the engine log it.
	PollMetrics(p handle.Process) (memoryMB *float64, uptimeSeconds *float64)

	// SignalGracefulInterrupt delivers a platform "polite stop" signal.
	// Best-effort: it does not wait for the child to exit.
	SignalGracefulInterrupt(p handle.Process)

	// ForciblyTerminate requests immediate termination. The caller must
	// still wait for the exit notification before reaping the handle.
	ForciblyTerminate(p handle.Process)
}
