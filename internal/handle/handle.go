// Package handle defines the runtime aggregate for one live attempt at
// running a spec.Spec, plus the id scheme used to name each attempt.
package handle

import (
	"crypto/rand"
	"io"

	"github.com/haribo256/process-orchestrator/internal/spec"
)

const idAlphabet = "0123456789abcdef"

// NewID returns "{name}-{random5}" where random5 is five characters drawn
// uniformly from the 16-character hex alphabet. A fresh id is minted per
// spawn attempt so that two handles for the same spec are never confused,
// even across a stop/restart pair.
func NewID(name string) string {
	var buf [5]byte
	_, _ = rand.Read(buf[:])
	suffix := make([]byte, 5)
	for i, b := range buf {
		suffix[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return name + "-" + string(suffix)
}

// ExitRegistration is the opaque token returned by an OS adapter's one-shot
// exit-wait registration. It must be unregistered exactly once, before the
// engine drops the Handle that owns it.
type ExitRegistration interface {
	// Unregister cancels the registration. Safe to call at most once; the
	// engine never calls it twice for the same Handle.
	Unregister()
}

// Process is the minimal view of an owned OS process handle the engine
// needs: its pid. Liveness is not part of it; the engine always asks the
// OS adapter.
type Process interface {
	Pid() int
}

// Handle is the mutable runtime state for one live attempt to run a Spec.
// Every field here is written only by the engine goroutine; no locking is
// required because the engine never shares a Handle with another thread.
type Handle struct {
	ID   string
	Spec *spec.Spec

	OSProcess Process
	LogFile   io.Closer

	ExitRegistration ExitRegistration

	LastMemoryMB      *float64
	LastUptimeSeconds *float64
}

// Pid returns the OS pid, or 0 if the handle has no live OS process.
func (h *Handle) Pid() int {
	if h.OSProcess == nil {
		return 0
	}
	return h.OSProcess.Pid()
}

// Live reports whether the handle currently owns an OS process. Per the
// data-model invariant in the spec, when this is false every other
// OS-derived field (pid, last metrics, exit registration) must also be
// unset; Reset enforces that.
func (h *Handle) Live() bool {
	return h.OSProcess != nil
}

// Reset clears all OS-owned fields. Callers must have already closed the
// log file and unregistered the exit wait; Reset only drops the references
// so double-close/double-unregister cannot happen by mistake.
func (h *Handle) Reset() {
	h.OSProcess = nil
	h.LogFile = nil
	h.ExitRegistration = nil
	h.LastMemoryMB = nil
	h.LastUptimeSeconds = nil
}
