package osadapter

import "sync"

// exitRegistration is the concrete handle.ExitRegistration returned by
// Spawn. The wait goroutine started in Spawn calls fire exactly once when
// cmd.Wait returns; the engine calls Unregister exactly once, after it has
// observed ProcessStopped, to guard against the callback still being in
// flight when the handle's context would otherwise be released.
type exitRegistration struct {
	mu        sync.Mutex
	fired     bool
	cancelled bool
}

func newExitRegistration() *exitRegistration {
	return &exitRegistration{}
}

// fire invokes onExit at most once, and never after Unregister has been
// called.
func (r *exitRegistration) fire(onExit func()) {
	r.mu.Lock()
	if r.cancelled || r.fired {
		r.mu.Unlock()
		return
	}
	r.fired = true
	r.mu.Unlock()
	onExit()
}

// Unregister implements handle.ExitRegistration. Idempotent: callers may
// invoke it any number of times, but the engine's contract is to call it
// exactly once.
func (r *exitRegistration) Unregister() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}
