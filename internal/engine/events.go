package engine

import "github.com/haribo256/process-orchestrator/internal/spec"

// Kind tags the variant of an Event. The full alphabet mirrors the engine's
// event-sourced design: every state change starts life as one of these
// values arriving off the queue.
type Kind int

const (
	OrchestratorStarting Kind = iota
	OrchestratorTick
	OrchestratorRequestStop
	OrchestratorStopping
	ProcessSpecLoaded
	ProcessRequestStart
	ProcessRequestPoll
	ProcessRequestStop
	ProcessStopped
)

func (k Kind) String() string {
	switch k {
	case OrchestratorStarting:
		return "OrchestratorStarting"
	case OrchestratorTick:
		return "OrchestratorTick"
	case OrchestratorRequestStop:
		return "OrchestratorRequestStop"
	case OrchestratorStopping:
		return "OrchestratorStopping"
	case ProcessSpecLoaded:
		return "ProcessSpecLoaded"
	case ProcessRequestStart:
		return "ProcessRequestStart"
	case ProcessRequestPoll:
		return "ProcessRequestPoll"
	case ProcessRequestStop:
		return "ProcessRequestStop"
	case ProcessStopped:
		return "ProcessStopped"
	default:
		return "Unknown"
	}
}

// Event is the single tagged-union type carried by the queue. Only the
// fields relevant to Kind are populated; the others are left zero.
type Event struct {
	Kind Kind

	Spec spec.Spec // ProcessSpecLoaded
	Name string    // ProcessRequestStart
	ID   string    // ProcessRequestPoll, ProcessRequestStop, ProcessStopped
}
