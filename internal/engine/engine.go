// Package engine implements the supervision engine: the single-threaded
// event loop, the per-process state machine, and the recycle policy
// described by the supervisor's specification. It is the only package that
// mutates process specs and live-handle state; every other producer only
// ever enqueues events.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/haribo256/process-orchestrator/internal/handle"
	"github.com/haribo256/process-orchestrator/internal/osadapter"
	"github.com/haribo256/process-orchestrator/internal/queue"
	"github.com/haribo256/process-orchestrator/internal/spec"
)

// Loader returns the ordered set of process specs to supervise. It is
// called exactly once, during OrchestratorStarting.
type Loader interface {
	Load() ([]spec.Spec, error)
}

// Recorder observes engine lifecycle transitions for metrics. A nil
// Recorder is never dereferenced: every call site on Engine is guarded.
type Recorder interface {
	IncStart(name string)
	IncStop(name string)
	IncRecycle(name, reason string)
	IncRestart(name string)
	IncSpawnFailure(name string)
	SetLiveCount(n int)
	ObserveMemoryMB(name string, v float64)
	ObserveUptimeSeconds(name string, v float64)
}

// HistorySink persists lifecycle events. A nil HistorySink is never
// dereferenced.
type HistorySink interface {
	RecordStart(ctx context.Context, name, id string, pid int, startedAt time.Time) error
	RecordStop(ctx context.Context, name, id string, stoppedAt time.Time, cause string) error
}

// ControlSource wires a single class of host signal into the engine's
// RequestStop. It is started once, from the OrchestratorStarting handler,
// and must stop on its own once ctx is cancelled.
type ControlSource func(ctx context.Context, requestStop func())

// TickSource emits tick at roughly the configured cadence until ctx is
// cancelled.
type TickSource func(ctx context.Context, interval time.Duration, tick func())

// Engine is the single consumer of its event Queue. Every field below is
// mutated only from inside the dispatch loop running in Run; producers
// (tick, control, exit callbacks) only ever call Enqueue/RequestStop, which
// are channel sends and therefore safe from any goroutine.
type Engine struct {
	adapter      osadapter.Adapter
	loader       Loader
	metrics      Recorder
	history      HistorySink
	log          *slog.Logger
	tickInterval time.Duration
	startControl []ControlSource
	startTick    TickSource

	q   *queue.Queue[Event]
	ctx context.Context

	specs      map[string]spec.Spec
	live       map[string]*handle.Handle
	liveByName map[string]string

	stopRequested bool
	stopped       bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

func WithAdapter(a osadapter.Adapter) Option { return func(e *Engine) { e.adapter = a } }
func WithLoader(l Loader) Option             { return func(e *Engine) { e.loader = l } }
func WithMetrics(r Recorder) Option          { return func(e *Engine) { e.metrics = r } }
func WithHistory(h HistorySink) Option       { return func(e *Engine) { e.history = h } }
func WithLogger(l *slog.Logger) Option       { return func(e *Engine) { e.log = l } }
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}
func WithTickSource(t TickSource) Option { return func(e *Engine) { e.startTick = t } }
func WithControlSource(c ControlSource) Option {
	return func(e *Engine) { e.startControl = append(e.startControl, c) }
}
func WithQueueCapacity(n int) Option {
	return func(e *Engine) { e.q = queue.New[Event](n) }
}

// New builds an Engine ready to Run. adapter and loader are required;
// sensible defaults are used for everything else.
func New(adapter osadapter.Adapter, loader Loader, opts ...Option) *Engine {
	e := &Engine{
		adapter:      adapter,
		loader:       loader,
		log:          slog.Default(),
		tickInterval: time.Second,
		specs:        make(map[string]spec.Spec),
		live:         make(map[string]*handle.Handle),
		liveByName:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.q == nil {
		e.q = queue.New[Event](256)
	}
	return e
}

// Enqueue places an event on the engine's queue. Safe to call from any
// goroutine.
func (e *Engine) Enqueue(ev Event) { e.q.Send(ev) }

// RequestStop enqueues OrchestratorRequestStop. It is the single entry
// point every control source (signals, host-service stop, tests) uses to
// begin shutdown; repeated calls are idempotent once stop_requested
// latches true.
func (e *Engine) RequestStop() { e.Enqueue(Event{Kind: OrchestratorRequestStop}) }

// LiveCount returns the number of currently live handles. Intended for
// tests and diagnostics; never called from inside the dispatch loop since
// the loop already has direct access to e.live.
func (e *Engine) LiveCount() int { return len(e.live) }

// Run seeds the queue with OrchestratorStarting and processes events until
// OrchestratorStopping is dispatched or the queue is closed. Cancelling ctx
// stops the tick and control sources but does not by itself end Run;
// shutdown goes through RequestStop. A fatal error during
// OrchestratorStarting (spec load failure) aborts the run and is returned;
// every other handler error is logged and the loop continues, per the
// engine's error-handling design.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	e.Enqueue(Event{Kind: OrchestratorStarting})

	for {
		ev, ok := e.q.Receive()
		if !ok {
			return nil
		}
		e.log.Debug("dispatching event", "kind", ev.Kind.String(), "name", ev.Name, "id", ev.ID)
		if err := e.dispatch(ev); err != nil {
			e.log.Error("event handler failed", "kind", ev.Kind.String(), "err", err)
			if ev.Kind == OrchestratorStarting {
				return err
			}
		}
		if e.stopped {
			return nil
		}
	}
}

func (e *Engine) dispatch(ev Event) error {
	switch ev.Kind {
	case OrchestratorStarting:
		return e.onStarting()
	case OrchestratorTick:
		e.onTick()
		return nil
	case OrchestratorRequestStop:
		e.onOrchestratorRequestStop()
		return nil
	case OrchestratorStopping:
		e.stopped = true
		e.log.Info("orchestrator stopping")
		return nil
	case ProcessSpecLoaded:
		e.onSpecLoaded(ev.Spec)
		return nil
	case ProcessRequestStart:
		return e.onRequestStart(ev.Name)
	case ProcessRequestPoll:
		e.onRequestPoll(ev.ID)
		return nil
	case ProcessRequestStop:
		e.onProcessRequestStop(ev.ID)
		return nil
	case ProcessStopped:
		e.onStopped(ev.ID)
		return nil
	default:
		panic(fmt.Sprintf("engine: unknown event kind %d", ev.Kind))
	}
}

func (e *Engine) onStarting() error {
	for _, start := range e.startControl {
		go start(e.ctx, e.RequestStop)
	}

	specs, err := e.loader.Load()
	if err != nil {
		return fmt.Errorf("load specs: %w", err)
	}
	for _, s := range specs {
		e.Enqueue(Event{Kind: ProcessSpecLoaded, Spec: s})
	}
	e.log.Info("specs loaded", "count", len(specs))

	tickFn := func() { e.Enqueue(Event{Kind: OrchestratorTick}) }
	if e.startTick != nil {
		go e.startTick(e.ctx, e.tickInterval, tickFn)
	} else {
		go defaultTick(e.ctx, e.tickInterval, tickFn)
	}
	return nil
}

func (e *Engine) onSpecLoaded(s spec.Spec) {
	e.specs[s.Name] = s
	e.Enqueue(Event{Kind: ProcessRequestStart, Name: s.Name})
}

func (e *Engine) onRequestStart(name string) error {
	s, known := e.specs[name]
	if !known {
		return nil
	}
	if _, alreadyLive := e.liveByName[name]; alreadyLive {
		return nil
	}
	// A start still queued when shutdown was requested is skipped, so the
	// drain ends with nothing live.
	if e.stopRequested {
		return nil
	}

	id := handle.NewID(name)
	specCopy := s
	res, err := e.adapter.Spawn(s, id, func() { e.Enqueue(Event{Kind: ProcessRequestPoll, ID: id}) })
	if err != nil {
		e.log.Error("spawn failed", "name", name, "err", err)
		if e.metrics != nil {
			e.metrics.IncSpawnFailure(name)
		}
		return nil
	}

	h := &handle.Handle{
		ID:               id,
		Spec:             &specCopy,
		OSProcess:        res.Process,
		LogFile:          res.LogFile,
		ExitRegistration: res.ExitReg,
	}
	e.live[id] = h
	e.liveByName[name] = id

	e.log.Info("process started", "name", name, "id", id, "pid", h.Pid())
	if e.metrics != nil {
		e.metrics.IncStart(name)
		e.metrics.SetLiveCount(len(e.live))
	}
	if e.history != nil {
		_ = e.history.RecordStart(e.ctx, name, id, h.Pid(), time.Now())
	}
	return nil
}

func (e *Engine) onTick() {
	ids := e.sortedLiveIDs()

	for _, id := range ids {
		h := e.live[id]
		mem, uptime := e.adapter.PollMetrics(h.OSProcess)
		h.LastMemoryMB, h.LastUptimeSeconds = mem, uptime
		if e.metrics != nil {
			if mem != nil {
				e.metrics.ObserveMemoryMB(h.Spec.Name, *mem)
			}
			if uptime != nil {
				e.metrics.ObserveUptimeSeconds(h.Spec.Name, *uptime)
			}
		}
	}

	for _, id := range ids {
		h, ok := e.live[id]
		if !ok {
			continue // defensive: the polling pass above never removes handles
		}
		if reason, recycle := e.recycleReason(h); recycle {
			e.log.Info("recycle threshold reached", "name", h.Spec.Name, "id", id, "reason", reason)
			if e.metrics != nil {
				e.metrics.IncRecycle(h.Spec.Name, reason)
			}
			e.Enqueue(Event{Kind: ProcessRequestStop, ID: id})
		}
	}
}

func (e *Engine) onRequestPoll(id string) {
	h, ok := e.live[id]
	if !ok {
		return
	}
	if !e.adapter.IsRunning(h.OSProcess) {
		e.Enqueue(Event{Kind: ProcessStopped, ID: id})
		return
	}
	mem, uptime := e.adapter.PollMetrics(h.OSProcess)
	h.LastMemoryMB, h.LastUptimeSeconds = mem, uptime
	if reason, recycle := e.recycleReason(h); recycle {
		e.log.Info("recycle threshold reached", "name", h.Spec.Name, "id", id, "reason", reason)
		if e.metrics != nil {
			e.metrics.IncRecycle(h.Spec.Name, reason)
		}
		e.Enqueue(Event{Kind: ProcessRequestStop, ID: id})
	}
}

func (e *Engine) onProcessRequestStop(id string) {
	h, ok := e.live[id]
	if !ok {
		return
	}
	switch h.Spec.ResolvedStopMethod() {
	case spec.StopGracefulInterrupt:
		e.adapter.SignalGracefulInterrupt(h.OSProcess)
	default:
		e.adapter.ForciblyTerminate(h.OSProcess)
	}
	e.log.Info("stop dispatched", "name", h.Spec.Name, "id", id, "method", h.Spec.ResolvedStopMethod())
}

func (e *Engine) onStopped(id string) {
	h, ok := e.live[id]
	if !ok {
		return
	}
	name := h.Spec.Name

	if h.LogFile != nil {
		_ = h.LogFile.Close()
	}
	if h.ExitRegistration != nil {
		h.ExitRegistration.Unregister()
	}
	h.Reset()

	delete(e.live, id)
	if e.liveByName[name] == id {
		delete(e.liveByName, name)
	}

	e.log.Info("process stopped", "name", name, "id", id)
	if e.metrics != nil {
		e.metrics.IncStop(name)
		e.metrics.SetLiveCount(len(e.live))
	}
	if e.history != nil {
		_ = e.history.RecordStop(e.ctx, name, id, time.Now(), "exited")
	}

	if e.stopRequested {
		if len(e.live) == 0 {
			e.Enqueue(Event{Kind: OrchestratorStopping})
		}
		return
	}
	if e.metrics != nil {
		e.metrics.IncRestart(name)
	}
	e.Enqueue(Event{Kind: ProcessRequestStart, Name: name})
}

func (e *Engine) onOrchestratorRequestStop() {
	if e.stopRequested {
		return
	}
	e.stopRequested = true
	e.log.Info("stop requested", "live", len(e.live))

	if len(e.live) == 0 {
		e.Enqueue(Event{Kind: OrchestratorStopping})
		return
	}
	for _, id := range e.sortedLiveIDs() {
		e.Enqueue(Event{Kind: ProcessRequestStop, ID: id})
	}
}

// recycleReason reports whether h currently requires recycling and, if so,
// which threshold triggered it. Memory is checked first; when both
// thresholds are crossed simultaneously memory wins, which only affects
// the label attached to logs/metrics, not whether a recycle happens.
func (e *Engine) recycleReason(h *handle.Handle) (reason string, recycle bool) {
	if h.Spec.RequiresMemoryRecycle(h.LastMemoryMB) {
		return "memory", true
	}
	if h.Spec.RequiresDurationRecycle(h.LastUptimeSeconds) {
		return "duration", true
	}
	return "", false
}

func (e *Engine) sortedLiveIDs() []string {
	ids := make([]string, 0, len(e.live))
	for id := range e.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func defaultTick(ctx context.Context, interval time.Duration, tick func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}
