package engine

import (
	"fmt"
	"sync"

	"github.com/haribo256/process-orchestrator/internal/handle"
	"github.com/haribo256/process-orchestrator/internal/osadapter"
	"github.com/haribo256/process-orchestrator/internal/spec"
)

// fakeProcess is the fake handle.Process; pid is the only state the engine
// ever reads off it, and the only way the fake adapter's other methods
// find their way back to the id a test thinks in terms of.
type fakeProcess struct {
	pid int
}

func (p *fakeProcess) Pid() int { return p.pid }

// fakeExitReg is a fake handle.ExitRegistration that panics on a double
// Unregister, so tests catch the engine leaking or double-freeing one.
type fakeExitReg struct {
	mu           sync.Mutex
	unregistered bool
}

func (r *fakeExitReg) Unregister() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unregistered {
		panic("exit registration unregistered twice")
	}
	r.unregistered = true
}

// fakeLogFile is a fake io.Closer standing in for a spawned child's log
// file handle.
type fakeLogFile struct {
	closed bool
}

func (f *fakeLogFile) Close() error {
	f.closed = true
	return nil
}

// fakeAdapter is a scriptable osadapter.Adapter. Every call is keyed by
// the id the engine minted for the spawn attempt; a test reaches in via
// killByID/setMetrics to drive behavior the real OS would otherwise
// produce (an unsolicited exit, a memory or uptime sample).
type fakeAdapter struct {
	mu sync.Mutex

	nextPid int
	spawns  map[string]int // spec name -> spawn count, for restart-law assertions

	idByPid map[int]string
	live    map[string]bool // id -> still alive per the fake OS

	memoryMB      map[string]*float64
	uptimeSeconds map[string]*float64

	onExit map[string]func()

	failSpawnFor map[string]bool

	stopsGraceful []string
	stopsForcible []string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		spawns:        make(map[string]int),
		idByPid:       make(map[int]string),
		live:          make(map[string]bool),
		memoryMB:      make(map[string]*float64),
		uptimeSeconds: make(map[string]*float64),
		onExit:        make(map[string]func()),
		failSpawnFor:  make(map[string]bool),
	}
}

func (a *fakeAdapter) Spawn(s spec.Spec, id string, onExit func()) (osadapter.SpawnResult, error) {
	a.mu.Lock()
	if a.failSpawnFor[s.Name] {
		a.mu.Unlock()
		return osadapter.SpawnResult{}, fmt.Errorf("fake spawn failure for %s", s.Name)
	}

	a.nextPid++
	pid := a.nextPid
	a.spawns[s.Name]++
	a.idByPid[pid] = id
	a.live[id] = true
	a.onExit[id] = onExit
	a.mu.Unlock()

	return osadapter.SpawnResult{
		Process: &fakeProcess{pid: pid},
		LogFile: &fakeLogFile{},
		ExitReg: &fakeExitReg{},
	}, nil
}

func (a *fakeAdapter) IsRunning(p handle.Process) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.idByPid[p.Pid()]
	return a.live[id]
}

func (a *fakeAdapter) PollMetrics(p handle.Process) (*float64, *float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.idByPid[p.Pid()]
	return a.memoryMB[id], a.uptimeSeconds[id]
}

// SignalGracefulInterrupt and ForciblyTerminate both simulate the child
// exiting in response, then fire its exit callback, the way a real exit-wait
// thread eventually would once the OS reaps it.
func (a *fakeAdapter) SignalGracefulInterrupt(p handle.Process) {
	a.mu.Lock()
	id := a.idByPid[p.Pid()]
	a.stopsGraceful = append(a.stopsGraceful, id)
	a.live[id] = false
	onExit := a.onExit[id]
	a.mu.Unlock()
	if onExit != nil {
		onExit()
	}
}

func (a *fakeAdapter) ForciblyTerminate(p handle.Process) {
	a.mu.Lock()
	id := a.idByPid[p.Pid()]
	a.stopsForcible = append(a.stopsForcible, id)
	a.live[id] = false
	onExit := a.onExit[id]
	a.mu.Unlock()
	if onExit != nil {
		onExit()
	}
}

// killByID simulates an unsolicited exit: the fake OS marks the process
// dead and fires its registered exit callback, exactly as a real exit-wait
// thread would.
func (a *fakeAdapter) killByID(id string) {
	a.mu.Lock()
	a.live[id] = false
	onExit := a.onExit[id]
	a.mu.Unlock()
	if onExit != nil {
		onExit()
	}
}

func (a *fakeAdapter) setMetrics(id string, memoryMB, uptimeSeconds *float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memoryMB[id] = memoryMB
	a.uptimeSeconds[id] = uptimeSeconds
}

func (a *fakeAdapter) setFailSpawn(name string, fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failSpawnFor[name] = fail
}

func (a *fakeAdapter) spawnCount(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.spawns[name]
}

func (a *fakeAdapter) idsFor(name string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ids []string
	for pid, id := range a.idByPid {
		_ = pid
		if len(id) > len(name) && id[:len(name)+1] == name+"-" {
			ids = append(ids, id)
		}
	}
	return ids
}
