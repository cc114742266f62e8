//go:build !windows

package osadapter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"

	"github.com/haribo256/process-orchestrator/internal/handle"
	"github.com/haribo256/process-orchestrator/internal/spec"
)

// osProcess is the concrete handle.Process kept inside a live handle.Handle
// on Unix. It owns the *exec.Cmd for the lifetime of the child.
type osProcess struct {
	cmd *exec.Cmd
	pid int
}

func (p *osProcess) Pid() int { return p.pid }

// Unix is the OS Adapter for Linux/Darwin/BSD. Each child is placed in its
// own process group (Setpgid) so a graceful interrupt or forcible kill can
// target the whole group, not just the immediate child, the same way the
// teacher repo signals process groups rather than single pids.
type Unix struct{}

// New returns the OS Adapter for the running platform.
func New() Adapter { return &Unix{} }

func (Unix) Spawn(s spec.Spec, id string, onExit func()) (SpawnResult, error) {
	cmd := exec.Command(s.Executable, s.Arguments...) // #nosec G204 -- executable/arguments come from a loaded, operator-controlled Spec
	if s.WorkingDirectory != "" {
		cmd.Dir = s.WorkingDirectory
	}
	if env := s.Environ(); env != nil {
		cmd.Env = env
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var logFile *os.File
	if s.LogFile != "" {
		f, err := os.OpenFile(s.LogFile, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return SpawnResult{}, fmt.Errorf("open log file %q: %w", s.LogFile, err)
		}
		logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
	} else {
		cmd.Stdout = nil
		cmd.Stderr = nil
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return SpawnResult{}, fmt.Errorf("spawn %q: %w", s.Name, err)
	}

	proc := &osProcess{cmd: cmd, pid: cmd.Process.Pid}
	reg := newExitRegistration()
	go func() {
		_ = cmd.Wait()
		reg.fire(onExit)
	}()

	var closer io.Closer
	if logFile != nil {
		closer = logFile
	}
	return SpawnResult{Process: proc, LogFile: closer, ExitReg: reg}, nil
}

func (Unix) IsRunning(p handle.Process) bool {
	op, ok := p.(*osProcess)
	if !ok || op == nil || op.pid <= 0 {
		return false
	}
	if isZombie(op.pid) {
		return false
	}
	return syscall.Kill(op.pid, 0) == nil
}

func (Unix) PollMetrics(p handle.Process) (*float64, *float64) {
	op, ok := p.(*osProcess)
	if !ok || op == nil || op.pid <= 0 {
		return nil, nil
	}
	gp, err := gopsproc.NewProcess(int32(op.pid))
	if err != nil {
		return nil, nil
	}

	var memMB *float64
	if mi, err := gp.MemoryInfo(); err == nil && mi != nil {
		v := float64(mi.RSS) / (1024 * 1024)
		memMB = &v
	}

	var uptime *float64
	if startMs, err := gp.CreateTime(); err == nil && startMs > 0 {
		elapsed := time.Since(time.UnixMilli(startMs)).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		uptime = &elapsed
	}
	return memMB, uptime
}

func (Unix) SignalGracefulInterrupt(p handle.Process) {
	op, ok := p.(*osProcess)
	if !ok || op == nil || op.pid <= 0 {
		return
	}
	// Signal the whole process group so children spawned by the child are
	// reached too.
	_ = syscall.Kill(-op.pid, syscall.SIGINT)
	// Give the platform interrupt a brief window to propagate before the
	// engine dispatches its next event; this only delays the calling
	// goroutine, never engine state mutation.
	time.Sleep(200 * time.Millisecond)
}

func (Unix) ForciblyTerminate(p handle.Process) {
	op, ok := p.(*osProcess)
	if !ok || op == nil || op.pid <= 0 {
		return
	}
	_ = syscall.Kill(-op.pid, syscall.SIGKILL)
}

// isZombie reports whether pid is a zombie on Linux, where a quickly-exiting
// child can still answer Kill(pid, 0) successfully until its parent reaps
// it. Returns false (not a zombie, or unknown) on any read error, including
// on non-Linux platforms where /proc is absent.
func isZombie(pid int) bool {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
