//go:build windows

package osadapter

import (
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

type osProcess struct {
	cmd *exec.Cmd
	pid int
}

func (p *osProcess) Pid() int { return p.pid }

// Windows is the OS Adapter for Windows hosts. There is no process-group
// SIGTERM equivalent; graceful interrupt asks the child's console for a
// CTRL_BREAK_EVENT via its own process group, which requires the child to
// have been started with CREATE_NEW_PROCESS_GROUP.
type Windows struct{}

// New returns the OS Adapter for the running platform.
func New() Adapter { return &Windows{} }

func (Windows) Spawn(s spec.Spec, id string, onExit func()) (SpawnResult, error) {
	cmd := exec.Command(s.Executable, s.Arguments...) // #nosec G204 -- executable/arguments come from a loaded, operator-controlled Spec
	if s.WorkingDirectory != "" {
		cmd.Dir = s.WorkingDirectory
	}
	if env := s.Environ(); env != nil {
		cmd.Env = env
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}

	var logFile *os.File
	if s.LogFile != "" {
		f, err := os.OpenFile(s.LogFile, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return SpawnResult{}, fmt.Errorf("open log file %q: %w", s.LogFile, err)
		}
		logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
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

func (Windows) IsRunning(p handle.Process) bool {
	op, ok := p.(*osProcess)
	if !ok || op == nil || op.pid <= 0 {
		return false
	}
	// os.Process.Signal supports only Kill on Windows, so liveness is
	// queried through gopsutil instead of a signal-0 probe.
	alive, err := gopsproc.PidExists(int32(op.pid))
	return err == nil && alive
}

func (Windows) PollMetrics(p handle.Process) (*float64, *float64) {
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

func (Windows) SignalGracefulInterrupt(p handle.Process) {
	op, ok := p.(*osProcess)
	if !ok || op == nil || op.pid <= 0 {
		return
	}
	// Best-effort: deliver CTRL_BREAK_EVENT to the child's process group.
	// The child must have been started with CREATE_NEW_PROCESS_GROUP for
	// this to reach it instead of the supervisor itself.
	_ = syscall.GenerateConsoleCtrlEvent(syscall.CTRL_BREAK_EVENT, uint32(op.pid))
	time.Sleep(200 * time.Millisecond)
}

func (Windows) ForciblyTerminate(p handle.Process) {
	op, ok := p.(*osProcess)
	if !ok || op == nil || op.pid <= 0 {
		return
	}
	if proc, err := os.FindProcess(op.pid); err == nil {
		_ = proc.Kill()
	}
}
