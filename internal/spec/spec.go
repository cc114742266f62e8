// Package spec describes the immutable declaration of a single supervised
// process.
package spec

import (
	"fmt"
	"strings"
)

// StopMethod selects how the engine asks a live process to stop.
type StopMethod string

const (
	// StopGracefulInterrupt delivers a platform interrupt and waits for the
	// child to exit on its own.
	StopGracefulInterrupt StopMethod = "graceful_interrupt"
	// StopForcibleTerminate kills the child outright. This is the default.
	StopForcibleTerminate StopMethod = "forcible_terminate"
)

// Spec is the immutable declaration of one managed process. Specs are
// compared and looked up by Name, which must be unique across a loaded set.
type Spec struct {
	Name                     string            `mapstructure:"name"`
	Executable               string            `mapstructure:"executable"`
	Arguments                []string          `mapstructure:"arguments"`
	WorkingDirectory         string            `mapstructure:"working_directory"`
	LogFile                  string            `mapstructure:"log_file"`
	EnvironmentVariables     map[string]string `mapstructure:"environment_variables"`
	StopMethod               StopMethod        `mapstructure:"stop_method"`
	RecycleOnMemoryMB        *float64          `mapstructure:"recycle_on_memory_mb"`
	RecycleOnDurationSeconds *float64          `mapstructure:"recycle_on_duration_seconds"`

	// Priority orders specs within a loaded set. It carries no dependency
	// or scheduling semantics: it only fixes iteration order for loading,
	// the way the teacher repo uses Spec.Priority for
	// deterministic startup order among otherwise-independent processes.
	Priority int `mapstructure:"priority"`
}

// Validate checks field-level constraints that do not depend on the rest
// of a loaded spec set (uniqueness of Name across a set is checked by the
// loader, not here).
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("spec: name is required")
	}
	if strings.TrimSpace(s.Executable) == "" {
		return fmt.Errorf("spec %q: executable is required", s.Name)
	}
	switch s.StopMethod {
	case "", StopForcibleTerminate, StopGracefulInterrupt:
	default:
		return fmt.Errorf("spec %q: invalid stop_method %q", s.Name, s.StopMethod)
	}
	if s.RecycleOnMemoryMB != nil && *s.RecycleOnMemoryMB <= 0 {
		return fmt.Errorf("spec %q: recycle_on_memory_mb must be positive", s.Name)
	}
	if s.RecycleOnDurationSeconds != nil && *s.RecycleOnDurationSeconds <= 0 {
		return fmt.Errorf("spec %q: recycle_on_duration_seconds must be positive", s.Name)
	}
	return nil
}

// ResolvedStopMethod returns StopMethod with the default applied.
func (s *Spec) ResolvedStopMethod() StopMethod {
	if s.StopMethod == "" {
		return StopForcibleTerminate
	}
	return s.StopMethod
}

// Environ builds the environment the child process should run with.
// When EnvironmentVariables is set it is the complete environment (no
// merge with the supervisor's own environment); otherwise the caller
// should let the child inherit by leaving exec.Cmd.Env nil.
func (s *Spec) Environ() []string {
	if len(s.EnvironmentVariables) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.EnvironmentVariables))
	for k, v := range s.EnvironmentVariables {
		out = append(out, k+"="+v)
	}
	return out
}

// RequiresMemoryRecycle reports whether lastMemoryMB crosses the configured
// memory threshold. A nil threshold or nil sample never triggers recycle.
func (s *Spec) RequiresMemoryRecycle(lastMemoryMB *float64) bool {
	if s.RecycleOnMemoryMB == nil || lastMemoryMB == nil {
		return false
	}
	return *lastMemoryMB > *s.RecycleOnMemoryMB
}

// RequiresDurationRecycle reports whether lastUptimeSeconds crosses the
// configured wall-clock threshold. A nil threshold or nil sample never
// triggers recycle.
func (s *Spec) RequiresDurationRecycle(lastUptimeSeconds *float64) bool {
	if s.RecycleOnDurationSeconds == nil || lastUptimeSeconds == nil {
		return false
	}
	return *lastUptimeSeconds > *s.RecycleOnDurationSeconds
}
