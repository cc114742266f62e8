// Package specload implements the spec loader: a directory of TOML files,
// one process spec per file, decoded with viper and mapstructure the way
// the teacher repo decodes its own program directory entries.
package specload

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/haribo256/process-orchestrator/internal/spec"
)

// DirLoader implements engine.Loader by reading every *.toml file directly
// under Dir as one process spec. It never recurses into subdirectories and
// silently skips hidden files, matching the teacher's programs-directory
// convention.
type DirLoader struct {
	Dir string
}

// NewDirLoader returns a DirLoader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Dir: dir}
}

// Load reads and validates every spec file in Dir, returning them sorted
// by Priority then Name so that iteration order is reproducible across
// runs even though the filesystem directory listing itself is not
// guaranteed to be ordered in any particular way.
func (l *DirLoader) Load() ([]spec.Spec, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("specload: read %s: %w", l.Dir, err)
	}

	var specs []spec.Spec
	seen := make(map[string]string) // name -> source file, for duplicate detection
	for _, de := range entries {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		if strings.ToLower(filepath.Ext(de.Name())) != ".toml" {
			continue
		}

		full := filepath.Join(l.Dir, de.Name())
		s, err := decodeFile(full)
		if err != nil {
			return nil, fmt.Errorf("specload: %s: %w", full, err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("specload: %s: %w", full, err)
		}
		if prior, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("specload: duplicate spec name %q in %s and %s", s.Name, prior, full)
		}
		seen[s.Name] = full
		specs = append(specs, s)
	}

	sort.SliceStable(specs, func(i, j int) bool {
		if specs[i].Priority != specs[j].Priority {
			return specs[i].Priority < specs[j].Priority
		}
		return specs[i].Name < specs[j].Name
	})
	return specs, nil
}

func decodeFile(path string) (spec.Spec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return spec.Spec{}, fmt.Errorf("read: %w", err)
	}
	var s spec.Spec
	if err := v.Unmarshal(&s); err != nil {
		return spec.Spec{}, fmt.Errorf("decode: %w", err)
	}
	return s, nil
}
