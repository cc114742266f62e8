package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDefaultsToStderrText(t *testing.T) {
	l := New(Config{})
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewJSONFormat(t *testing.T) {
	l := New(Config{Format: FormatJSON})
	l.Info("hello")
}

func TestNewColorFormat(t *testing.T) {
	l := New(Config{Format: FormatColor})
	l.Warn("careful")
}

func TestNewWithRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orchestrator.log")
	l := New(Config{Path: path, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 1})
	l.Info("written to file")

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to be created at %s: %v", path, err)
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.log")
	l := New(Config{Path: path, Level: slog.LevelWarn})
	l.Debug("should be filtered")
	l.Warn("should appear")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if len(content) == 0 {
		t.Fatal("expected some log output")
	}
	if strings.Contains(content, "should be filtered") {
		t.Fatalf("debug record written despite warn level: %q", content)
	}
}
