package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"agrovision/internal/config"
)

func TestNewLogger_WritesPerLevelFiles(t *testing.T) {
	cfg := &config.Config{LogDirectory: filepath.Join(t.TempDir(), "logs"), LogLevel: "info"}

	l, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	l.Info("Animal %d detected", 3)
	l.Warning("queue full for marker %d", 4)
	l.Error("write failed: %v", "boom")
	l.Debug("hidden at info level")
	l.Sync() //nolint:errcheck

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(cfg.LogDirectory, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(data)
	}

	info := read(InfoFile)
	if !strings.Contains(info, "Animal 3 detected") {
		t.Errorf("info.log missing info entry: %q", info)
	}
	if strings.Contains(info, "queue full") || strings.Contains(info, "hidden") {
		t.Errorf("info.log should only hold info entries: %q", info)
	}
	if warn := read(WarningFile); !strings.Contains(warn, "queue full for marker 4") {
		t.Errorf("warning.log missing warning entry: %q", warn)
	}
	if errLog := read(ErrorFile); !strings.Contains(errLog, "write failed: boom") {
		t.Errorf("error.log missing error entry: %q", errLog)
	}
}

func TestNewLogger_ErrorLevelSkipsLowerFiles(t *testing.T) {
	cfg := &config.Config{LogDirectory: t.TempDir(), LogLevel: "error"}

	l, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	l.Info("should not be written")
	l.Sync() //nolint:errcheck

	data, err := os.ReadFile(filepath.Join(cfg.LogDirectory, InfoFile))
	if err != nil {
		t.Fatalf("read info.log: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty info.log at error level, got %q", data)
	}
}

func TestCleanLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir, LogLevel: "warning"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Sync() //nolint:errcheck

	l.Error("something broke")
	if err := l.CleanLogs(ErrorFile); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, ErrorFile))
	if err != nil {
		t.Fatalf("stat error.log: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected truncated error.log, got %d bytes", info.Size())
	}
}

func TestNew_WithObserver(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	l := New(core).With("run_id", "abc")

	l.Info("Animal %d detected", 7)
	l.Debug("dropped")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "Animal 7 detected" {
		t.Errorf("Unexpected message %q", entries[0].Message)
	}
	if fields := entries[0].ContextMap(); fields["run_id"] != "abc" {
		t.Errorf("Expected run_id field, got %v", fields)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "debug",
		"WARNING": "warn",
		"warn":    "warn",
		"error":   "error",
		"":        "info",
		"bogus":   "info",
	}
	for input, want := range tests {
		if got := parseLevel(input).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, expected %s", input, got, want)
		}
	}
}
