// pattern: Imperative Shell

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestManager(t *testing.T, level string) (*Manager, string) {
	t.Helper()
	logFile := filepath.Join(t.TempDir(), ".reposync", "reposync.log")
	mgr, err := NewManager(Config{
		FilePath:       logFile,
		MaxSizeMB:      10,
		MaxBackups:     3,
		MaxAgeDays:     7,
		Level:          level,
		ChannelBufSize: 100,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr, logFile
}

func TestNewManager_RequiresFilePath(t *testing.T) {
	if _, err := NewManager(Config{}); err == nil {
		t.Fatal("NewManager() with empty FilePath should fail")
	}
}

func TestNewManager_CreatesLogDirectory(t *testing.T) {
	mgr, logFile := newTestManager(t, "info")
	defer func() { _ = mgr.Close() }()

	if _, err := os.Stat(filepath.Dir(logFile)); err != nil {
		t.Fatalf("log directory not created: %v", err)
	}
}

func TestManager_For(t *testing.T) {
	mgr, _ := newTestManager(t, "debug")
	defer func() { _ = mgr.Close() }()

	logger := mgr.For(ProjectScope("main-app"))
	if logger == nil {
		t.Fatal("For() returned nil")
	}
	if logger.Scope() != "project.main-app" {
		t.Errorf("Scope() = %q, want %q", logger.Scope(), "project.main-app")
	}
	if mgr.For(ProjectScope("main-app")) != logger {
		t.Error("For() should return cached logger for same scope")
	}
	if mgr.For(ProjectScope("child-one")) == logger {
		t.Error("For() should return different logger for different scope")
	}
}

func TestManager_LoggingToChannel(t *testing.T) {
	mgr, _ := newTestManager(t, "debug")
	defer func() { _ = mgr.Close() }()

	mgr.For("runner").Info("command finished", "command", "git pull", "success", true)
	_ = mgr.Sync()

	select {
	case entry := <-mgr.Entries():
		if entry.Message != "command finished" {
			t.Errorf("Message = %q, want %q", entry.Message, "command finished")
		}
		if entry.Scope != "runner" {
			t.Errorf("Scope = %q, want %q", entry.Scope, "runner")
		}
		if entry.Fields["command"] != "git pull" {
			t.Errorf("Fields[command] = %v, want %q", entry.Fields["command"], "git pull")
		}
	default:
		t.Fatal("entry not received on channel after Sync()")
	}
}

func TestManager_LevelFilter(t *testing.T) {
	mgr, _ := newTestManager(t, "warn")
	defer func() { _ = mgr.Close() }()

	logger := mgr.For("app")
	logger.Info("dropped")
	logger.Warn("kept")

	entries := Drain(mgr.Entries())
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Message != "kept" {
		t.Errorf("Message = %q, want %q", entries[0].Message, "kept")
	}
}

func TestManager_LoggingToFile(t *testing.T) {
	mgr, logFile := newTestManager(t, "debug")

	mgr.For(ProjectScope("child-two")).Error("clone failed", "error", "exit status 128")
	_ = mgr.Close()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	for _, want := range []string{"clone failed", "project.child-two", "exit status 128"} {
		if !strings.Contains(content, want) {
			t.Errorf("log file should contain %q, got: %s", want, content)
		}
	}
}

func TestScopedLogger_WithGroup(t *testing.T) {
	lm := NewTestLogManager(10)
	defer func() { _ = lm.Close() }()

	logger := lm.For("app")
	logger.slog.WithGroup("step").Info("grouped", "name", "reconcile")

	select {
	case entry := <-lm.Entries():
		if entry.Fields["step.name"] != "reconcile" {
			t.Errorf("Fields = %v, want step.name=reconcile", entry.Fields)
		}
	default:
		t.Fatal("no entry received")
	}
}

func TestParseZapLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "debug"},
		{"WARN", "warn"},
		{"error", "error"},
		{"", "info"},
		{"verbose", "info"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseZapLevel(tt.input).String(); got != tt.want {
				t.Errorf("parseZapLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
