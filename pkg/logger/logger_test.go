package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"info":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if DebugLevel.String() != "debug" || ErrorLevel.String() != "error" {
		t.Error("level string round-trip broken")
	}
	if Level(42).String() != "unknown" {
		t.Errorf("unexpected string for invalid level: %s", Level(42).String())
	}
}

func TestSetAndGetLevel(t *testing.T) {
	l := New(&Config{Level: InfoLevel, Format: "text", Output: "stderr"})

	if got := l.GetLevel(); got != InfoLevel {
		t.Errorf("initial level = %v, want info", got)
	}
	l.SetLevel(DebugLevel)
	if got := l.GetLevel(); got != DebugLevel {
		t.Errorf("after SetLevel = %v, want debug", got)
	}
	l.SetLevel(ErrorLevel)
	if got := l.GetLevel(); got != ErrorLevel {
		t.Errorf("after SetLevel = %v, want error", got)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.log")
	l := New(&Config{Level: InfoLevel, Format: "json", Output: path})

	l.Info("hello from test", "key", "value")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing message: %s", data)
	}
	if !strings.Contains(string(data), `"message"`) {
		t.Errorf("expected renamed message key, got: %s", data)
	}
}

func TestWithPreservesLevel(t *testing.T) {
	l := New(&Config{Level: WarnLevel, Format: "text", Output: "stderr"})
	derived := l.With("component", "test")
	if derived.GetLevel() != WarnLevel {
		t.Errorf("derived level = %v, want warn", derived.GetLevel())
	}

	// Derived loggers share the level var.
	l.SetLevel(DebugLevel)
	if derived.GetLevel() != DebugLevel {
		t.Error("derived logger did not follow SetLevel on parent")
	}
}

func TestGlobalLoggerAvailable(t *testing.T) {
	if Global() == nil {
		t.Fatal("global logger not initialized")
	}
}
