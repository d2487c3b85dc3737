package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return &Logger{logger: zerolog.New(buf), service: "test"}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, m)
	}
	return entries
}

func TestWriteLevels(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LevelCritical, "fatal"},
		{"WARN", "warn"},
		{"bogus", "error"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		l := newBufferLogger(&buf)
		l.Write(tt.level, "", "", "msg", nil)

		entries := decodeLines(t, &buf)
		if len(entries) != 1 {
			t.Fatalf("%s: expected 1 entry, got %d", tt.level, len(entries))
		}
		if got := entries[0]["level"]; got != tt.want {
			t.Errorf("Write(%q) logged at %v, want %s", tt.level, got, tt.want)
		}
	}
}

func TestCriticalDoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	// Reaching this point at all means Write did not call os.Exit.
	l.Write(LevelCritical, "memory", "allocate", "out of memory", nil)
	if len(decodeLines(t, &buf)) != 1 {
		t.Error("critical entry not written")
	}
}

func TestWriteFields(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.Write(LevelError, "news", "fetch_headlines", "connection refused", map[string]any{
		"kind":      "NETWORK",
		"retryable": true,
		"attempt":   2,
	})

	entries := decodeLines(t, &buf)
	e := entries[0]
	if e["component"] != "news" || e["operation"] != "fetch_headlines" {
		t.Errorf("component/operation = %v/%v", e["component"], e["operation"])
	}
	if e["message"] != "connection refused" {
		t.Errorf("message = %v", e["message"])
	}
	if e["kind"] != "NETWORK" || e["retryable"] != true {
		t.Errorf("metadata not flattened into the entry: %v", e)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).WithComponent("scheduler")
	l.Info("tick")

	e := decodeLines(t, &buf)[0]
	if e["component"] != "scheduler" {
		t.Errorf("component = %v, want scheduler", e["component"])
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).
		WithFields(map[string]any{"region": "us-east"}).
		WithError(errTest)
	l.Error("failed")

	e := decodeLines(t, &buf)[0]
	if e["region"] != "us-east" {
		t.Errorf("region = %v", e["region"])
	}
	if e["error"] != "test failure" {
		t.Errorf("error = %v", e["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{logger: zerolog.New(&buf).Level(zerolog.WarnLevel)}

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("visible")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["message"] != "visible" {
		t.Errorf("expected only the warn entry, got %v", entries)
	}
}

func TestFieldsHelper(t *testing.T) {
	m := Fields("op", "fetch", "attempts", 2)
	if m["op"] != "fetch" || m["attempts"] != 2 {
		t.Errorf("unexpected map: %v", m)
	}

	// Odd trailing value and non-string keys are dropped.
	m = Fields("a", 1, "dangling")
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestNewHonorsConfig(t *testing.T) {
	cfg := &Config{Level: "debug", Format: "json", Output: "stderr", Timestamp: true}
	l := New(cfg, "faultkit")
	if l.GetLogger().GetLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", l.GetLogger().GetLevel())
	}

	cfg = &Config{Level: "not-a-level", Format: "json", Output: "stderr"}
	l = New(cfg, "")
	if l.GetLogger().GetLevel() != zerolog.InfoLevel {
		t.Errorf("invalid level should fall back to info, got %v", l.GetLogger().GetLevel())
	}
}

var errTest = errTestType{}

type errTestType struct{}

func (errTestType) Error() string { return "test failure" }
