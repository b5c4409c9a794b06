package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Trace", "Trace", LevelTrace},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level      string
		logAtTrace bool
		logAtDebug bool
	}{
		{"info", false, false},
		{"debug", false, true},
		{"trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Log(t.Context(), LevelTrace, "spin decision")
			if got := strings.Contains(buf.String(), "spin decision"); got != tt.logAtTrace {
				t.Errorf("trace visible = %v, want %v (buf: %q)", got, tt.logAtTrace, buf.String())
			}

			buf.Reset()
			logger.Debug("sweep finished")
			if got := strings.Contains(buf.String(), "sweep finished"); got != tt.logAtDebug {
				t.Errorf("debug visible = %v, want %v (buf: %q)", got, tt.logAtDebug, buf.String())
			}
		})
	}
}

func TestNewLogger_LabelsTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	logger.Log(t.Context(), LevelTrace, "flip", "index", 3)

	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("expected level=TRACE, got %q", buf.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	OrDiscard(nil).Info("dropped")

	var buf bytes.Buffer
	l := NewLogger("info", &buf)
	if OrDiscard(l) != l {
		t.Error("OrDiscard should return a non-nil logger unchanged")
	}
}

func readEvents(t *testing.T, dir string) []SweepEvent {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, DecisionFile))
	if err != nil {
		t.Fatalf("read %s: %v", DecisionFile, err)
	}
	var events []SweepEvent
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev SweepEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestNewDecisionLogger_InfoLevelWritesNothing(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "info")
	if dl != nil {
		t.Fatal("expected nil DecisionLogger at info level")
	}

	dl.LogSweep(SweepEvent{Sweep: 1})
	dl.Close()

	if _, err := os.Stat(filepath.Join(dir, DecisionFile)); err == nil {
		t.Errorf("%s should not exist at info level", DecisionFile)
	}
}

func TestDecisionLogger_WritesSweeps(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "trace")
	dl := NewDecisionLogger(dir, "debug")
	if dl == nil {
		t.Fatal("expected DecisionLogger at debug level")
	}
	defer dl.Close()

	dl.LogSweep(SweepEvent{Sweep: 0, Method: "METROPOLIS", Accepted: 3, Rejected: 5, FreeEnergy: -2.5, Delta: -1.25, Magnetization: 4})
	dl.LogSweep(SweepEvent{Sweep: 1, Method: "HEATBATH", Accepted: 1})

	events := readEvents(t, dir)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	first := events[0]
	if first.Method != "METROPOLIS" || first.Accepted != 3 || first.Rejected != 5 {
		t.Errorf("first event = %+v", first)
	}
	if first.FreeEnergy != -2.5 || first.Delta != -1.25 || first.Magnetization != 4 {
		t.Errorf("first event observables = %+v", first)
	}
	if first.Time == "" {
		t.Error("expected time stamp on event")
	}
	if events[1].Sweep != 1 || events[1].Method != "HEATBATH" {
		t.Errorf("second event = %+v", events[1])
	}

	info, err := os.Stat(filepath.Join(dir, DecisionFile))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestDecisionLogger_LogAfterClose(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "trace")

	dl.LogSweep(SweepEvent{Sweep: 0})
	dl.Close()
	dl.LogSweep(SweepEvent{Sweep: 1})
	dl.Close()

	if events := readEvents(t, dir); len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}
}
