// Package logging provides leveled logging and sweep decision tracing for hising.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A DecisionLogger for structured JSONL sweep traces (<dir>/sweeps.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for per-spin logging.
// At this level the engine logs every accept/reject decision.
const LevelTrace = slog.LevelDebug - 4

// DecisionFile is the name of the JSONL file written by DecisionLogger.
const DecisionFile = "sweeps.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OrDiscard returns l, or a logger that drops every record when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}

// SweepEvent is one line of the sweep trace.
type SweepEvent struct {
	Time          string  `json:"time"`
	Sweep         int     `json:"sweep"`
	Method        string  `json:"method"`
	Accepted      int     `json:"accepted"`
	Rejected      int     `json:"rejected"`
	FreeEnergy    float64 `json:"free_energy"`
	Delta         float64 `json:"delta"`
	Magnetization int     `json:"magnetization"`
}

// DecisionLogger appends one SweepEvent per Monte Carlo sweep to a JSONL
// file. It is safe for concurrent use, and a nil *DecisionLogger discards
// everything, so callers never need to check whether tracing is enabled.
type DecisionLogger struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// NewDecisionLogger opens dir/sweeps.jsonl for append when level is "debug"
// or "trace", creating dir if needed. At "info" it returns nil and touches
// nothing on disk; it also returns nil when the file cannot be opened.
func NewDecisionLogger(dir string, level string) *DecisionLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, DecisionFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &DecisionLogger{file: f, now: time.Now}
}

// LogSweep stamps ev with the current UTC time and writes it as one line.
func (dl *DecisionLogger) LogSweep(ev SweepEvent) {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.file == nil {
		return
	}
	ev.Time = dl.now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = dl.file.Write(append(data, '\n'))
}

// Close closes the underlying file. Later LogSweep calls are no-ops.
func (dl *DecisionLogger) Close() {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.file != nil {
		dl.file.Close()
		dl.file = nil
	}
}
