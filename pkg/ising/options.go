package ising

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nvandessel/hausdorff-ising/internal/logging"
	"github.com/nvandessel/hausdorff-ising/internal/metrics"
	"github.com/nvandessel/hausdorff-ising/internal/montecarlo"
)

// Source is the uniform random stream driving accept/reject decisions.
type Source = montecarlo.Source

// Option configures a Model at construction.
type Option func(*Model)

// WithLogger sets the operational logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logging.OrDiscard(l)
	}
}

// WithMetrics registers the simulation collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *Model) {
		m.metrics = metrics.New(reg)
	}
}

// WithSource injects the master random stream. It takes precedence over
// the seed and survives Reset.
func WithSource(src Source) Option {
	return func(m *Model) {
		m.src = src
	}
}

// WithSeed seeds the master random stream created at each Setup.
func WithSeed(seed int64) Option {
	return func(m *Model) {
		m.seed = seed
	}
}

// WithClock replaces time.Now for sweep timing.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

// WithDecisionLog appends one JSON line per sweep to dir/sweeps.jsonl when
// level is "debug" or "trace". Close releases the file.
func WithDecisionLog(dir, level string) Option {
	return func(m *Model) {
		m.decisions = logging.NewDecisionLogger(dir, level)
	}
}
