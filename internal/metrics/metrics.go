// Package metrics exposes Prometheus collectors for Monte Carlo runs.
//
// Collectors are registered on the Registerer passed to New, so tests can
// use a private registry and the CLI can use the default one. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors updated by the engine.
type Metrics struct {
	sweeps         *prometheus.CounterVec
	accepted       *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	sweepDuration  *prometheus.HistogramVec
	freeEnergy     prometheus.Gauge
	magnetization  prometheus.Gauge
	workerFailures prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hising_sweeps_total",
			Help: "Completed Monte Carlo sweeps",
		}, []string{"method"}),
		accepted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hising_flips_accepted_total",
			Help: "Accepted spin or block flips",
		}, []string{"method"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hising_flips_rejected_total",
			Help: "Rejected spin or block flips",
		}, []string{"method"}),
		sweepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hising_sweep_duration_seconds",
			Help:    "Wall time of one sweep",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}, []string{"method"}),
		freeEnergy: f.NewGauge(prometheus.GaugeOpts{
			Name: "hising_free_energy",
			Help: "Reduced free energy after the latest sweep",
		}),
		magnetization: f.NewGauge(prometheus.GaugeOpts{
			Name: "hising_magnetization",
			Help: "Magnetization after the latest sweep",
		}),
		workerFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "hising_worker_failures_total",
			Help: "Heat-bath block tasks that returned an error",
		}),
	}
}

// ObserveSweep records one completed sweep.
func (m *Metrics) ObserveSweep(method string, accepted, rejected int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(method).Inc()
	m.accepted.WithLabelValues(method).Add(float64(accepted))
	m.rejected.WithLabelValues(method).Add(float64(rejected))
	m.sweepDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SetState publishes the latest observables.
func (m *Metrics) SetState(freeEnergy float64, magnetization int) {
	if m == nil {
		return
	}
	m.freeEnergy.Set(freeEnergy)
	m.magnetization.Set(float64(magnetization))
}

// WorkerFailures counts failed block tasks.
func (m *Metrics) WorkerFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.workerFailures.Add(float64(n))
}
