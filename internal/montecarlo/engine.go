// Package montecarlo evolves a spin configuration toward equilibrium with
// Metropolis, heat-bath or hybrid sweeps and records a convergence trace.
//
// Metropolis sweeps run on the calling goroutine. Heat-bath sweeps partition
// the active spins into disjoint random blocks and hand them to a fixed pool
// of workers; every block decides against the pre-sweep configuration with
// its own random stream, and the engine commits all decisions after the
// sweep's barrier. The outcome depends on the seed and the block count,
// never on the number of workers.
package montecarlo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/nvandessel/hausdorff-ising/internal/energy"
	"github.com/nvandessel/hausdorff-ising/internal/lattice"
	"github.com/nvandessel/hausdorff-ising/internal/logging"
	"github.com/nvandessel/hausdorff-ising/internal/metrics"
	"github.com/nvandessel/hausdorff-ising/internal/simerr"
)

// State is the engine lifecycle position.
type State int

const (
	Unconfigured State = iota
	Built
	Running
	Idle
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Built:
		return "built"
	case Running:
		return "running"
	case Idle:
		return "idle"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config controls a run. Zero-valued optional fields select defaults.
type Config struct {
	Method  Method
	Steps   int // sweeps per Run, >= 1
	Threads int // heat-bath worker pool size, >= 1

	// Blocks is the number of disjoint subsets per heat-bath sweep.
	// 0 uses Threads.
	Blocks int

	// Seed seeds the master stream when Source is nil.
	Seed   int64
	Source Source

	// Now times sweeps; defaults to time.Now.
	Now func() time.Time

	Logger    *slog.Logger
	Decisions *logging.DecisionLogger
	Metrics   *metrics.Metrics
}

// Validate checks the run parameters.
func (c Config) Validate() error {
	if !c.Method.valid() {
		return simerr.Config("mc_method", c.Method, "valid: METROPOLIS, HEATBATH, HYBRID")
	}
	if c.Steps < 1 {
		return simerr.Config("mc_steps", c.Steps, "must be >= 1")
	}
	if c.Threads < 1 {
		return simerr.Config("threads", c.Threads, "must be >= 1")
	}
	if c.Blocks < 0 {
		return simerr.Config("blocks", c.Blocks, "must be >= 0")
	}
	return nil
}

// Engine owns a spin configuration and the energy model evaluating it.
// It is not safe for concurrent use; the facade serializes access.
type Engine struct {
	cfg    Config
	spins  []lattice.Spin
	active []int
	eval   *energy.Evaluator
	src    Source
	now    func() time.Time
	logger *slog.Logger

	energy float64
	trace  []float64
	state  State
	sweeps int
}

// New takes ownership of spins and prepares an engine in the Built state.
func New(spins []lattice.Spin, params energy.Params, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eval, err := energy.NewEvaluator(spins, params)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		spins:  spins,
		eval:   eval,
		src:    cfg.Source,
		now:    cfg.Now,
		logger: logging.OrDiscard(cfg.Logger),
		state:  Built,
	}
	if e.src == nil {
		e.src = NewSource(cfg.Seed)
	}
	if e.now == nil {
		e.now = time.Now
	}
	for i := range spins {
		if spins[i].Active {
			e.active = append(e.active, i)
		}
	}
	e.energy = eval.FreeEnergy(spins, nil)
	return e, nil
}

type sweepStats struct {
	accepted int
	rejected int
	delta    float64
}

// Run performs cfg.Steps sweeps. The context is checked between sweeps
// only; an abandoned run keeps every sweep completed so far.
func (e *Engine) Run(ctx context.Context) error {
	switch e.state {
	case Built, Idle:
	case Running:
		return fmt.Errorf("%w: run already in progress", simerr.ErrNotSetup)
	default:
		return simerr.ErrNotSetup
	}
	e.state = Running
	defer func() { e.state = Idle }()

	e.energy = e.eval.FreeEnergy(e.spins, nil)

	var workers *pool
	if e.cfg.Method != Metropolis {
		workers = newPool(e.cfg.Threads)
		defer workers.close()
	}

	e.logger.Info("monte carlo run starting",
		"method", e.cfg.Method,
		"steps", e.cfg.Steps,
		"spins", len(e.active),
		"threads", e.cfg.Threads,
		"free_energy", e.energy)

	for sweep := 0; sweep < e.cfg.Steps; sweep++ {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("monte carlo run abandoned", "completed_sweeps", sweep, "error", err)
			return fmt.Errorf("monte carlo run abandoned after %d sweeps: %w", sweep, err)
		}

		start := e.now()
		rule := e.cfg.Method.sweepMethod(sweep)

		var st sweepStats
		var err error
		switch rule {
		case Metropolis:
			st, err = e.metropolisSweep(ctx)
		case HeatBath:
			st, err = e.heatBathSweep(workers)
		}
		if err != nil {
			return fmt.Errorf("sweep %d (%s): %w", sweep, rule, err)
		}

		e.sweeps++
		e.observe(ctx, sweep, rule, st, e.now().Sub(start))
	}

	e.logger.Info("monte carlo run finished",
		"sweeps", e.cfg.Steps,
		"free_energy", e.energy,
		"magnetization", e.Magnetization(),
		"trace_len", len(e.trace))
	return nil
}

// metropolisSweep visits every active spin once in index order.
func (e *Engine) metropolisSweep(ctx context.Context) (sweepStats, error) {
	var st sweepStats
	traceOn := e.logger.Enabled(ctx, logging.LevelTrace)

	for _, i := range e.active {
		delta := e.eval.FlipDelta(e.spins, i)
		if math.IsNaN(delta) || math.IsInf(delta, 0) {
			return st, fmt.Errorf("spin %d: non-finite energy delta %v", i, delta)
		}

		ok := accept(delta, e.src)
		if traceOn {
			e.logger.Log(ctx, logging.LevelTrace, "metropolis decision", "spin", i, "delta", delta, "accepted", ok)
		}
		if !ok {
			st.rejected++
			continue
		}
		e.spins[i].Flip()
		e.energy += delta
		e.trace = append(e.trace, delta)
		st.accepted++
		st.delta += delta
	}
	if st.accepted > 0 {
		e.energy = e.eval.FreeEnergy(e.spins, nil)
	}
	return st, nil
}

// heatBathSweep runs one block-parallel sweep through the worker pool.
func (e *Engine) heatBathSweep(workers *pool) (sweepStats, error) {
	var st sweepStats
	if len(e.active) == 0 {
		return st, nil
	}

	order := slices.Clone(e.active)
	shuffle(order, e.src)
	blocks := partition(order, e.blockCount())
	sweepSeed := e.src.Int63()

	in := &sweepInput{
		eval:     e.eval,
		snapshot: make([]lattice.Spin, len(e.spins)),
		next:     make([]int, len(e.spins)),
	}
	for i := range e.spins {
		in.snapshot[i] = e.spins[i].Clone()
		in.next[i] = e.spins[i].S
	}

	tasks := make([]blockTask, len(blocks))
	for k, block := range blocks {
		tasks[k] = blockTask{index: k, spins: block, seed: sweepSeed}
	}

	results, err := workers.runSweep(in, tasks)
	if err != nil {
		failed := 0
		for _, r := range results {
			if r.err != nil {
				failed++
			}
		}
		e.cfg.Metrics.WorkerFailures(failed)
		return st, err
	}

	for _, r := range results {
		if r.accepted {
			st.accepted++
		} else {
			st.rejected++
		}
	}

	for i := range e.spins {
		e.spins[i].S = in.next[i]
	}
	updated := e.eval.FreeEnergy(e.spins, nil)
	st.delta = updated - e.energy
	e.energy = updated
	if st.accepted > 0 {
		e.trace = append(e.trace, st.delta)
	}
	return st, nil
}

// blockCount returns the number of heat-bath blocks, at most one per active spin.
func (e *Engine) blockCount() int {
	b := e.cfg.Blocks
	if b == 0 {
		b = e.cfg.Threads
	}
	return max(1, min(b, len(e.active)))
}

// partition deals order into b contiguous blocks whose sizes differ by at
// most one: the first len(order)%b blocks get one extra spin.
func partition(order []int, b int) [][]int {
	base, extra := len(order)/b, len(order)%b
	blocks := make([][]int, b)
	start := 0
	for k := range blocks {
		size := base
		if k < extra {
			size++
		}
		blocks[k] = order[start : start+size : start+size]
		start += size
	}
	return blocks
}

func (e *Engine) observe(ctx context.Context, sweep int, rule Method, st sweepStats, elapsed time.Duration) {
	mag := e.Magnetization()
	e.cfg.Metrics.ObserveSweep(rule.String(), st.accepted, st.rejected, elapsed)
	e.cfg.Metrics.SetState(e.energy, mag)
	e.cfg.Decisions.LogSweep(logging.SweepEvent{
		Sweep:         sweep,
		Method:        rule.String(),
		Accepted:      st.accepted,
		Rejected:      st.rejected,
		FreeEnergy:    e.energy,
		Delta:         st.delta,
		Magnetization: mag,
	})
	if e.logger.Enabled(ctx, slog.LevelDebug) {
		e.logger.Debug("sweep complete",
			"sweep", sweep,
			"method", rule,
			"accepted", st.accepted,
			"rejected", st.rejected,
			"free_energy", e.energy,
			"elapsed", elapsed)
	}
}

// State returns the lifecycle position.
func (e *Engine) State() State {
	if e == nil {
		return Unconfigured
	}
	return e.state
}

// Spins returns the live configuration. Callers must not retain it across
// runs.
func (e *Engine) Spins() []lattice.Spin {
	return e.spins
}

// Magnetization returns the sum of active spin states.
func (e *Engine) Magnetization() int {
	m := 0
	for _, i := range e.active {
		m += e.spins[i].S
	}
	return m
}

// Energy returns the free energy tracked as the baseline for updates.
func (e *Engine) Energy() float64 {
	return e.energy
}

// FreeEnergy evaluates the current configuration with flips applied.
func (e *Engine) FreeEnergy(flips []int) float64 {
	return e.eval.FreeEnergy(e.spins, flips)
}

// PartitionFunction enumerates configurations of spins from start onward.
func (e *Engine) PartitionFunction(start int, flips []int) (float64, error) {
	return e.eval.PartitionFunction(e.spins, start, flips)
}

// Trace returns a copy of the convergence trace.
func (e *Engine) Trace() []float64 {
	return slices.Clone(e.trace)
}

// Sweeps returns the number of sweeps completed over the engine's lifetime.
func (e *Engine) Sweeps() int {
	return e.sweeps
}

// Randomize assigns every active spin +1 or -1 with equal probability from
// the master stream.
func (e *Engine) Randomize() {
	for _, i := range e.active {
		if e.src.Float64() < 0.5 {
			e.spins[i].S = 1
		} else {
			e.spins[i].S = -1
		}
	}
	e.energy = e.eval.FreeEnergy(e.spins, nil)
}

// SetAll assigns s to every active spin.
func (e *Engine) SetAll(s int) error {
	if s != 1 && s != -1 {
		return simerr.Config("spin", s, "must be +1 or -1")
	}
	for _, i := range e.active {
		e.spins[i].S = s
	}
	e.energy = e.eval.FreeEnergy(e.spins, nil)
	return nil
}
