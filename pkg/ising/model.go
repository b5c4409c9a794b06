// Package ising is the driver-facing model of a generalized Ising system on
// a Hausdorff lattice.
//
// A Model collects validated settings, builds the lattice on Setup, evolves
// it with RunMonteCarlo and answers observable queries. Changing any setting
// discards the lattice until Setup is called again. All methods are safe to
// call from multiple goroutines; queries issued during a run wait for it.
package ising

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nvandessel/hausdorff-ising/internal/config"
	"github.com/nvandessel/hausdorff-ising/internal/constants"
	"github.com/nvandessel/hausdorff-ising/internal/energy"
	"github.com/nvandessel/hausdorff-ising/internal/lattice"
	"github.com/nvandessel/hausdorff-ising/internal/logging"
	"github.com/nvandessel/hausdorff-ising/internal/metrics"
	"github.com/nvandessel/hausdorff-ising/internal/montecarlo"
	"github.com/nvandessel/hausdorff-ising/internal/simerr"
)

// Error categories. Match with errors.Is; read details with errors.As into
// *ConfigError.
var (
	ErrConfiguration = simerr.ErrConfiguration
	ErrNotSetup      = simerr.ErrNotSetup
	ErrCapacity      = simerr.ErrCapacity
)

// ConfigError names the rejected parameter.
type ConfigError = simerr.ConfigError

// Model is a configurable Ising simulation.
type Model struct {
	mu sync.Mutex

	lattice  lattice.Params
	energy   energy.Params
	mcMethod montecarlo.Method
	steps    int
	threads  int
	blocks   int
	seed     int64

	src       Source
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
	decisions *logging.DecisionLogger

	lat    *lattice.Lattice
	engine *montecarlo.Engine
}

// New returns a Model with default settings. Call Setup before running.
func New(opts ...Option) *Model {
	m := &Model{
		lattice: lattice.Params{
			Dimension: constants.DefaultHausdorffDimension,
			Slices:    constants.DefaultHausdorffSlices,
			Depth:     constants.DefaultLatticeDepth,
			Method:    lattice.Scaling,
		},
		energy: energy.Params{
			H:     constants.DefaultField,
			J:     constants.DefaultCoupling,
			KbT:   constants.DefaultTemperature,
			Sigma: constants.DefaultInteractionSigma,
		},
		mcMethod: montecarlo.Metropolis,
		steps:    constants.DefaultMCSteps,
		threads:  constants.DefaultThreads,
		seed:     constants.DefaultSeed,
		logger:   logging.OrDiscard(nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FromConfig builds a Model from a validated configuration.
func FromConfig(cfg *config.Config, opts ...Option) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lp, err := cfg.LatticeParams()
	if err != nil {
		return nil, err
	}
	method, err := montecarlo.ParseMethod(cfg.MonteCarlo.Method)
	if err != nil {
		return nil, err
	}

	m := New(append([]Option{WithSeed(cfg.MonteCarlo.Seed)}, opts...)...)
	m.lattice = lp
	m.energy = cfg.EnergyParams()
	m.mcMethod = method
	m.steps = cfg.MonteCarlo.Steps
	m.threads = cfg.MonteCarlo.Threads
	m.blocks = cfg.MonteCarlo.Blocks
	return m, nil
}

// Close releases the sweep log, if any.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions.Close()
}

// set applies a validated change and discards the lattice.
func (m *Model) set(apply func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply()
	m.invalidate()
}

func (m *Model) invalidate() {
	m.lat = nil
	m.engine = nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SetNumThreads sets the heat-bath worker count.
func (m *Model) SetNumThreads(n int) error {
	if n < 1 {
		return simerr.Config("threads", n, "must be >= 1")
	}
	m.set(func() { m.threads = n })
	return nil
}

// SetNumBlocks sets the number of heat-bath blocks per sweep; 0 follows the
// thread count.
func (m *Model) SetNumBlocks(n int) error {
	if n < 0 {
		return simerr.Config("blocks", n, "must be >= 0")
	}
	m.set(func() { m.blocks = n })
	return nil
}

// SetNumMCSteps sets the number of sweeps per run.
func (m *Model) SetNumMCSteps(n int) error {
	if n < 1 {
		return simerr.Config("mc_steps", n, "must be >= 1")
	}
	m.set(func() { m.steps = n })
	return nil
}

// SetLatticeDepth sets the recursion depth.
func (m *Model) SetLatticeDepth(d int) error {
	if d < 0 {
		return simerr.Config("lattice_depth", d, "must be >= 0")
	}
	m.set(func() { m.lattice.Depth = d })
	return nil
}

// SetHausdorffDimension sets D. Compatibility with the slice count and
// scaling method is checked by Setup.
func (m *Model) SetHausdorffDimension(d float64) error {
	if !finite(d) || d <= 0 {
		return simerr.Config("hausdorff_dimension", d, "must be a finite value > 0")
	}
	m.set(func() { m.lattice.Dimension = d })
	return nil
}

// SetHausdorffSlices sets the branching factor.
func (m *Model) SetHausdorffSlices(n int) error {
	if n < constants.MinHausdorffSlices {
		return simerr.Config("hausdorff_slices", n, "must be at least 2")
	}
	m.set(func() { m.lattice.Slices = n })
	return nil
}

// SetHausdorffMethod selects "SCALING" or "SPLITTING".
func (m *Model) SetHausdorffMethod(name string) error {
	method, err := lattice.ParseScalingMethod(name)
	if err != nil {
		return err
	}
	m.set(func() { m.lattice.Method = method })
	return nil
}

// SetMCMethod selects "METROPOLIS", "HEATBATH" or "HYBRID".
func (m *Model) SetMCMethod(name string) error {
	method, err := montecarlo.ParseMethod(name)
	if err != nil {
		return err
	}
	m.set(func() { m.mcMethod = method })
	return nil
}

// SetInteractionSigma sets the distance exponent of the pair weight.
func (m *Model) SetInteractionSigma(sigma float64) error {
	if !finite(sigma) {
		return simerr.Config("interaction_sigma", sigma, "must be finite")
	}
	m.set(func() { m.energy.Sigma = sigma })
	return nil
}

// SetTemperature sets kbT.
func (m *Model) SetTemperature(kbT float64) error {
	if !finite(kbT) || kbT <= 0 {
		return simerr.Config("temperature", kbT, "must be a finite value > 0")
	}
	m.set(func() { m.energy.KbT = kbT })
	return nil
}

// SetCouplingConsts sets the field H and the coupling J.
func (m *Model) SetCouplingConsts(h, j float64) error {
	if !finite(h) {
		return simerr.Config("field", h, "must be finite")
	}
	if !finite(j) {
		return simerr.Config("coupling", j, "must be finite")
	}
	m.set(func() {
		m.energy.H = h
		m.energy.J = j
	})
	return nil
}

// SetSeed reseeds the master stream used from the next Setup.
func (m *Model) SetSeed(seed int64) {
	m.set(func() { m.seed = seed })
}

// Setup builds the lattice and the engine. All spins start at +1.
func (m *Model) Setup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalidate()
	if err := m.energy.Validate(); err != nil {
		return err
	}

	lat, err := lattice.Build(m.lattice)
	if err != nil {
		return fmt.Errorf("building lattice: %w", err)
	}

	engine, err := montecarlo.New(lat.Spins, m.energy, montecarlo.Config{
		Method:    m.mcMethod,
		Steps:     m.steps,
		Threads:   m.threads,
		Blocks:    m.blocks,
		Seed:      m.seed,
		Source:    m.src,
		Now:       m.now,
		Logger:    m.logger,
		Decisions: m.decisions,
		Metrics:   m.metrics,
	})
	if err != nil {
		return err
	}

	m.lat = lat
	m.engine = engine
	m.logger.Debug("model set up",
		"spins", lat.NumSpins(),
		"dimensions", lat.Dimensions,
		"scale", lat.Scale,
		"method", m.mcMethod)
	return nil
}

// Reset discards the lattice and the convergence trace.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidate()
}

// IsSetup reports whether a lattice is built.
func (m *Model) IsSetup() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine != nil
}

// RunMonteCarlo performs the configured number of sweeps. Cancelling ctx
// stops the run between sweeps; completed sweeps are kept.
func (m *Model) RunMonteCarlo(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return simerr.ErrNotSetup
	}
	return m.engine.Run(ctx)
}

// RandomizeSpins sets every spin to +1 or -1 with equal probability.
func (m *Model) RandomizeSpins() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return simerr.ErrNotSetup
	}
	m.engine.Randomize()
	return nil
}

// SetAllSpins sets every spin to s, which must be +1 or -1.
func (m *Model) SetAllSpins(s int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return simerr.ErrNotSetup
	}
	return m.engine.SetAll(s)
}

// SpinArray returns the spin states in lattice order, with 0 for inactive
// slots. It returns nil before Setup.
func (m *Model) SpinArray() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return nil
	}
	spins := m.engine.Spins()
	out := make([]int, len(spins))
	for i := range spins {
		out[i] = spins[i].Value()
	}
	return out
}

// Coordinates returns a copy of each site's coordinate vector in lattice
// order. It returns nil before Setup.
func (m *Model) Coordinates() [][]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lat == nil {
		return nil
	}
	out := make([][]float64, len(m.lat.Spins))
	for i := range m.lat.Spins {
		out[i] = slices.Clone(m.lat.Spins[i].Coords)
	}
	return out
}

// LatticeDimensions returns the number of site coordinates on each axis.
func (m *Model) LatticeDimensions() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lat == nil {
		return nil
	}
	return slices.Clone(m.lat.Dimensions)
}

// NumSpins returns the number of active sites, or 0 before Setup.
func (m *Model) NumSpins() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lat == nil {
		return 0
	}
	return m.lat.NumSpins()
}

// Magnetization returns the sum of active spin states.
func (m *Model) Magnetization() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return 0, simerr.ErrNotSetup
	}
	return m.engine.Magnetization(), nil
}

// FreeEnergy returns βH with the given spins hypothetically flipped.
func (m *Model) FreeEnergy(flips ...int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return 0, simerr.ErrNotSetup
	}
	return m.engine.FreeEnergy(flips), nil
}

// PartitionFunction sums exp(-βH) over every configuration of the lattice,
// starting from the current state with flips applied. Lattices with more
// than 20 active spins return ErrCapacity.
func (m *Model) PartitionFunction(flips ...int) (float64, error) {
	return m.PartitionFunctionFrom(0, flips...)
}

// PartitionFunctionFrom enumerates only the spins at index start and above,
// holding the earlier ones fixed.
func (m *Model) PartitionFunctionFrom(start int, flips ...int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return 0, simerr.ErrNotSetup
	}
	return m.engine.PartitionFunction(start, flips)
}

// ConvergenceTrace returns a copy of the recorded energy deltas.
func (m *Model) ConvergenceTrace() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return nil
	}
	return m.engine.Trace()
}

// NumThreads returns the heat-bath worker count.
func (m *Model) NumThreads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threads
}

// NumBlocks returns the configured block count; 0 follows NumThreads.
func (m *Model) NumBlocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocks
}

// NumMCSteps returns the number of sweeps per run.
func (m *Model) NumMCSteps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps
}

// LatticeDepth returns the recursion depth.
func (m *Model) LatticeDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lattice.Depth
}

// HausdorffSlices returns the branching factor.
func (m *Model) HausdorffSlices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lattice.Slices
}

// InteractionSigma returns the pair-weight exponent.
func (m *Model) InteractionSigma() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.energy.Sigma
}

// Temperature returns kbT.
func (m *Model) Temperature() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.energy.KbT
}

// Seed returns the master stream seed.
func (m *Model) Seed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seed
}

// HausdorffDimension returns D.
func (m *Model) HausdorffDimension() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lattice.Dimension
}

// HausdorffMethod returns the scaling method name.
func (m *Model) HausdorffMethod() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lattice.Method.String()
}

// MCMethod returns the Monte Carlo method name.
func (m *Model) MCMethod() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mcMethod.String()
}

// CouplingConsts returns the field H and the coupling J.
func (m *Model) CouplingConsts() (h, j float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.energy.H, m.energy.J
}

// HausdorffScale returns the per-level shrink factor for the current settings.
func (m *Model) HausdorffScale() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lattice.Scale()
}

// K returns the reduced coupling J/kbT.
func (m *Model) K() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.energy.ReducedCoupling()
}

// ReducedField returns H/kbT.
func (m *Model) ReducedField() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.energy.ReducedField()
}

// Snapshot bundles the observables a driver reports after a run.
type Snapshot struct {
	NumSpins      int       `json:"num_spins"`
	Dimensions    []int     `json:"dimensions"`
	Magnetization int       `json:"magnetization"`
	FreeEnergy    float64   `json:"free_energy"`
	Sweeps        int       `json:"sweeps"`
	Trace         []float64 `json:"trace,omitempty"`
	TraceLen      int       `json:"trace_len"`
	TraceSum      float64   `json:"trace_sum"`
	TraceMean     float64   `json:"trace_mean"`
	TraceStdDev   float64   `json:"trace_stddev"`
}

// Snapshot returns the current observables.
func (m *Model) Snapshot() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		return Snapshot{}, simerr.ErrNotSetup
	}

	trace := m.engine.Trace()
	s := Snapshot{
		NumSpins:      m.lat.NumSpins(),
		Dimensions:    slices.Clone(m.lat.Dimensions),
		Magnetization: m.engine.Magnetization(),
		FreeEnergy:    m.engine.FreeEnergy(nil),
		Sweeps:        m.engine.Sweeps(),
		Trace:         trace,
		TraceLen:      len(trace),
	}
	if len(trace) > 0 {
		s.TraceSum = floats.Sum(trace)
		s.TraceMean = stat.Mean(trace, nil)
	}
	if len(trace) > 1 {
		s.TraceStdDev = stat.StdDev(trace, nil)
	}
	return s, nil
}

// Status summarizes the settings and, once set up, the lattice state.
func (m *Model) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Hausdorff dimension: %g\n", m.lattice.Dimension)
	fmt.Fprintf(&b, "Hausdorff slices:    %d\n", m.lattice.Slices)
	fmt.Fprintf(&b, "Hausdorff scale:     %g (%s)\n", m.lattice.Scale(), m.lattice.Method)
	fmt.Fprintf(&b, "Lattice depth:       %d\n", m.lattice.Depth)
	fmt.Fprintf(&b, "Temperature (kbT):   %g\n", m.energy.KbT)
	fmt.Fprintf(&b, "Field H:             %g\n", m.energy.H)
	fmt.Fprintf(&b, "Coupling J:          %g\n", m.energy.J)
	fmt.Fprintf(&b, "Sigma:               %g\n", m.energy.Sigma)
	fmt.Fprintf(&b, "MC method:           %s\n", m.mcMethod)
	fmt.Fprintf(&b, "MC steps:            %d\n", m.steps)
	fmt.Fprintf(&b, "Threads:             %d\n", m.threads)

	if m.engine == nil {
		b.WriteString("State:               not set up\n")
		return b.String()
	}
	fmt.Fprintf(&b, "State:               %s\n", m.engine.State())
	fmt.Fprintf(&b, "Spins:               %d\n", m.lat.NumSpins())
	fmt.Fprintf(&b, "Lattice dimensions:  %v\n", m.lat.Dimensions)
	fmt.Fprintf(&b, "Magnetization:       %d\n", m.engine.Magnetization())
	fmt.Fprintf(&b, "Free energy:         %g\n", m.engine.Energy())
	return b.String()
}
