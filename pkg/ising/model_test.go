package ising

import (
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nvandessel/hausdorff-ising/internal/config"
)

type fixedSource struct{ u float64 }

func (f fixedSource) Float64() float64 { return f.u }
func (f fixedSource) Intn(n int) int   { return 0 }
func (f fixedSource) Int63() int64     { return 7 }

func mustSetup(t *testing.T, m *Model) {
	t.Helper()
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestModel_OneDimensionalDepthTwo(t *testing.T) {
	m := New()
	must(t, m.SetLatticeDepth(2))
	mustSetup(t, m)

	if got := m.NumSpins(); got != 8 {
		t.Fatalf("NumSpins = %d, want 8", got)
	}
	if got := m.LatticeDimensions(); !slices.Equal(got, []int{4}) {
		t.Errorf("LatticeDimensions = %v, want [4]", got)
	}

	want := []float64{0, 0, 0.25, 0.25, 0.5, 0.5, 0.75, 0.75}
	for i, c := range m.Coordinates() {
		if math.Abs(c[0]-want[i]) > 1e-12 {
			t.Errorf("coordinate %d = %v, want %v", i, c[0], want[i])
		}
	}
}

func TestModel_SpinCountFormula(t *testing.T) {
	tests := []struct {
		dim    float64
		slices int
		depth  int
		method string
		want   int
	}{
		{1, 2, 0, "SCALING", 2},
		{1, 2, 3, "SCALING", 16},
		{1, 3, 2, "SCALING", 18},
		{0.63, 2, 2, "SCALING", 8},
		{2, 2, 1, "SPLITTING", 16},
		{1.5, 3, 1, "SPLITTING", 36},
		{3, 2, 1, "SPLITTING", 64},
	}
	for _, tt := range tests {
		m := New()
		must(t, m.SetHausdorffDimension(tt.dim))
		must(t, m.SetHausdorffSlices(tt.slices))
		must(t, m.SetLatticeDepth(tt.depth))
		must(t, m.SetHausdorffMethod(tt.method))
		mustSetup(t, m)

		if got := m.NumSpins(); got != tt.want {
			t.Errorf("D=%v n=%d d=%d: NumSpins = %d, want %d", tt.dim, tt.slices, tt.depth, got, tt.want)
		}
		if got := len(m.SpinArray()); got != tt.want {
			t.Errorf("D=%v n=%d d=%d: len(SpinArray) = %d, want %d", tt.dim, tt.slices, tt.depth, got, tt.want)
		}
	}
}

func TestModel_SetAllSpinsMagnetization(t *testing.T) {
	m := New(WithSeed(3))
	must(t, m.SetHausdorffDimension(2))
	must(t, m.SetHausdorffMethod("splitting"))
	mustSetup(t, m)

	must(t, m.RandomizeSpins())
	must(t, m.SetAllSpins(1))
	mag, err := m.Magnetization()
	must(t, err)
	if mag != m.NumSpins() {
		t.Errorf("Magnetization = %d, want %d", mag, m.NumSpins())
	}

	must(t, m.SetAllSpins(-1))
	if mag, _ := m.Magnetization(); mag != -m.NumSpins() {
		t.Errorf("Magnetization = %d, want %d", mag, -m.NumSpins())
	}

	if err := m.SetAllSpins(2); !errors.Is(err, ErrConfiguration) {
		t.Errorf("SetAllSpins(2) err = %v, want ErrConfiguration", err)
	}
}

func TestModel_ZeroFlipMetropolisScenario(t *testing.T) {
	m := New(WithSource(fixedSource{u: 0.5}))
	must(t, m.SetLatticeDepth(0))
	must(t, m.SetInteractionSigma(0))
	must(t, m.SetCouplingConsts(0, 1))
	must(t, m.SetTemperature(1))
	must(t, m.SetNumMCSteps(1))
	must(t, m.SetMCMethod("METROPOLIS"))
	mustSetup(t, m)

	before, err := m.FreeEnergy()
	must(t, err)
	must(t, m.RunMonteCarlo(t.Context()))

	if tr := m.ConvergenceTrace(); len(tr) != 0 {
		t.Errorf("ConvergenceTrace = %v, want empty", tr)
	}
	if got := m.SpinArray(); !slices.Equal(got, []int{1, 1}) {
		t.Errorf("SpinArray = %v, want [1 1]", got)
	}
	after, _ := m.FreeEnergy()
	if after != before {
		t.Errorf("FreeEnergy changed from %v to %v", before, after)
	}
}

func TestModel_PartitionFunction(t *testing.T) {
	m := New()
	must(t, m.SetLatticeDepth(0))
	must(t, m.SetCouplingConsts(0, 0))
	mustSetup(t, m)

	// Enumerating only the last site leaves one free spin.
	z, err := m.PartitionFunctionFrom(1)
	must(t, err)
	if math.Abs(z-2) > 1e-12 {
		t.Errorf("Z over one site = %v, want 2", z)
	}

	z, err = m.PartitionFunction()
	must(t, err)
	if math.Abs(z-4) > 1e-12 {
		t.Errorf("Z over two free sites = %v, want 4", z)
	}

	// A flip of a held site does not change a free-spin sum.
	z, err = m.PartitionFunctionFrom(1, 0)
	must(t, err)
	if math.Abs(z-2) > 1e-12 {
		t.Errorf("Z with held site flipped = %v, want 2", z)
	}
}

func TestModel_PartitionFunctionCapacity(t *testing.T) {
	m := New()
	must(t, m.SetLatticeDepth(4))
	mustSetup(t, m)

	if _, err := m.PartitionFunction(); !errors.Is(err, ErrCapacity) {
		t.Errorf("PartitionFunction on 32 spins err = %v, want ErrCapacity", err)
	}
}

func TestModel_NotSetup(t *testing.T) {
	m := New()
	ctx := t.Context()

	if err := m.RunMonteCarlo(ctx); !errors.Is(err, ErrNotSetup) {
		t.Errorf("RunMonteCarlo before Setup: err = %v, want ErrNotSetup", err)
	}
	if _, err := m.FreeEnergy(); !errors.Is(err, ErrNotSetup) {
		t.Errorf("FreeEnergy before Setup: err = %v, want ErrNotSetup", err)
	}
	if err := m.RandomizeSpins(); !errors.Is(err, ErrNotSetup) {
		t.Errorf("RandomizeSpins before Setup: err = %v, want ErrNotSetup", err)
	}
	if m.SpinArray() != nil || m.NumSpins() != 0 {
		t.Error("queries before Setup should be empty")
	}

	mustSetup(t, m)
	must(t, m.SetNumMCSteps(5))
	if m.IsSetup() {
		t.Error("changing a setting should discard the lattice")
	}
	if err := m.RunMonteCarlo(ctx); !errors.Is(err, ErrNotSetup) {
		t.Errorf("RunMonteCarlo after setter: err = %v, want ErrNotSetup", err)
	}

	mustSetup(t, m)
	m.Reset()
	if err := m.RunMonteCarlo(ctx); !errors.Is(err, ErrNotSetup) {
		t.Errorf("RunMonteCarlo after Reset: err = %v, want ErrNotSetup", err)
	}
}

func TestModel_SettersRaise(t *testing.T) {
	m := New()
	tests := []struct {
		field string
		call  func() error
	}{
		{"threads", func() error { return m.SetNumThreads(0) }},
		{"blocks", func() error { return m.SetNumBlocks(-1) }},
		{"mc_steps", func() error { return m.SetNumMCSteps(0) }},
		{"lattice_depth", func() error { return m.SetLatticeDepth(-1) }},
		{"hausdorff_dimension", func() error { return m.SetHausdorffDimension(0) }},
		{"hausdorff_dimension", func() error { return m.SetHausdorffDimension(math.NaN()) }},
		{"hausdorff_slices", func() error { return m.SetHausdorffSlices(1) }},
		{"hausdorff_method", func() error { return m.SetHausdorffMethod("STRETCHING") }},
		{"mc_method", func() error { return m.SetMCMethod("GIBBS") }},
		{"interaction_sigma", func() error { return m.SetInteractionSigma(math.Inf(1)) }},
		{"temperature", func() error { return m.SetTemperature(0) }},
		{"temperature", func() error { return m.SetTemperature(-1) }},
		{"field", func() error { return m.SetCouplingConsts(math.NaN(), 1) }},
		{"coupling", func() error { return m.SetCouplingConsts(1, math.Inf(-1)) }},
	}
	for _, tt := range tests {
		err := tt.call()
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%s: err = %v, want *ConfigError", tt.field, err)
			continue
		}
		if ce.Field != tt.field {
			t.Errorf("ConfigError.Field = %q, want %q", ce.Field, tt.field)
		}
	}

	// Rejected values leave the settings untouched.
	if m.NumThreads() != 1 || m.Temperature() != 1 || m.HausdorffMethod() != "SCALING" {
		t.Errorf("settings changed by rejected setters: threads=%d kbT=%v method=%s",
			m.NumThreads(), m.Temperature(), m.HausdorffMethod())
	}
}

func TestModel_SetupRejectsOverlappingScale(t *testing.T) {
	m := New()
	must(t, m.SetHausdorffDimension(2))

	// 2^(-1/2) > 1/2: sub-squares would overlap.
	if err := m.Setup(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Setup err = %v, want ErrConfiguration", err)
	}
	if m.IsSetup() {
		t.Error("failed Setup should leave the model unconfigured")
	}
}

func TestModel_SetupRejectsHugeDimension(t *testing.T) {
	m := New()
	must(t, m.SetHausdorffMethod("splitting"))
	must(t, m.SetHausdorffDimension(1e19))

	if err := m.Setup(); !errors.Is(err, ErrCapacity) {
		t.Fatalf("Setup err = %v, want ErrCapacity", err)
	}
	if m.IsSetup() {
		t.Error("failed Setup should leave the model unconfigured")
	}
}

func TestModel_DerivedGetters(t *testing.T) {
	m := New()
	must(t, m.SetHausdorffSlices(3))
	must(t, m.SetTemperature(2))
	must(t, m.SetCouplingConsts(1, 3))

	if got := m.HausdorffScale(); math.Abs(got-1.0/3) > 1e-12 {
		t.Errorf("HausdorffScale = %v, want 1/3", got)
	}
	if got := m.K(); got != 1.5 {
		t.Errorf("K = %v, want 1.5", got)
	}
	if got := m.ReducedField(); got != 0.5 {
		t.Errorf("ReducedField = %v, want 0.5", got)
	}
	if h, j := m.CouplingConsts(); h != 1 || j != 3 {
		t.Errorf("CouplingConsts = %v, %v; want 1, 3", h, j)
	}
	must(t, m.SetMCMethod("heat_bath"))
	if got := m.MCMethod(); got != "HEATBATH" {
		t.Errorf("MCMethod = %q, want HEATBATH", got)
	}
}

func TestModel_HeatBathIndependentOfThreads(t *testing.T) {
	run := func(threads int) []int {
		m := New(WithSeed(21))
		must(t, m.SetHausdorffDimension(2))
		must(t, m.SetHausdorffMethod("SPLITTING"))
		must(t, m.SetLatticeDepth(2))
		must(t, m.SetMCMethod("HEATBATH"))
		must(t, m.SetNumMCSteps(15))
		must(t, m.SetNumThreads(threads))
		must(t, m.SetNumBlocks(6))
		must(t, m.SetInteractionSigma(-1))
		must(t, m.SetTemperature(0.7))
		mustSetup(t, m)
		must(t, m.RandomizeSpins())
		must(t, m.RunMonteCarlo(t.Context()))
		return m.SpinArray()
	}

	base := run(1)
	for _, threads := range []int{2, 6} {
		if got := run(threads); !slices.Equal(got, base) {
			t.Errorf("threads=%d: spins %v, want %v", threads, got, base)
		}
	}
}

func TestModel_SnapshotAndReset(t *testing.T) {
	m := New(WithSeed(5), WithMetrics(prometheus.NewRegistry()))
	must(t, m.SetLatticeDepth(3))
	must(t, m.SetNumMCSteps(20))
	must(t, m.SetMCMethod("HYBRID"))
	must(t, m.SetNumThreads(2))
	mustSetup(t, m)
	must(t, m.RandomizeSpins())
	must(t, m.RunMonteCarlo(t.Context()))

	snap, err := m.Snapshot()
	must(t, err)
	if snap.NumSpins != 16 || snap.Sweeps != 20 {
		t.Errorf("Snapshot = %+v, want 16 spins and 20 sweeps", snap)
	}
	if snap.TraceLen != len(m.ConvergenceTrace()) {
		t.Errorf("TraceLen = %d, want %d", snap.TraceLen, len(m.ConvergenceTrace()))
	}
	var sum float64
	for _, d := range snap.Trace {
		sum += d
	}
	if math.Abs(sum-snap.TraceSum) > 1e-9 {
		t.Errorf("TraceSum = %v, want %v", snap.TraceSum, sum)
	}
	fe, _ := m.FreeEnergy()
	if snap.FreeEnergy != fe {
		t.Errorf("Snapshot.FreeEnergy = %v, want %v", snap.FreeEnergy, fe)
	}

	if !strings.Contains(m.Status(), "Spins:               16") {
		t.Errorf("Status missing spin count:\n%s", m.Status())
	}

	m.Reset()
	if m.ConvergenceTrace() != nil {
		t.Error("Reset should discard the trace")
	}
	if _, err := m.Snapshot(); !errors.Is(err, ErrNotSetup) {
		t.Errorf("Snapshot after Reset err = %v, want ErrNotSetup", err)
	}
	if !strings.Contains(m.Status(), "not set up") {
		t.Errorf("Status after Reset:\n%s", m.Status())
	}
}

func TestModel_ConcurrentQueries(t *testing.T) {
	m := New(WithSeed(9))
	must(t, m.SetLatticeDepth(3))
	must(t, m.SetNumMCSteps(50))
	must(t, m.SetMCMethod("HEATBATH"))
	must(t, m.SetNumThreads(4))
	mustSetup(t, m)

	var wg sync.WaitGroup
	wg.Go(func() {
		if err := m.RunMonteCarlo(t.Context()); err != nil {
			t.Errorf("RunMonteCarlo: %v", err)
		}
	})
	for range 4 {
		wg.Go(func() {
			for range 20 {
				if spins := m.SpinArray(); len(spins) != 16 {
					t.Errorf("len(SpinArray) = %d, want 16", len(spins))
					return
				}
				_, _ = m.Magnetization()
			}
		})
	}
	wg.Wait()
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Lattice.Depth = 2
	cfg.Lattice.Slices = 3
	cfg.MonteCarlo.Method = "hybrid"
	cfg.MonteCarlo.Steps = 3
	cfg.MonteCarlo.Threads = 2
	cfg.MonteCarlo.Seed = 77

	m, err := FromConfig(cfg)
	must(t, err)
	if m.MCMethod() != "HYBRID" || m.NumMCSteps() != 3 || m.Seed() != 77 || m.HausdorffSlices() != 3 {
		t.Errorf("FromConfig did not apply settings:\n%s", m.Status())
	}
	mustSetup(t, m)
	if got := m.NumSpins(); got != 18 {
		t.Errorf("NumSpins = %d, want 18", got)
	}
	must(t, m.RunMonteCarlo(t.Context()))

	cfg.Thermodynamics.Temperature = 0
	if _, err := FromConfig(cfg); !errors.Is(err, ErrConfiguration) {
		t.Errorf("FromConfig with kbT=0 err = %v, want ErrConfiguration", err)
	}
}
