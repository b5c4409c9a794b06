// Package energy evaluates the reduced Hamiltonian of a spin configuration on
// a Hausdorff lattice and, for small lattices, its exact partition function.
//
// In units where k_B = 1, with h = H/kbT and K = J/kbT, the reduced energy is
//
//	βH = -Σ_i h·s_i - Σ_{i≠j} K·d(i,j)^σ·s_i·s_j
//
// where the pair sum runs over ordered pairs, so every unordered pair is
// counted twice. Inactive sites contribute nothing. J > 0 is ferromagnetic
// and Z = Σ exp(-βH).
package energy

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/nvandessel/hausdorff-ising/internal/constants"
	"github.com/nvandessel/hausdorff-ising/internal/lattice"
	"github.com/nvandessel/hausdorff-ising/internal/simerr"
)

// Params are the thermodynamic constants of the model.
type Params struct {
	H     float64 // external field coupling
	J     float64 // pair coupling
	KbT   float64 // temperature, > 0
	Sigma float64 // distance exponent
}

// ReducedField returns h = H/kbT.
func (p Params) ReducedField() float64 { return p.H / p.KbT }

// ReducedCoupling returns K = J/kbT.
func (p Params) ReducedCoupling() float64 { return p.J / p.KbT }

// Validate rejects constants that would make the energy meaningless.
func (p Params) Validate() error {
	if math.IsNaN(p.KbT) || math.IsInf(p.KbT, 0) || p.KbT <= 0 {
		return simerr.Config("temperature", p.KbT, "must be a finite value > 0")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{{"field", p.H}, {"coupling", p.J}, {"interaction_sigma", p.Sigma}} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return simerr.Config(f.name, f.value, "must be finite")
		}
	}
	return nil
}

// PairWeight returns d^sigma for the Euclidean distance d between a and b.
// Distinct sites that coincide (d = 0) get 0^sigma for sigma >= 0 and no
// coupling for sigma < 0.
func PairWeight(a, b []float64, sigma float64) float64 {
	d := floats.Distance(a, b, 2)
	if d == 0 && sigma < 0 {
		return 0
	}
	return math.Pow(d, sigma)
}

// Evaluator computes energies for one lattice. Site coordinates never change
// after construction, so pair weights are tabulated once when the table fits
// under constants.MaxCachedPairs. Spin states are passed to every call.
//
// An Evaluator is safe for concurrent use.
type Evaluator struct {
	params  Params
	h, k    float64
	coords  [][]float64
	weights []float64 // n*n row-major, nil when not cached
}

// NewEvaluator prepares an evaluator for the sites of spins.
func NewEvaluator(spins []lattice.Spin, p Params) (*Evaluator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(spins)
	e := &Evaluator{
		params: p,
		h:      p.ReducedField(),
		k:      p.ReducedCoupling(),
		coords: make([][]float64, n),
	}
	for i := range spins {
		e.coords[i] = spins[i].Coords
	}
	if n*n <= constants.MaxCachedPairs {
		e.weights = make([]float64, n*n)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				w := PairWeight(e.coords[i], e.coords[j], p.Sigma)
				e.weights[i*n+j] = w
				e.weights[j*n+i] = w
			}
		}
	}
	return e, nil
}

// Params returns the constants the evaluator was built with.
func (e *Evaluator) Params() Params {
	return e.params
}

func (e *Evaluator) weight(i, j int) float64 {
	if e.weights != nil {
		return e.weights[i*len(e.coords)+j]
	}
	return PairWeight(e.coords[i], e.coords[j], e.params.Sigma)
}

// FreeEnergy returns βH for spins with the states at the flips indices
// hypothetically negated. Duplicate and out-of-range indices are ignored.
// Cost is O(n²).
func (e *Evaluator) FreeEnergy(spins []lattice.Spin, flips []int) float64 {
	return e.freeEnergy(spins, flipMask(len(spins), flips))
}

func (e *Evaluator) freeEnergy(spins []lattice.Spin, mask []bool) float64 {
	n := len(spins)
	sign := make([]float64, n)
	for i := range spins {
		if !spins[i].Active {
			continue
		}
		sign[i] = float64(spins[i].S)
		if mask[i] {
			sign[i] = -sign[i]
		}
	}

	var field, pairs float64
	for i := 0; i < n; i++ {
		if sign[i] == 0 {
			continue
		}
		field += sign[i]
		for j := i + 1; j < n; j++ {
			if sign[j] == 0 {
				continue
			}
			pairs += e.weight(i, j) * sign[i] * sign[j]
		}
	}
	return -e.h*field - 2*e.k*pairs
}

// Delta returns FreeEnergy(spins, flips) - FreeEnergy(spins, nil) without
// evaluating either: only pairs with exactly one member in the flip set
// change, so the cost is O(|flips|·n).
func (e *Evaluator) Delta(spins []lattice.Spin, flips []int) float64 {
	n := len(spins)
	mask := flipMask(n, flips)

	var field, pairs float64
	for i := range mask {
		if !mask[i] || !spins[i].Active {
			continue
		}
		si := float64(spins[i].S)
		field += si
		for j := 0; j < n; j++ {
			if j == i || mask[j] || !spins[j].Active {
				continue
			}
			pairs += e.weight(i, j) * si * float64(spins[j].S)
		}
	}
	return 2*e.h*field + 4*e.k*pairs
}

// FlipDelta is Delta for the single index i, without allocating.
func (e *Evaluator) FlipDelta(spins []lattice.Spin, i int) float64 {
	if i < 0 || i >= len(spins) || !spins[i].Active {
		return 0
	}
	var local float64
	for j := range spins {
		if j == i || !spins[j].Active {
			continue
		}
		local += e.weight(i, j) * float64(spins[j].S)
	}
	return 2 * float64(spins[i].S) * (e.h + 2*e.k*local)
}

// PartitionFunction sums exp(-βH) over both orientations of every active
// spin with index >= start, holding earlier spins at their current state
// with flips applied. It enumerates 2^m configurations for m such spins and
// returns simerr.ErrCapacity when m exceeds constants.MaxPartitionSpins or,
// for m > 0, when 2^m * n^2 exceeds constants.MaxPartitionWork.
//
// This is a reference implementation for checking small systems.
func (e *Evaluator) PartitionFunction(spins []lattice.Spin, start int, flips []int) (float64, error) {
	n := len(spins)
	if start < 0 || start > n {
		return 0, simerr.Config("start", start, "must index the spin array")
	}
	m := 0
	for i := start; i < n; i++ {
		if spins[i].Active {
			m++
		}
	}
	if m > constants.MaxPartitionSpins {
		return 0, simerr.Capacity("partition function over %d spins exceeds limit %d", m, constants.MaxPartitionSpins)
	}
	if work := math.Ldexp(float64(n)*float64(n), m); m > 0 && work > constants.MaxPartitionWork {
		return 0, simerr.Capacity("partition function over %d of %d spins needs %.3g pair evaluations, limit %d",
			m, n, work, int64(constants.MaxPartitionWork))
	}

	mask := flipMask(n, flips)
	var walk func(i int) float64
	walk = func(i int) float64 {
		if i == n {
			return math.Exp(-e.freeEnergy(spins, mask))
		}
		if !spins[i].Active {
			return walk(i + 1)
		}
		z := walk(i + 1)
		mask[i] = !mask[i]
		z += walk(i + 1)
		mask[i] = !mask[i]
		return z
	}
	return walk(start), nil
}

func flipMask(n int, flips []int) []bool {
	mask := make([]bool, n)
	for _, i := range flips {
		if i >= 0 && i < n {
			mask[i] = true
		}
	}
	return mask
}
