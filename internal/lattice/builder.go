// Package lattice builds the self-similar point set that hosts the spins.
//
// The unit hypercube [0,1]^p (p = ceil(D)) is subdivided recursively: at each
// of Depth levels every cell is split into Slices candidate sub-intervals per
// axis, each shrunk by the Hausdorff scale. A mixed-radix counter over p*Depth
// digits locates the lower corner of every surviving leaf cell and a binary
// counter over p digits places one spin on each of its 2^p corners.
// Coordinates live on the unit torus, so the far face 1.0 wraps to 0.0.
package lattice

import (
	"math"
	"slices"

	"github.com/nvandessel/hausdorff-ising/internal/constants"
)

// Lattice is the sorted collection of spins produced by Build.
type Lattice struct {
	Params Params
	Scale  float64
	Spins  []Spin

	// Dimensions holds the number of distinct site coordinates on each axis.
	Dimensions []int
}

// NumSpins returns the number of active sites.
func (l *Lattice) NumSpins() int {
	n := 0
	for i := range l.Spins {
		if l.Spins[i].Active {
			n++
		}
	}
	return n
}

// Build enumerates every site of the lattice described by p and returns them
// sorted by Compare. All spins start in the +1 state.
func Build(p Params) (*Lattice, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	axes := p.Axes()
	scale := p.Scale()
	side := math.Pow(scale, float64(p.Depth))

	// A child of a cell with side L sits at offset j*L*(1-s)/(n-1).
	spacing := make([]float64, p.Depth)
	for level := range spacing {
		spacing[level] = (1 - scale) / float64(p.Slices-1) * math.Pow(scale, float64(level))
	}

	cells := NewUniformCounter(axes*p.Depth, p.Slices)
	corners := NewUniformCounter(axes, 2)

	spins := make([]Spin, 0, p.ExpectedSpins())
	origin := make([]float64, axes)
	for digits := range cells.Tuples() {
		for a := range origin {
			origin[a] = 0
			for level := 0; level < p.Depth; level++ {
				origin[a] += float64(digits[level*axes+a]) * spacing[level]
			}
		}
		for offset := range corners.Tuples() {
			coords := make([]float64, axes)
			for a := range coords {
				coords[a] = wrapUnit(origin[a] + float64(offset[a])*side)
			}
			spins = append(spins, Spin{S: 1, Active: true, Coords: coords})
		}
	}

	slices.SortFunc(spins, Compare)

	return &Lattice{
		Params:     p,
		Scale:      scale,
		Spins:      spins,
		Dimensions: axisDimensions(spins, axes),
	}, nil
}

// wrapUnit maps x from [0,1] onto [0,1), snapping accumulated rounding error
// so that sites reached along different digit paths compare equal.
func wrapUnit(x float64) float64 {
	const grid = 1 / constants.CoordinateTolerance
	x = math.Round(x*grid) / grid
	if x >= 1 {
		x -= 1
	}
	if x <= 0 {
		return 0
	}
	return x
}

// axisDimensions counts the distinct coordinate values on each axis.
func axisDimensions(spins []Spin, axes int) []int {
	dims := make([]int, axes)
	values := make([]float64, 0, len(spins))
	for a := 0; a < axes; a++ {
		values = values[:0]
		for i := range spins {
			if spins[i].Active {
				values = append(values, spins[i].Coords[a])
			}
		}
		slices.Sort(values)
		dims[a] = len(slices.Compact(values))
	}
	return dims
}
