package lattice

import (
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/hausdorff-ising/internal/constants"
	"github.com/nvandessel/hausdorff-ising/internal/simerr"
)

// ScalingMethod selects how the Hausdorff dimension shapes the lattice.
type ScalingMethod int

const (
	// Scaling shrinks each sub-cube by slices^(-1/D) per level.
	Scaling ScalingMethod = iota
	// Splitting keeps the scale at 1/slices so sub-cubes tile their parent.
	Splitting
)

// String returns the canonical upper-case name.
func (m ScalingMethod) String() string {
	switch m {
	case Scaling:
		return "SCALING"
	case Splitting:
		return "SPLITTING"
	default:
		return fmt.Sprintf("ScalingMethod(%d)", int(m))
	}
}

// ParseScalingMethod maps a method name (case-insensitive) to a ScalingMethod.
func ParseScalingMethod(s string) (ScalingMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SCALING":
		return Scaling, nil
	case "SPLITTING":
		return Splitting, nil
	default:
		return 0, simerr.Config("hausdorff_method", s, "valid: SCALING, SPLITTING")
	}
}

// Params are the inputs that fully determine a lattice.
type Params struct {
	Dimension float64       // Hausdorff dimension D > 0
	Slices    int           // subdivisions per axis per level, >= 2
	Depth     int           // recursion levels, >= 0
	Method    ScalingMethod // how the scale is derived
}

// Axes returns p = ceil(D), the length of every coordinate vector.
func (p Params) Axes() int {
	return int(math.Ceil(p.Dimension))
}

// Scale returns the per-level edge shrink factor.
func (p Params) Scale() float64 {
	if p.Method == Splitting {
		return 1 / float64(p.Slices)
	}
	return math.Pow(float64(p.Slices), -1/p.Dimension)
}

// ExpectedSpins returns 2^p * slices^(p*depth), the number of sites Build
// produces for valid parameters.
func (p Params) ExpectedSpins() int {
	axes := p.Axes()
	total := 1 << axes
	for i := 0; i < axes*p.Depth; i++ {
		total *= p.Slices
	}
	return total
}

// Validate checks that the parameters describe a buildable lattice.
func (p Params) Validate() error {
	if math.IsNaN(p.Dimension) || math.IsInf(p.Dimension, 0) || p.Dimension <= 0 {
		return simerr.Config("hausdorff_dimension", p.Dimension, "must be a finite value > 0")
	}
	if p.Slices < constants.MinHausdorffSlices {
		return simerr.Config("hausdorff_slices", p.Slices, "must be at least 2")
	}
	if p.Depth < 0 {
		return simerr.Config("lattice_depth", p.Depth, "must be >= 0")
	}
	if p.Method != Scaling && p.Method != Splitting {
		return simerr.Config("hausdorff_method", p.Method, "valid: SCALING, SPLITTING")
	}
	if scale := p.Scale(); scale > 1/float64(p.Slices)+constants.ScaleTolerance {
		return simerr.Config("hausdorff_scale", scale,
			fmt.Sprintf("exceeds 1/slices=%g; sub-cubes would overlap", 1/float64(p.Slices)))
	}

	// Guard the integer arithmetic in Axes and ExpectedSpins. The corner
	// count alone is 2^ceil(D), so D is checked before any int conversion.
	limit := math.Log2(constants.MaxLatticeSpins)
	if p.Dimension > limit {
		return simerr.Capacity("dimension %g needs at least 2^%g spins, limit %d", p.Dimension, math.Ceil(p.Dimension), constants.MaxLatticeSpins)
	}
	exponent := math.Ceil(p.Dimension) * (1 + float64(p.Depth)*math.Log2(float64(p.Slices)))
	if exponent > limit {
		return simerr.Capacity("lattice of 2^%.1f spins exceeds limit %d", exponent, constants.MaxLatticeSpins)
	}
	return nil
}
