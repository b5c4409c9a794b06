// Package constants provides named constants used throughout the hausdorff-ising codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Lattice defaults
const (
	// DefaultHausdorffDimension is the target fractal dimension of a new model.
	DefaultHausdorffDimension = 1.0

	// DefaultHausdorffSlices is the number of subdivisions per axis per level.
	DefaultHausdorffSlices = 2

	// DefaultLatticeDepth is the number of recursive subdivision levels.
	DefaultLatticeDepth = 1

	// MinHausdorffSlices is the smallest branching factor that still subdivides.
	MinHausdorffSlices = 2

	// ScaleTolerance absorbs floating-point error when comparing the Hausdorff
	// scale against 1/slices, so D=1 (scale exactly 1/n) is accepted.
	ScaleTolerance = 1e-12

	// CoordinateTolerance snaps coordinates that land within this distance of
	// 0 or 1 onto the unit torus.
	CoordinateTolerance = 1e-12
)

// Thermodynamic defaults
const (
	// DefaultTemperature is k_B*T for a new model.
	DefaultTemperature = 1.0

	// DefaultField is the external field coupling H.
	DefaultField = 1.0

	// DefaultCoupling is the neighbor coupling J.
	DefaultCoupling = 1.0

	// DefaultInteractionSigma is the exponent applied to pair distances.
	DefaultInteractionSigma = 1.0
)

// Monte Carlo defaults
const (
	// DefaultMCSteps is the number of sweeps performed by one run.
	DefaultMCSteps = 10000

	// DefaultThreads is the heat-bath worker pool size.
	DefaultThreads = 1

	// DefaultSeed seeds the master random stream when the caller passes 0.
	DefaultSeed int64 = 1
)

// Capacity limits
const (
	// MaxPartitionSpins bounds exact partition-function enumeration.
	// 2^20 configurations at O(n^2) each is the largest that finishes in seconds.
	MaxPartitionSpins = 20

	// MaxPartitionWork bounds 2^m * n^2, the pair evaluations needed to
	// enumerate m spins of an n-site lattice.
	MaxPartitionWork = 1 << 32

	// MaxCachedPairs bounds the pair-weight table kept by the energy evaluator
	// (8 bytes per entry; 1<<24 entries is 128 MiB).
	MaxCachedPairs = 1 << 24

	// MaxLatticeSpins bounds the number of sites a lattice may hold.
	MaxLatticeSpins = 1 << 22
)
