package montecarlo

import (
	"math/rand"

	"github.com/nvandessel/hausdorff-ising/internal/constants"
)

// Source is the random stream consumed by the engine. *rand.Rand satisfies
// it; tests inject fixed streams to pin accept/reject decisions.
//
// A Source is only ever used from the coordinating goroutine. Heat-bath
// workers get their own streams derived from a per-sweep seed.
type Source interface {
	Float64() float64 // uniform on [0,1)
	Intn(n int) int   // uniform on [0,n)
	Int63() int64     // uniform non-negative
}

// NewSource returns a deterministic stream. Seed 0 selects constants.DefaultSeed.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = constants.DefaultSeed
	}
	return rand.New(rand.NewSource(seed))
}

// deriveSeed mixes a parent seed and a stream identifier with the SplitMix64
// finalizer, so neighbouring block indices get uncorrelated streams.
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// blockSource returns the stream owned by block k of a sweep.
func blockSource(sweepSeed int64, k int) *rand.Rand {
	return rand.New(rand.NewSource(deriveSeed(sweepSeed, uint64(k))))
}

// shuffle performs an in-place Fisher–Yates shuffle driven by src.
func shuffle(a []int, src Source) {
	for i := len(a) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}
