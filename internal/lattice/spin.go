package lattice

import "cmp"

// Spin is one lattice site: its binary state, whether it belongs to the
// fractal point set, and its position in the unit hypercube.
type Spin struct {
	S      int       // +1 or -1
	Active bool      // false for masked, non-fractal positions
	Coords []float64 // length ceil(D), each component in [0,1)
}

// Compare orders spins lexicographically by coordinate vector: the first
// differing component decides, and a shorter vector sorts before a longer
// one that it prefixes. It is suitable for slices.SortFunc.
func Compare(a, b Spin) int {
	n := min(len(a.Coords), len(b.Coords))
	for i := 0; i < n; i++ {
		if c := cmp.Compare(a.Coords[i], b.Coords[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a.Coords), len(b.Coords))
}

// Flip negates the spin state.
func (s *Spin) Flip() {
	s.S = -s.S
}

// Value returns the spin state as seen by observers: S for active sites and
// 0 for masked ones.
func (s Spin) Value() int {
	if !s.Active {
		return 0
	}
	return s.S
}

// Clone returns a deep copy; the coordinate slice is not shared.
func (s Spin) Clone() Spin {
	c := s
	c.Coords = append([]float64(nil), s.Coords...)
	return c
}
