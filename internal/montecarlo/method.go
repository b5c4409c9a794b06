package montecarlo

import (
	"fmt"
	"strings"

	"github.com/nvandessel/hausdorff-ising/internal/simerr"
)

// Method is the update rule applied on each sweep.
type Method int

const (
	// Metropolis visits spins one at a time in index order.
	Metropolis Method = iota
	// HeatBath flips disjoint random blocks of spins in parallel.
	HeatBath
	// Hybrid runs Metropolis on even sweeps and heat-bath on odd sweeps.
	Hybrid
)

// String returns the canonical upper-case name.
func (m Method) String() string {
	switch m {
	case Metropolis:
		return "METROPOLIS"
	case HeatBath:
		return "HEATBATH"
	case Hybrid:
		return "HYBRID"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps a method name (case-insensitive) to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "METROPOLIS":
		return Metropolis, nil
	case "HEATBATH", "HEAT_BATH", "HEAT-BATH":
		return HeatBath, nil
	case "HYBRID":
		return Hybrid, nil
	default:
		return 0, simerr.Config("mc_method", s, "valid: METROPOLIS, HEATBATH, HYBRID")
	}
}

// valid reports whether m is one of the declared methods.
func (m Method) valid() bool {
	switch m {
	case Metropolis, HeatBath, Hybrid:
		return true
	}
	return false
}

// sweepMethod resolves the rule used for the given sweep index.
func (m Method) sweepMethod(sweep int) Method {
	switch m {
	case Hybrid:
		if sweep%2 == 0 {
			return Metropolis
		}
		return HeatBath
	default:
		return m
	}
}
