package sampler

import (
	"fmt"

	"github.com/nozzle/scidice/notation"
)

// Strategy is the method used to draw a face.
type Strategy int

const (
	// Auto picks the default strategy for the distribution kind.
	Auto Strategy = iota
	// Direct draws a fair face directly. Uniform only.
	Direct
	// Rejection draws from the untruncated distribution and redraws values
	// falling outside [0, Faces].
	Rejection
	// Quantile draws a uniform value within the sampling range and maps it
	// through the inverse CDF.
	Quantile
	// CDFSearch binary searches a uniform value in the discretized CDF.
	CDFSearch
)

var strategyNames = map[Strategy]string{
	Auto:      "auto",
	Direct:    "direct",
	Rejection: "rejection",
	Quantile:  "quantile",
	CDFSearch: "cdf-search",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy returns the strategy with the given name.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return Auto, fmt.Errorf("unknown sampling strategy %q", name)
}

// Default returns the strategy bound to a distribution kind.
//
// Rejection is fastest for the normal and the exponential as long as misses
// are rare; their inverse CDFs are either not closed-form or cost more than
// the occasional redraw. The rotated exponential has a cheap closed-form
// inverse, so quantile sampling avoids rejection altogether.
func Default(kind notation.Kind) Strategy {
	switch kind {
	case notation.Normal, notation.Exponential:
		return Rejection
	case notation.RotatedExponential:
		return Quantile
	default:
		return Direct
	}
}

// MinRejectionMass is the smallest probability on [0, Faces] for which Auto
// binds rejection sampling. Below it Resolve falls back to Quantile.
const MinRejectionMass = 1e-6

// Resolve returns the strategy Auto binds for spec: the kind's Default,
// unless that is Rejection and the distribution places less than
// MinRejectionMass on [0, Faces].
func Resolve(spec notation.Spec) Strategy {
	s := Default(spec.Kind)
	if lo, hi := spec.SamplingRange(); s == Rejection && hi-lo < MinRejectionMass {
		return Quantile
	}
	return s
}

// Supports reports whether strategy s can sample kind.
func Supports(s Strategy, kind notation.Kind) bool {
	switch s {
	case Auto, Quantile, CDFSearch:
		return true
	case Direct:
		return kind == notation.Uniform
	case Rejection:
		return kind != notation.Uniform
	default:
		return false
	}
}
