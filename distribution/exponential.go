package distribution

import (
	"math"
	"math/rand/v2"
)

// RotatedExponential is an exponential distribution reflected about Loc: its
// density grows toward Loc and is zero above it. Its CDF is the mirror image
// of the exponential survival function,
//
//	CDF(x) = exp((x - Loc) / Scale),  x <= Loc.
type RotatedExponential struct {
	Loc   float64
	Scale float64 // 1/λ
	Src   rand.Source
}

// CDF computes the value of the cumulative distribution function at x.
func (r RotatedExponential) CDF(x float64) float64 {
	if x >= r.Loc {
		return 1
	}
	return math.Exp((x - r.Loc) / r.Scale)
}

// Quantile returns the inverse of the cumulative distribution function.
func (r RotatedExponential) Quantile(p float64) float64 {
	if p < 0 || p > 1 {
		panic("distribution: quantile out of bounds")
	}
	return r.Loc + r.Scale*math.Log(p)
}

// Prob computes the value of the probability density function at x.
func (r RotatedExponential) Prob(x float64) float64 {
	if x > r.Loc {
		return 0
	}
	return math.Exp((x-r.Loc)/r.Scale) / r.Scale
}

// Rand returns a random sample drawn from the distribution.
func (r RotatedExponential) Rand() float64 {
	var e float64
	if r.Src == nil {
		e = rand.ExpFloat64()
	} else {
		e = rand.New(r.Src).ExpFloat64()
	}
	return r.Loc - r.Scale*e
}

// Exponential is the exponential distribution parameterized by its scale
// (1/λ). Its quantile function is derived by hand and is considerably cheaper
// than the general purpose one when called in tight sampling loops.
type Exponential struct {
	Scale float64
}

// CDF computes the value of the cumulative distribution function at x.
func (e Exponential) CDF(x float64) float64 {
	if x < 0 {
		return 0
	}
	return -math.Expm1(-x / e.Scale)
}

// Quantile returns -Scale * ln(1-q), the inverse of the CDF.
func (e Exponential) Quantile(q float64) float64 {
	return -e.Scale * math.Log1p(-q)
}

// QuantileTo stores the quantile of every element of qs in dst and returns
// it. If dst is nil a new slice is allocated.
func (e Exponential) QuantileTo(dst, qs []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(qs))
	}
	for i, q := range qs {
		dst[i] = -e.Scale * math.Log1p(-q)
	}
	return dst
}
