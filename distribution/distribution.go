// Package distribution provides the closed-form distributions and CDF helpers
// used to model dice whose faces are not equally likely.
//
// The helpers work with any type exposing a CDF, which includes gonum's
// distuv distributions as well as the RotatedExponential and Exponential
// types defined here.
package distribution

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CDFer is a distribution with a cumulative distribution function.
type CDFer interface {
	CDF(x float64) float64
}

// Quantiler is a distribution with an inverse cumulative distribution function.
type Quantiler interface {
	Quantile(p float64) float64
}

// Continuous is a distribution exposing both its CDF and its inverse.
type Continuous interface {
	CDFer
	Quantiler
}

// RangeConditionalCDF returns the CDF of d at x conditioned on the interval
// [min, max]:
//
//	(CDF(x) - CDF(min)) / (CDF(max) - CDF(min))
//
// A min of -Inf stands for an open lower bound (CDF 0) and a max of +Inf for
// an open upper bound (CDF 1). Results outside [0, 1] lie outside the
// conditioning window and are reported as 0.
func RangeConditionalCDF(d CDFer, min, max, x float64) float64 {
	lo, hi := window(d, min, max)
	return inWindow((d.CDF(x) - lo) / (hi - lo))
}

// RangeConditionalCDFs is the vector form of RangeConditionalCDF. It stores
// the conditional CDF of every element of xs in dst and returns it. If dst is
// nil a new slice is allocated, otherwise it must have the length of xs.
func RangeConditionalCDFs(dst []float64, d CDFer, min, max float64, xs []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(xs))
	}
	if len(dst) != len(xs) {
		panic("distribution: slice length mismatch")
	}
	lo, hi := window(d, min, max)
	span := hi - lo
	for i, x := range xs {
		dst[i] = inWindow((d.CDF(x) - lo) / span)
	}
	return dst
}

func window(d CDFer, min, max float64) (lo, hi float64) {
	lo, hi = 0, 1
	if !math.IsInf(min, -1) {
		lo = d.CDF(min)
	}
	if !math.IsInf(max, 1) {
		hi = d.CDF(max)
	}
	return lo, hi
}

// inWindow forces values outside [0, 1], NaN included, to 0.
func inWindow(p float64) float64 {
	if p >= 0 && p <= 1 {
		return p
	}
	return 0
}

// FromCDFToPMF converts an ordered CDF sample into probability masses: the
// first mass is cdf[0] (the CDF is implicitly 0 before the first point) and
// the rest are first differences. If dst is nil a new slice is allocated.
func FromCDFToPMF(dst, cdf []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(cdf))
	}
	if len(dst) != len(cdf) {
		panic("distribution: slice length mismatch")
	}
	if len(cdf) == 0 {
		return dst
	}
	if len(cdf) > 1 {
		floats.SubTo(dst[1:], cdf[1:], cdf[:len(cdf)-1])
	}
	dst[0] = cdf[0]
	return dst
}

// Discretize conditions d on [0, faces] and returns the probability of each
// face together with the running CDF. Face k covers the interval (k-1, k].
func Discretize(d CDFer, faces int) (pmf, cdf []float64) {
	xs := make([]float64, faces)
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	cdf = RangeConditionalCDFs(xs, d, 0, float64(faces), xs)
	pmf = FromCDFToPMF(nil, cdf)
	return pmf, cdf
}

// UniformTable returns the masses and running CDF of a fair die.
func UniformTable(faces int) (pmf, cdf []float64) {
	pmf = make([]float64, faces)
	for i := range pmf {
		pmf[i] = 1 / float64(faces)
	}
	cdf = floats.CumSum(make([]float64, faces), pmf)
	return pmf, cdf
}
