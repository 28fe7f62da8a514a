package scidice

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Fit is the result of a chi-square goodness-of-fit test of rolled faces
// against a PMF.
type Fit struct {
	Statistic        float64
	DegreesOfFreedom int
	PValue           float64

	// Observed and Expected counts per face.
	Observed []float64
	Expected []float64
}

// ChiSquare tests faces, each in [1, len(pmf)], against pmf.
// Faces the PMF gives no probability are left out of the statistic unless
// they were rolled, in which case the fit is rejected outright.
func ChiSquare(pmf []float64, faces []int) (Fit, error) {
	if len(faces) == 0 {
		return Fit{}, fmt.Errorf("chi-square: no faces")
	}
	fit := Fit{
		Observed: make([]float64, len(pmf)),
		Expected: make([]float64, len(pmf)),
	}
	for _, f := range faces {
		if f < 1 || f > len(pmf) {
			return Fit{}, fmt.Errorf("chi-square: face %d out of range [1, %d]", f, len(pmf))
		}
		fit.Observed[f-1]++
	}
	floats.ScaleTo(fit.Expected, float64(len(faces)), pmf)

	obs := make([]float64, 0, len(pmf))
	exp := make([]float64, 0, len(pmf))
	for i, e := range fit.Expected {
		if e > 0 {
			obs = append(obs, fit.Observed[i])
			exp = append(exp, e)
		} else if fit.Observed[i] > 0 {
			fit.Statistic = math.Inf(1)
		}
	}
	fit.DegreesOfFreedom = len(exp) - 1

	switch {
	case math.IsInf(fit.Statistic, 1):
		fit.PValue = 0
	case fit.DegreesOfFreedom < 1:
		fit.PValue = 1
	default:
		fit.Statistic = stat.ChiSquare(obs, exp)
		fit.PValue = distuv.ChiSquared{K: float64(fit.DegreesOfFreedom)}.Survival(fit.Statistic)
	}
	return fit, nil
}

// GoodnessOfFit rolls n single dice and tests them against the dice's PMF.
// Selection and summing do not apply.
func (d *Dice) GoodnessOfFit(n int) (Fit, error) {
	if n <= 0 {
		return Fit{}, fmt.Errorf("goodness of fit: need a positive number of rolls, got %d", n)
	}
	faces := make([]int, n)
	if err := d.sampler.Rolls(faces); err != nil {
		return Fit{}, fmt.Errorf("goodness of fit %s: %w", d.spec.Text, err)
	}
	return ChiSquare(d.PMF(), faces)
}
