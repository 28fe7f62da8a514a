package scidice

import (
	"bytes"
	"errors"
	"log"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	scirand "github.com/nozzle/scidice/internal/rand"
	"github.com/nozzle/scidice/notation"
	"github.com/nozzle/scidice/sampler"
)

func seeded(seed uint64) Config {
	config := DefaultConfig()
	config.Seed = seed
	return config
}

func roll(t *testing.T, text string, config Config) Result {
	t.Helper()
	d, err := New(text, config)
	require.NoError(t, err)
	r, err := d.GenerateRolls()
	require.NoError(t, err)
	return r
}

func TestScalarAndVectorResults(t *testing.T) {
	tests := []struct {
		text   string
		scalar bool
		length int
		lo, hi int
	}{
		{"3d6", true, 1, 3, 18},
		{`\3d6`, false, 3, 1, 6},
		{`\1d4`, true, 1, 1, 4},
		{"1d4", true, 1, 1, 4},
		{`\10d6:>4`, false, 4, 1, 6},
		{"10d6:>4", true, 1, 4, 24},
		{`\6d10:<3~n(4,4.1)`, false, 3, 1, 10},
		{"6d10:<0", true, 1, 6, 60},
		{`\5d8~e(0.25)`, false, 5, 1, 8},
		{"5d8~re(0.25)", true, 1, 5, 40},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			for seed := uint64(1); seed <= 20; seed++ {
				r := roll(t, tt.text, seeded(seed))
				require.Equal(t, tt.scalar, r.IsScalar())
				require.Equal(t, tt.length, r.Len())
				if tt.scalar {
					assert.Nil(t, r.Values())
					assert.GreaterOrEqual(t, r.Value(), tt.lo)
					assert.LessOrEqual(t, r.Value(), tt.hi)
					continue
				}
				for _, v := range r.Values() {
					assert.GreaterOrEqual(t, v, tt.lo)
					assert.LessOrEqual(t, v, tt.hi)
				}
			}
		})
	}
}

func TestSelectionOrder(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		low := roll(t, `\12d20:<5`, seeded(seed)).Values()
		assert.True(t, slices.IsSorted(low), "%v", low)

		high := roll(t, `\12d20:>5`, seeded(seed)).Values()
		assert.True(t, slices.IsSortedFunc(high, func(a, b int) int { return b - a }), "%v", high)

		// Same seed, same rolls: the kept extremes bracket the rest.
		all := roll(t, `\12d20`, seeded(seed)).Values()
		slices.Sort(all)
		assert.Equal(t, all[:5], low)
		assert.Equal(t, all[7:], reversed(high))
	}
}

func reversed(s []int) []int {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}

func TestKeepHeapMatchesSort(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	values := make([]int, 1000)
	for i := range values {
		values[i] = rng.IntN(100) + 1
	}
	for _, amount := range []int{1, 3, 50, 124, 125, 999, 1000} {
		sorted := slices.Clone(values)
		slices.Sort(sorted)

		assert.Equal(t, sorted[:amount], keep(slices.Clone(values), amount, false), "lowest %d", amount)
		assert.Equal(t, reversed(sorted)[:amount], keep(slices.Clone(values), amount, true), "highest %d", amount)
	}
}

func TestExtremeSelection(t *testing.T) {
	if testing.Short() {
		t.Skip("rolls a million dice")
	}
	low := roll(t, `\1000000d6:<10`, seeded(1))
	assert.Equal(t, 10, low.Len())
	assert.Equal(t, 10, low.Value())

	high := roll(t, `1000000d6:>10`, seeded(1))
	assert.True(t, high.IsScalar())
	assert.Equal(t, 60, high.Value())
}

func TestInvalidExpressions(t *testing.T) {
	for _, text := range []string{"6d10:<7", "10d6~n(3,0)", "1d4~e(0)", "0d6", "1d10~n(-1000,1)"} {
		_, err := Parse(text)
		assert.ErrorIs(t, err, notation.ErrValidation, text)

		var perr *notation.Error
		require.True(t, errors.As(err, &perr), text)
		assert.Equal(t, text, perr.Input)
	}

	_, err := Parse("3d6~x(1)")
	assert.ErrorIs(t, err, notation.ErrSyntax)

	assert.Panics(t, func() { MustParse("d6") })
}

func TestUnknownSource(t *testing.T) {
	config := seeded(1)
	config.Source = "dice-cup"
	_, err := New("3d6", config)
	assert.Error(t, err)

	// A caller supplied source does not need a known name.
	config.Rand = rand.NewPCG(1, 2)
	_, err = New("3d6", config)
	assert.NoError(t, err)
}

func TestSeededRollsAreReproducible(t *testing.T) {
	for _, source := range scirand.SourceNames() {
		config := seeded(99)
		config.Source = source
		first := roll(t, `\20d6~n(3)`, config)
		assert.Equal(t, first, roll(t, `\20d6~n(3)`, config), source)
	}

	// numpy.random.RandomState(42).randint(1, 7, 6)
	want := []int{4, 5, 3, 5, 5, 2}
	assert.Equal(t, want, roll(t, `\6d6`, seeded(42)).Values())

	config := DefaultConfig()
	config.Rand = scirand.NewMT19937(42)
	assert.Equal(t, want, roll(t, `\6d6`, config).Values())
}

type countingSource struct {
	src   rand.Source
	draws int
}

func (c *countingSource) Uint64() uint64 {
	c.draws++
	return c.src.Uint64()
}

func TestCallerSourceDrawsLargeBatches(t *testing.T) {
	const rolls = 100000
	src := &countingSource{src: rand.NewPCG(3, 4)}
	config := DefaultConfig()
	config.Rand = src
	config.NumWorkers = 4
	d, err := New(`\100000d6`, config)
	require.NoError(t, err)

	r, err := d.GenerateRolls()
	require.NoError(t, err)
	require.Equal(t, rolls, r.Len())
	assert.GreaterOrEqual(t, src.draws, rolls)

	// Same stream, same rolls.
	config.Rand = rand.NewPCG(3, 4)
	again := roll(t, `\100000d6`, config)
	assert.Equal(t, r.Values(), again.Values())
}

func TestUnseededRolls(t *testing.T) {
	d, err := Parse(`\4d6`)
	require.NoError(t, err)
	r, err := d.GenerateRolls()
	require.NoError(t, err)
	assert.Equal(t, 4, r.Len())
}

func TestStrategyBinding(t *testing.T) {
	for text, want := range map[string]sampler.Strategy{
		"3d6":       sampler.Direct,
		"3d6~n(2)":  sampler.Rejection,
		"3d6~e(1)":  sampler.Rejection,
		"3d6~re(1)": sampler.Quantile,
	} {
		assert.Equal(t, want, MustParse(text).Strategy(), text)
	}

	config := seeded(1)
	config.Strategy = sampler.Rejection
	_, err := New("3d6", config)
	assert.ErrorIs(t, err, sampler.ErrUnsupportedStrategy)

	// Too little mass on [0, Faces] for rejection to be practical.
	for _, text := range []string{`\50d6~e(0.0000001)`, `\50d6~n(-30,5)`, `\50d6~re(0.0000001)`} {
		d, err := New(text, seeded(1))
		require.NoError(t, err, text)
		assert.Equal(t, sampler.Quantile, d.Strategy(), text)

		r, err := d.GenerateRolls()
		require.NoError(t, err, text)
		for _, v := range r.Values() {
			assert.GreaterOrEqual(t, v, 1, text)
			assert.LessOrEqual(t, v, 6, text)
		}
	}
}

func verbose(buf *bytes.Buffer, config Config) Config {
	config.Verbose = true
	config.Logger = log.New(buf, "", 0)
	return config
}

func TestTableIsLazy(t *testing.T) {
	var buf bytes.Buffer
	d, err := New(`\3d10~n(4,2)`, verbose(&buf, seeded(1)))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "rejection sampling of n(4,2)")
	assert.NotContains(t, buf.String(), "distribution table")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.PMF()
			d.CDF()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, strings.Count(buf.String(), "distribution table"))

	pmf := d.PMF()
	require.Len(t, pmf, 10)
	assert.InDelta(t, 1, floats.Sum(pmf), 1e-12)
	assert.InDelta(t, 1, d.CDF()[9], 1e-12)
}

func TestEagerTable(t *testing.T) {
	var buf bytes.Buffer
	config := verbose(&buf, seeded(1))
	config.Eager = true
	d, err := New(`\3d6`, config)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(buf.String(), "distribution table"))

	for _, p := range d.PMF() {
		assert.InDelta(t, 1.0/6, p, 1e-15)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "distribution table"))

	buf.Reset()
	config = verbose(&buf, seeded(1))
	config.Strategy = sampler.CDFSearch
	d, err = New(`\3d6~re(0.3)`, config)
	require.NoError(t, err)
	assert.Equal(t, sampler.CDFSearch, d.Strategy())
	assert.Equal(t, 1, strings.Count(buf.String(), "distribution table"))
}

func TestQuietByDefault(t *testing.T) {
	var buf bytes.Buffer
	config := seeded(1)
	config.Logger = log.New(&buf, "", 0)
	d, err := New(`\3d6~n(2)`, config)
	require.NoError(t, err)
	d.PMF()
	assert.Empty(t, buf.String())
}

func TestDiceString(t *testing.T) {
	s := MustParse(`\10d20:>3~n(10.0,6.6)`).String()
	assert.Contains(t, s, `Generator string: \10d20:>3~n(10.0,6.6)`)
	assert.Contains(t, s, "Rolls: 10\n")
	assert.Contains(t, s, "Faces: 20\n")
	assert.Contains(t, s, "Sum: No\n")
	assert.Contains(t, s, "Keep: 3 highest\n")
	assert.Contains(t, s, "Distribution: n(10,6.6)\n")
	assert.Contains(t, s, "Sampling: rejection")
	assert.Contains(t, s, "Uniform sample range: [")

	s = MustParse("3d6").String()
	assert.Contains(t, s, "Sum: Yes\n")
	assert.NotContains(t, s, "Keep:")
	assert.NotContains(t, s, "Uniform sample range")
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "7", scalarResult(7).String())
	r := vectorResult([]int{1, 2, 3})
	assert.Equal(t, "[1 2 3]", r.String())
	assert.Equal(t, 6, r.Value())
	assert.False(t, r.IsScalar())
}

func TestChiSquare(t *testing.T) {
	fit, err := ChiSquare([]float64{0.5, 0.5, 0}, []int{1, 2, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, fit.Statistic)
	assert.Equal(t, 1, fit.DegreesOfFreedom)
	assert.InDelta(t, 1, fit.PValue, 1e-12)
	assert.Equal(t, []float64{2, 2, 0}, fit.Observed)
	assert.Equal(t, []float64{2, 2, 0}, fit.Expected)

	fit, err = ChiSquare([]float64{1, 0}, []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, fit.PValue)

	fit, err = ChiSquare([]float64{0.25, 0.75}, []int{1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 24, fit.Statistic, 1e-12)
	assert.Less(t, fit.PValue, 1e-5)

	_, err = ChiSquare([]float64{1}, []int{2})
	assert.Error(t, err)
	_, err = ChiSquare([]float64{1}, nil)
	assert.Error(t, err)
}

// Sampled faces follow the discretized distribution for every kind.
func TestGoodnessOfFit(t *testing.T) {
	if testing.Short() {
		t.Skip("rolls a million dice per expression")
	}
	for _, text := range []string{
		`\1000000d100`,
		`\1000000d100~n(30)`,
		`\1000000d100~n(20,15)`,
		`\1000000d100~e(0.02)`,
		`\1000000d100~re(0.02)`,
	} {
		t.Run(text, func(t *testing.T) {
			d, err := New(text, seeded(2024))
			require.NoError(t, err)
			fit, err := d.GoodnessOfFit(d.Spec().Rolls)
			require.NoError(t, err)
			assert.Equal(t, 99, fit.DegreesOfFreedom)
			assert.GreaterOrEqual(t, fit.PValue, 0.01, "chi2=%.1f", fit.Statistic)
		})
	}

	_, err := MustParse("3d6").GoodnessOfFit(0)
	assert.Error(t, err)
}
