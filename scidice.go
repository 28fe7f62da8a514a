// Package scidice rolls dice described by a compact notation, optionally
// selecting the highest or lowest rolls, summing them, and drawing each face
// from a truncated normal, exponential or rotated exponential distribution
// instead of a fair die.
//
// This is a Go port of the SciDice Python library by Eric Vallee.
//
// Basic usage:
//
//	d, err := scidice.Parse(`\10d20:>3~n(10.0,6.6)`)
//	result, err := d.GenerateRolls() // the 3 highest of 10 rolls
//
// See package notation for the grammar.
package scidice

import (
	"fmt"
	"log"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/nozzle/scidice/distribution"
	"github.com/nozzle/scidice/internal/heap"
	"github.com/nozzle/scidice/internal/parallel"
	scirand "github.com/nozzle/scidice/internal/rand"
	"github.com/nozzle/scidice/notation"
	"github.com/nozzle/scidice/sampler"
)

// heapSelectRatio is how many times smaller than Rolls the kept amount must
// be before selection switches from a full sort to a bounded heap.
const heapSelectRatio = 8

// Config configures how dice are rolled.
type Config struct {
	// Seed for random number generation.
	// 0 draws a seed from crypto/rand.
	// Default: 0
	Seed uint64

	// Source is the name of the random source.
	// Options: "numpy", "mt19937", "xoshiro", "splitmix", "pcg"
	// "numpy" reproduces numpy.random.RandomState for the same seed.
	// Default: "numpy"
	Source string

	// Rand overrides Source and Seed with a caller supplied source. Every
	// die is drawn from it, so large batches are filled sequentially.
	// Default: nil
	Rand rand.Source

	// Strategy overrides the sampling strategy bound to the distribution.
	// Default: sampler.Auto
	Strategy sampler.Strategy

	// MaxRejectionRounds caps rejection sampling.
	// 0 derives the cap from the probability mass on [0, Faces].
	// Default: 0
	MaxRejectionRounds int

	// NumWorkers for filling large batches of rolls.
	// 0 = auto-detect based on CPU cores.
	// Default: 0
	NumWorkers int

	// Eager builds the discretized PMF and CDF when the dice are created
	// instead of on first use.
	// Default: false
	Eager bool

	// Verbose enables log output.
	// Default: false
	Verbose bool

	// Logger receives verbose output. nil uses the standard logger.
	// Default: nil
	Logger *log.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Seed:   0,
		Source: scirand.DefaultSource,
	}
}

func (c Config) logf(format string, args ...any) {
	if !c.Verbose {
		return
	}
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}

// Table is the distribution of a single die conditioned on [0, Faces]:
// PMF[k-1] is the probability of face k and CDF is its running sum.
type Table struct {
	PMF []float64
	CDF []float64
}

// Dice rolls one dice expression.
//
// A Dice is immutable apart from its lazily built Table, which is built at
// most once and is safe to request from several goroutines. Rolling is not
// safe for concurrent use because the random source is shared.
type Dice struct {
	spec    notation.Spec
	config  Config
	sampler *sampler.Sampler
	table   func() Table
}

// Parse creates dice for an expression using DefaultConfig.
func Parse(text string) (*Dice, error) {
	return New(text, DefaultConfig())
}

// New creates dice for an expression.
// Malformed or impossible expressions return a *notation.Error.
func New(text string, config Config) (*Dice, error) {
	spec, err := notation.Parse(text)
	if err != nil {
		return nil, err
	}
	return FromSpec(spec, config)
}

// FromSpec creates dice for an already parsed expression.
func FromSpec(spec notation.Spec, config Config) (*Dice, error) {
	if config.Source == "" {
		config.Source = scirand.DefaultSource
	}

	// A caller supplied source draws every die; batches are never forked
	// onto registry sources.
	src := config.Rand
	var newSource func(seed uint64) rand.Source
	if src == nil {
		seed := config.Seed
		var err error
		if seed == 0 {
			if seed, err = scirand.NewSeed(); err != nil {
				return nil, err
			}
		}
		if src, err = scirand.NewSource(config.Source, seed); err != nil {
			return nil, err
		}
		newSource, _ = scirand.Constructor(config.Source)
	}

	workers := config.NumWorkers
	if workers <= 0 {
		workers = parallel.NumWorkers()
	}

	d := &Dice{spec: spec, config: config}
	d.table = sync.OnceValue(d.buildTable)

	strategy := config.Strategy
	if strategy == sampler.Auto {
		strategy = sampler.Resolve(spec)
	}
	var cdf []float64
	if config.Eager || strategy == sampler.CDFSearch {
		cdf = d.table().CDF
	}

	var err error
	d.sampler, err = sampler.New(spec, src, cdf, sampler.Config{
		Strategy:   strategy,
		MaxRounds:  config.MaxRejectionRounds,
		NumWorkers: workers,
		NewSource:  newSource,
	})
	if err != nil {
		return nil, fmt.Errorf("dice %q: %w", spec.Text, err)
	}

	config.logf("scidice: %s: %s sampling of %s", spec.Text, d.sampler.Strategy(), spec.DistributionString())
	return d, nil
}

// MustParse is like Parse but panics if the expression is rejected.
func MustParse(text string) *Dice {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

// Spec returns the parsed expression.
func (d *Dice) Spec() notation.Spec {
	return d.spec
}

// Strategy returns the sampling strategy in use.
func (d *Dice) Strategy() sampler.Strategy {
	return d.sampler.Strategy()
}

// GenerateRolls rolls the dice.
//
// A single die, or dice without a leading backslash, yield a scalar Result.
// Otherwise the Result holds the rolls, restricted to the kept amount (sorted
// ascending for `:<`, descending for `:>`) when order selection is active.
func (d *Dice) GenerateRolls() (Result, error) {
	if d.spec.Rolls == 1 {
		v, err := d.sampler.Roll()
		if err != nil {
			return Result{}, fmt.Errorf("roll %s: %w", d.spec.Text, err)
		}
		return scalarResult(v), nil
	}

	values := make([]int, d.spec.Rolls)
	if err := d.sampler.Rolls(values); err != nil {
		return Result{}, fmt.Errorf("roll %s: %w", d.spec.Text, err)
	}
	if d.spec.Selects() {
		values = keep(values, d.spec.Amount, d.spec.Descending())
	}
	if d.spec.Sum {
		return scalarResult(sum(values)), nil
	}
	return vectorResult(values), nil
}

// keep returns the amount most extreme values: the lowest ascending, or the
// highest descending.
func keep(values []int, amount int, descending bool) []int {
	if amount*heapSelectRatio < len(values) {
		if descending {
			return heap.Largest(values, amount)
		}
		return heap.Smallest(values, amount)
	}
	slices.Sort(values)
	if descending {
		slices.Reverse(values)
	}
	return values[:amount]
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

// PMF returns the probability of each face, building the table on first use.
// The returned slice must not be modified.
func (d *Dice) PMF() []float64 {
	return d.table().PMF
}

// CDF returns the cumulative probability of each face, building the table on
// first use. The returned slice must not be modified.
func (d *Dice) CDF() []float64 {
	return d.table().CDF
}

func (d *Dice) buildTable() Table {
	var t Table
	if d.spec.Kind == notation.Uniform {
		t.PMF, t.CDF = distribution.UniformTable(d.spec.Faces)
	} else {
		t.PMF, t.CDF = distribution.Discretize(d.spec.Continuous(), d.spec.Faces)
	}
	d.config.logf("scidice: %s: built %d-face distribution table", d.spec.Text, d.spec.Faces)
	return t
}

// String describes the dice.
func (d *Dice) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generator string: %s\n", d.spec.Text)
	fmt.Fprintf(&b, "Rolls: %d\n", d.spec.Rolls)
	fmt.Fprintf(&b, "Faces: %d\n", d.spec.Faces)
	if d.spec.Sum {
		b.WriteString("Sum: Yes\n")
	} else {
		b.WriteString("Sum: No\n")
	}
	if d.spec.Selects() {
		fmt.Fprintf(&b, "Keep: %d %s\n", d.spec.Amount, d.spec.Order)
	}
	fmt.Fprintf(&b, "Distribution: %s\n", d.spec.DistributionString())
	fmt.Fprintf(&b, "Sampling: %s", d.sampler.Strategy())
	if d.spec.Kind != notation.Uniform {
		lo, hi := d.spec.SamplingRange()
		fmt.Fprintf(&b, "\nUniform sample range: [%g %g]", lo, hi)
		fmt.Fprintf(&b, "\nUniform sample range length: %g", hi-lo)
	}
	return b.String()
}
