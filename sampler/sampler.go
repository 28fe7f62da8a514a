// Package sampler draws die faces for a parsed dice expression.
//
// Each distribution kind is bound to one of four strategies when the sampler
// is built (see Default): direct draws for fair dice, rejection of
// out-of-range draws, inverse-CDF sampling within the sampling range, and
// binary search over a discretized CDF. All strategies produce faces in
// [1, Faces] with the distribution truncated to [0, Faces], and a single Roll
// has the same marginal distribution as any element of a batch.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/nozzle/scidice/distribution"
	"github.com/nozzle/scidice/internal/parallel"
	"github.com/nozzle/scidice/notation"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrUnsupportedStrategy is returned when a strategy cannot sample a kind.
	ErrUnsupportedStrategy = errors.New("sampler: unsupported strategy")
	// ErrMissingTable is returned when CDFSearch has no discretized CDF.
	ErrMissingTable = errors.New("sampler: cdf-search requires a discretized CDF of length Faces")
	// ErrRejectionExhausted is returned when rejection sampling runs out of
	// rounds before every die landed in [0, Faces].
	ErrRejectionExhausted = errors.New("sampler: rejection sampling exhausted its rounds")
)

const (
	// chunkSize is the number of dice filled by one worker task. Chunking
	// depends only on the batch length, so seeded batches are reproducible
	// for any number of workers.
	chunkSize = 1 << 16

	// rejectionConfidence scales the default round limit: a die misses all
	// rounds with probability about exp(-rejectionConfidence).
	rejectionConfidence = 64
)

// Config configures a Sampler.
type Config struct {
	// Strategy overrides the strategy bound to the distribution.
	// Default: Auto (see Resolve)
	Strategy Strategy

	// MaxRounds caps rejection sampling: draws for a single die, redraw
	// rounds for a batch. 0 derives the cap from the sampling mass.
	MaxRounds int

	// NumWorkers is the number of goroutines filling chunked batches.
	// Values <= 1 fill the chunks one after the other.
	NumWorkers int

	// NewSource builds the source of a batch chunk from a seed drawn from
	// the sampler's own source. Without it batches are never chunked.
	NewSource func(seed uint64) rand.Source
}

// Sampler draws faces for one dice expression. It is not safe for
// concurrent use unless its source is.
type Sampler struct {
	spec      notation.Spec
	strategy  Strategy
	cfg       Config
	cdf       []float64
	maxRounds int
	faces     float64
	lo, hi    float64

	src      rand.Source
	rng      *rand.Rand
	intn     func(n int) int
	draw     func() float64
	quantile func(p float64) float64
	// quantiles maps a batch of probabilities in place, when the
	// distribution has a batch form.
	quantiles func(ps []float64)
	window    distuv.Uniform
}

// New builds a sampler for spec drawing from src. cdf is the discretized
// CDF of the spec (see distribution.Discretize); it is only required by the
// CDFSearch strategy and may be nil otherwise.
func New(spec notation.Spec, src rand.Source, cdf []float64, cfg Config) (*Sampler, error) {
	strategy := cfg.Strategy
	if strategy == Auto {
		strategy = Resolve(spec)
	}
	if !Supports(strategy, spec.Kind) {
		return nil, fmt.Errorf("%w: %s sampling of a %s die", ErrUnsupportedStrategy, strategy, spec.Kind)
	}
	if strategy == CDFSearch && len(cdf) != spec.Faces {
		return nil, ErrMissingTable
	}

	s := &Sampler{
		spec:      spec,
		strategy:  strategy,
		cfg:       cfg,
		cdf:       cdf,
		maxRounds: cfg.MaxRounds,
		faces:     float64(spec.Faces),
	}
	s.lo, s.hi = spec.SamplingRange()
	if s.maxRounds <= 0 {
		s.maxRounds = RejectionLimit(s.hi - s.lo)
	}
	s.bind(src)
	return s, nil
}

// RejectionLimit returns the default rejection round cap for a distribution
// placing mass of its probability on [0, Faces].
func RejectionLimit(mass float64) int {
	if !(mass > 0) {
		return math.MaxInt32
	}
	n := math.Ceil(rejectionConfidence / mass)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return max(int(n), rejectionConfidence)
}

// numpyInts is implemented by sources reproducing NumPy's randint.
type numpyInts interface {
	RandInt(low, high int) int
}

// bind wires the draw functions to src.
func (s *Sampler) bind(src rand.Source) {
	s.src = src
	s.rng = rand.New(src)
	s.intn = s.rng.IntN
	if np, ok := src.(numpyInts); ok && uint64(s.spec.Faces) <= math.MaxUint32 {
		s.intn = func(n int) int { return np.RandInt(0, n) }
	}
	s.window = distuv.Uniform{Min: s.lo, Max: s.hi, Src: src}

	switch s.spec.Kind {
	case notation.Normal:
		d := distuv.Normal{Mu: s.spec.Mean, Sigma: s.spec.SD, Src: src}
		s.draw, s.quantile = d.Rand, d.Quantile
	case notation.Exponential:
		d := distuv.Exponential{Rate: s.spec.Lambda, Src: src}
		e := distribution.Exponential{Scale: 1 / s.spec.Lambda}
		s.draw, s.quantile = d.Rand, e.Quantile
		s.quantiles = func(ps []float64) { e.QuantileTo(ps, ps) }
	case notation.RotatedExponential:
		d := distribution.RotatedExponential{Loc: s.faces, Scale: 1 / s.spec.Lambda, Src: src}
		s.draw, s.quantile = d.Rand, d.Quantile
	default:
		d := distuv.Uniform{Min: 0, Max: s.faces, Src: src}
		s.draw, s.quantile = d.Rand, d.Quantile
	}
}

// Strategy returns the strategy in use.
func (s *Sampler) Strategy() Strategy {
	return s.strategy
}

// MaxRounds returns the rejection round cap in use.
func (s *Sampler) MaxRounds() int {
	return s.maxRounds
}

// Roll draws a single face.
func (s *Sampler) Roll() (int, error) {
	switch s.strategy {
	case Direct:
		return s.intn(s.spec.Faces) + 1, nil
	case Rejection:
		for range s.maxRounds {
			if v := s.draw(); s.inRange(v) {
				return s.face(v), nil
			}
		}
		return 0, ErrRejectionExhausted
	case Quantile:
		return s.face(s.quantile(s.window.Rand())), nil
	default:
		return s.search(s.rng.Float64()), nil
	}
}

// Rolls fills dst with independent faces.
func (s *Sampler) Rolls(dst []int) error {
	if s.cfg.NewSource != nil && len(dst) > chunkSize {
		return s.chunkedRolls(dst)
	}
	return s.fill(dst)
}

func (s *Sampler) fill(dst []int) error {
	switch s.strategy {
	case Direct:
		for i := range dst {
			dst[i] = s.intn(s.spec.Faces) + 1
		}
	case Rejection:
		return s.rejectionFill(dst)
	case Quantile:
		if s.quantiles == nil {
			for i := range dst {
				dst[i] = s.face(s.quantile(s.window.Rand()))
			}
			return nil
		}
		ps := make([]float64, len(dst))
		for i := range ps {
			ps[i] = s.window.Rand()
		}
		s.quantiles(ps)
		for i, v := range ps {
			dst[i] = s.face(v)
		}
	default:
		for i := range dst {
			dst[i] = s.search(s.rng.Float64())
		}
	}
	return nil
}

// rejectionFill draws every die once, then redraws only the dice that
// missed [0, Faces] until none is left.
func (s *Sampler) rejectionFill(dst []int) error {
	pending := make([]int, len(dst))
	for i := range pending {
		pending[i] = i
	}
	for round := 0; len(pending) > 0; round++ {
		if round == s.maxRounds {
			return fmt.Errorf("%w: %d of %d dice out of range after %d rounds",
				ErrRejectionExhausted, len(pending), len(dst), round)
		}
		missed := pending[:0]
		for _, i := range pending {
			if v := s.draw(); s.inRange(v) {
				dst[i] = s.face(v)
			} else {
				missed = append(missed, i)
			}
		}
		pending = missed
	}
	return nil
}

// chunkedRolls fills dst in fixed-size chunks, each drawing from its own
// source seeded from s. The result depends on the seed only, not on the
// number of workers.
func (s *Sampler) chunkedRolls(dst []int) error {
	nChunks := (len(dst) + chunkSize - 1) / chunkSize
	forks := make([]*Sampler, nChunks)
	for c := range forks {
		forks[c] = s.fork(s.cfg.NewSource(s.src.Uint64()))
	}

	errs := make([]error, nChunks)
	parallel.ParallelForChunked(0, len(dst), chunkSize, s.cfg.NumWorkers, func(lo, hi int) {
		c := lo / chunkSize
		errs[c] = forks[c].fill(dst[lo:hi])
	})
	return errors.Join(errs...)
}

// fork returns a copy of s drawing from src.
func (s *Sampler) fork(src rand.Source) *Sampler {
	f := *s
	f.bind(src)
	return &f
}

func (s *Sampler) inRange(v float64) bool {
	return v >= 0 && v <= s.faces
}

// face maps a continuous value in [0, Faces] to floor(v)+1, capped at Faces.
func (s *Sampler) face(v float64) int {
	if !(v >= 1) {
		return 1
	}
	if v >= s.faces {
		return s.spec.Faces
	}
	return int(v) + 1
}

// search returns the first face whose cumulative probability reaches u.
func (s *Sampler) search(u float64) int {
	i := sort.SearchFloat64s(s.cdf, u)
	if i >= len(s.cdf) {
		i = len(s.cdf) - 1
	}
	return i + 1
}
