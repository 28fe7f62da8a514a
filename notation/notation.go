// Package notation parses dice expressions such as `\10d20:>3~n(10,6.6)`.
//
// The grammar is
//
//	[\]<Rolls>d<Faces>[:(<|>)<Amount>][~n([<Mean>,]<SD>)|~e(<Lambda>)|~re(<Lambda>)]
//
// A leading backslash keeps the individual rolls; without it the rolls are
// summed into a single total. `:<K` keeps the K lowest rolls and `:>K` the K
// highest. The optional suffix replaces the fair die with a distribution
// truncated to [0, Faces]: a normal (Mean defaults to Faces/2), an
// exponential, or an exponential rotated about Faces.
package notation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nozzle/scidice/distribution"
	"gonum.org/v1/gonum/stat/distuv"
)

// Kind identifies the distribution governing each die.
type Kind int

const (
	// Uniform is a fair die.
	Uniform Kind = iota
	// Normal is a normal distribution truncated to [0, Faces].
	Normal
	// Exponential is an exponential distribution truncated to [0, Faces].
	Exponential
	// RotatedExponential is an exponential reflected about Faces, so that
	// high faces are the likely ones.
	RotatedExponential
)

func (k Kind) String() string {
	switch k {
	case Uniform:
		return "uniform"
	case Normal:
		return "normal"
	case Exponential:
		return "exponential"
	case RotatedExponential:
		return "rotated-exponential"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Order selects which rolls are kept.
type Order int

const (
	// KeepAll keeps every roll.
	KeepAll Order = iota
	// KeepLowest keeps the Amount lowest rolls.
	KeepLowest
	// KeepHighest keeps the Amount highest rolls.
	KeepHighest
)

func (o Order) String() string {
	switch o {
	case KeepAll:
		return "all"
	case KeepLowest:
		return "lowest"
	case KeepHighest:
		return "highest"
	default:
		return "Order(" + strconv.Itoa(int(o)) + ")"
	}
}

// Spec is a parsed dice expression. It is a value type and is never
// modified after Parse returns it.
type Spec struct {
	// Text is the expression the spec was parsed from.
	Text string

	Rolls int
	Faces int

	// Sum collapses the rolls into their total. It is true when the
	// expression has no leading backslash.
	Sum bool

	// Order and Amount describe order selection. Selection is only applied
	// when Amount > 0.
	Order  Order
	Amount int

	Kind Kind
	// Mean and SD parameterize Normal.
	Mean float64
	SD   float64
	// Lambda is the rate of Exponential and RotatedExponential.
	Lambda float64

	lo, hi float64
}

const (
	positiveFloat = `\d+(?:\.\d+)?`
	signedFloat   = `-?` + positiveFloat
)

var diceRegex = regexp.MustCompile(`^(?P<nosum>\\)?(?P<rolls>\d+)d(?P<faces>\d+)` +
	`(?::(?P<order>[<>])(?P<amount>\d+))?` +
	`(?:~n\((?:(?P<mean>` + signedFloat + `),)?(?P<sd>` + positiveFloat + `)\)` +
	`|~e\((?P<exp>` + positiveFloat + `)\)` +
	`|~re\((?P<rexp>` + positiveFloat + `)\))?$`)

// Parse compiles a dice expression. On failure it returns an *Error wrapping
// ErrSyntax or ErrValidation and a zero Spec.
func Parse(text string) (Spec, error) {
	m := diceRegex.FindStringSubmatch(text)
	if m == nil {
		return Spec{}, syntaxError(text)
	}
	group := func(name string) string {
		return m[diceRegex.SubexpIndex(name)]
	}

	s := Spec{Text: text, Sum: group("nosum") == ""}

	var err error
	if s.Rolls, err = parseCount(text, "rolls", group("rolls")); err != nil {
		return Spec{}, err
	}
	if s.Faces, err = parseCount(text, "faces", group("faces")); err != nil {
		return Spec{}, err
	}

	if order := group("order"); order != "" {
		s.Order = KeepLowest
		if order == ">" {
			s.Order = KeepHighest
		}
		if s.Amount, err = strconv.Atoi(group("amount")); err != nil {
			return Spec{}, validationError(text, "amount %s out of range", group("amount"))
		}
		if s.Amount > s.Rolls {
			return Spec{}, validationError(text, "cannot keep %d of %d rolls", s.Amount, s.Rolls)
		}
	}

	switch {
	case group("sd") != "":
		s.Kind = Normal
		if s.SD, err = parsePositive(text, "standard deviation", group("sd")); err != nil {
			return Spec{}, err
		}
		s.Mean = float64(s.Faces) / 2
		if mean := group("mean"); mean != "" {
			if s.Mean, err = strconv.ParseFloat(mean, 64); err != nil {
				return Spec{}, validationError(text, "mean %s out of range", mean)
			}
		}
	case group("exp") != "":
		s.Kind = Exponential
		if s.Lambda, err = parsePositive(text, "lambda", group("exp")); err != nil {
			return Spec{}, err
		}
	case group("rexp") != "":
		s.Kind = RotatedExponential
		if s.Lambda, err = parsePositive(text, "lambda", group("rexp")); err != nil {
			return Spec{}, err
		}
	}

	d := s.Continuous()
	s.lo, s.hi = d.CDF(0), d.CDF(float64(s.Faces))
	if !(s.hi > s.lo) || math.IsInf(s.lo, 0) || math.IsInf(s.hi, 0) {
		return Spec{}, validationError(text, "%s places no mass on [0, %d]", s.DistributionString(), s.Faces)
	}

	return s, nil
}

// MustParse is like Parse but panics if the expression is rejected.
func MustParse(text string) Spec {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

func parseCount(text, name, digits string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, validationError(text, "%s %s out of range", name, digits)
	}
	if n < 1 {
		return 0, validationError(text, "%s must be positive", name)
	}
	return n, nil
}

func parsePositive(text, name, literal string) (float64, error) {
	v, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return 0, validationError(text, "%s %s out of range", name, literal)
	}
	if v <= 0 {
		return 0, validationError(text, "%s must be positive", name)
	}
	return v, nil
}

// Descending reports whether the highest rolls are kept.
func (s Spec) Descending() bool {
	return s.Order == KeepHighest
}

// Selects reports whether order selection is active.
func (s Spec) Selects() bool {
	return s.Order != KeepAll && s.Amount > 0
}

// Continuous returns the untruncated distribution of a single die's
// underlying continuous value. Face k corresponds to the interval (k-1, k].
func (s Spec) Continuous() distribution.Continuous {
	switch s.Kind {
	case Normal:
		return distuv.Normal{Mu: s.Mean, Sigma: s.SD}
	case Exponential:
		return distuv.Exponential{Rate: s.Lambda}
	case RotatedExponential:
		return distribution.RotatedExponential{Loc: float64(s.Faces), Scale: 1 / s.Lambda}
	default:
		return distuv.Uniform{Min: 0, Max: float64(s.Faces)}
	}
}

// SamplingRange returns the CDF of the underlying distribution at 0 and at
// Faces. Uniform draws restricted to this range and mapped through the
// inverse CDF land in [0, Faces].
func (s Spec) SamplingRange() (lo, hi float64) {
	return s.lo, s.hi
}

// DistributionString describes the distribution, e.g. "n(10,6.6)".
func (s Spec) DistributionString() string {
	switch s.Kind {
	case Normal:
		return "n(" + formatFloat(s.Mean) + "," + formatFloat(s.SD) + ")"
	case Exponential:
		return "exp(" + formatFloat(s.Lambda) + ")"
	case RotatedExponential:
		return "Rexp(" + formatFloat(s.Lambda) + ")"
	default:
		return "u(0," + strconv.Itoa(s.Faces) + ")"
	}
}

// String renders the spec in canonical dice notation. Parsing the result
// yields an equivalent Spec.
func (s Spec) String() string {
	var b strings.Builder
	if !s.Sum {
		b.WriteByte('\\')
	}
	b.WriteString(strconv.Itoa(s.Rolls))
	b.WriteByte('d')
	b.WriteString(strconv.Itoa(s.Faces))
	switch s.Order {
	case KeepLowest:
		b.WriteString(":<" + strconv.Itoa(s.Amount))
	case KeepHighest:
		b.WriteString(":>" + strconv.Itoa(s.Amount))
	}
	switch s.Kind {
	case Normal:
		b.WriteString("~n(" + formatFloat(s.Mean) + "," + formatFloat(s.SD) + ")")
	case Exponential:
		b.WriteString("~e(" + formatFloat(s.Lambda) + ")")
	case RotatedExponential:
		b.WriteString("~re(" + formatFloat(s.Lambda) + ")")
	}
	return b.String()
}

func formatFloat(v float64) string {
	if v == 0 {
		v = math.Abs(v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
