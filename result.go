package scidice

import (
	"strconv"
	"strings"
)

// Result is the outcome of GenerateRolls: either a single integer or a
// vector of faces.
type Result struct {
	value  int
	values []int
	scalar bool
}

func scalarResult(v int) Result {
	return Result{value: v, scalar: true}
}

func vectorResult(values []int) Result {
	return Result{value: sum(values), values: values}
}

// IsScalar reports whether the result is a single integer.
func (r Result) IsScalar() bool {
	return r.scalar
}

// Value returns the scalar result, or the sum of the faces of a vector.
func (r Result) Value() int {
	return r.value
}

// Values returns the faces of a vector result, or nil for a scalar.
func (r Result) Values() []int {
	if r.scalar {
		return nil
	}
	return r.values
}

// Len returns the number of faces, 1 for a scalar.
func (r Result) Len() int {
	if r.scalar {
		return 1
	}
	return len(r.values)
}

func (r Result) String() string {
	if r.scalar {
		return strconv.Itoa(r.value)
	}
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
