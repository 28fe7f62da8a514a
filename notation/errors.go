package notation

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax reports text that does not match the dice grammar.
	ErrSyntax = errors.New("unparsable dice notation")
	// ErrValidation reports text that matches the grammar but describes an
	// impossible roll.
	ErrValidation = errors.New("invalid dice notation")
)

// Error describes why a dice notation was rejected.
// It wraps either ErrSyntax or ErrValidation.
type Error struct {
	Input  string
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %q", e.Kind, e.Input)
	}
	return fmt.Sprintf("%v: %q: %s", e.Kind, e.Input, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func syntaxError(input string) error {
	return &Error{Input: input, Kind: ErrSyntax}
}

func validationError(input, format string, args ...any) error {
	return &Error{Input: input, Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}
