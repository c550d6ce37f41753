package roster

import (
	"errors"
	"fmt"
)

// ErrValidation matches every ValidationError through errors.Is
var ErrValidation = errors.New("roster: invalid input")

// ValidationError describes malformed or inconsistent roster input
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "roster: " + e.Msg
	}
	return fmt.Sprintf("roster: %s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
