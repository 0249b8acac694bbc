package model

import (
	"errors"
	"fmt"
)

// ErrParameter is matched by every *ParameterError.
var ErrParameter = errors.New("invalid chp parameter")

// ParameterError reports an invalid pair or branch parameter. It aborts
// constraint generation for the pair.
type ParameterError struct {
	Pair   string
	Field  string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	if e.Pair == "" {
		return fmt.Sprintf("%s = %g: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("pair %s: %s = %g: %s", e.Pair, e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrParameter) true for parameter errors.
func (e *ParameterError) Is(target error) bool {
	return target == ErrParameter
}
