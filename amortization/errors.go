package amortization

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTerms is returned for out-of-bounds principal, rate or
	// payment count.
	ErrInvalidTerms = errors.New("invalid loan terms")

	// ErrCalculation is matched by every *CalculationError.
	ErrCalculation = errors.New("loan calculation failed")
)

// CalculationError reports an arithmetic step that could not be completed.
type CalculationError struct {
	Op  string
	Err error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCalculation, e.Op, e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCalculation) match any CalculationError.
func (e *CalculationError) Is(target error) bool {
	return target == ErrCalculation
}
