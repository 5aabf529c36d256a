package service

import (
	"errors"
	"fmt"
	"strings"

	"loan-calculator/amortization"
)

// ErrNoMatchingTerm is returned when no term in the requested range fits
// the payment ceiling.
var ErrNoMatchingTerm = errors.New("no term satisfies the maximum monthly payment")

// ValidationError lists every rejected field of a request. It matches
// amortization.ErrInvalidTerms with errors.Is.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input parameters: %s", strings.Join(e.Details, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == amortization.ErrInvalidTerms
}

// fieldErrors collects per-field messages in the order they are found.
type fieldErrors []string

func (f *fieldErrors) add(field, msg string, args ...any) {
	*f = append(*f, fmt.Sprintf("Field '%s' %s", field, fmt.Sprintf(msg, args...)))
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Details: f}
}
