package repository

import (
	"context"
	"errors"

	"loan-calculator/domain"
)

// ErrNotFound is returned when no loan has the requested id.
var ErrNotFound = errors.New("loan not found")

type LoanRepository interface {
	Save(ctx context.Context, loan domain.LoanResult) error
	FindByID(ctx context.Context, id string) (domain.LoanResult, error)
}
