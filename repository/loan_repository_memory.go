package repository

import (
	"context"
	"fmt"
	"sync"

	"loan-calculator/domain"
)

// LoanRepositoryMemory is an in-memory implementation of LoanRepository.
type LoanRepositoryMemory struct {
	mu   sync.RWMutex
	data map[string]domain.LoanResult
}

// NewLoanRepositoryMemory creates a new in-memory loan repository.
func NewLoanRepositoryMemory() *LoanRepositoryMemory {
	return &LoanRepositoryMemory{
		data: make(map[string]domain.LoanResult),
	}
}

// Save stores the loan in memory.
func (r *LoanRepositoryMemory) Save(_ context.Context, loan domain.LoanResult) error {
	if loan.LoanID == "" {
		return fmt.Errorf("save loan: empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loan.PaymentSchedule = append([]domain.PaymentScheduleEntry(nil), loan.PaymentSchedule...)
	r.data[loan.LoanID] = loan
	return nil
}

func (r *LoanRepositoryMemory) FindByID(_ context.Context, id string) (domain.LoanResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loan, ok := r.data[id]
	if !ok {
		return domain.LoanResult{}, ErrNotFound
	}
	loan.PaymentSchedule = append([]domain.PaymentScheduleEntry(nil), loan.PaymentSchedule...)
	return loan, nil
}

// Len returns the number of stored loans.
func (r *LoanRepositoryMemory) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
