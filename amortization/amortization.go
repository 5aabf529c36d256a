// Package amortization computes fixed-rate, fixed-term amortizing loans.
//
// All arithmetic is done with base-10 decimals. Intermediate values carry
// InternalScale fractional digits, reported values are rounded half-up to
// ReportScale digits.
package amortization

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// InternalScale is the number of fractional digits kept for rates and
	// intermediate payment arithmetic.
	InternalScale int32 = 10

	// ReportScale is the number of fractional digits of every reported amount.
	ReportScale int32 = 2

	periodsPerYear = 12
)

// Terms are the inputs of a single calculation.
type Terms struct {
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
	PaymentCount      int
}

// Validate rejects terms the engine cannot amortize.
func (t Terms) Validate() error {
	if !t.Principal.IsPositive() {
		return fmt.Errorf("%w: principal must be greater than 0, got %s", ErrInvalidTerms, t.Principal)
	}
	if t.AnnualRatePercent.IsNegative() {
		return fmt.Errorf("%w: annual rate must be at least 0, got %s", ErrInvalidTerms, t.AnnualRatePercent)
	}
	if t.PaymentCount < 1 || t.PaymentCount > math.MaxInt32 {
		return fmt.Errorf("%w: payment count must be between 1 and %d, got %d", ErrInvalidTerms, math.MaxInt32, t.PaymentCount)
	}
	return nil
}

// Entry is one period of an amortization schedule.
// Payment always equals Principal plus Interest.
type Entry struct {
	Period           int
	Payment          decimal.Decimal
	Principal        decimal.Decimal
	Interest         decimal.Decimal
	RemainingBalance decimal.Decimal
}

// Result is the outcome of Calculate.
//
// TotalPayment is PeriodicPayment times PaymentCount and TotalInterest is
// TotalPayment minus the principal. When the final period absorbs a rounding
// residual these differ by a few cents from ScheduledPayment and
// ScheduledInterest, which are summed from the schedule itself.
type Result struct {
	Terms             Terms
	PeriodicRate      decimal.Decimal
	PeriodicPayment   decimal.Decimal
	TotalPayment      decimal.Decimal
	TotalInterest     decimal.Decimal
	ScheduledPayment  decimal.Decimal
	ScheduledInterest decimal.Decimal
	Schedule          []Entry
}

// Calculate converts the rate, solves the periodic payment and walks the
// schedule for t.
func Calculate(t Terms) (Result, error) {
	if err := t.Validate(); err != nil {
		return Result{}, err
	}

	rate := PeriodicRate(t.AnnualRatePercent)

	payment, err := PaymentAmount(t.Principal, rate, t.PaymentCount)
	if err != nil {
		return Result{}, err
	}

	count := decimal.NewFromInt(int64(t.PaymentCount))
	totalPayment := payment.Mul(count).Round(ReportScale)
	totalInterest := totalPayment.Sub(t.Principal).Round(ReportScale)

	schedule := Schedule(t.Principal, rate, t.PaymentCount, payment)

	scheduledPayment := decimal.Zero
	scheduledInterest := decimal.Zero
	for _, e := range schedule {
		scheduledPayment = scheduledPayment.Add(e.Payment)
		scheduledInterest = scheduledInterest.Add(e.Interest)
	}

	return Result{
		Terms:             t,
		PeriodicRate:      rate,
		PeriodicPayment:   payment,
		TotalPayment:      totalPayment,
		TotalInterest:     totalInterest,
		ScheduledPayment:  scheduledPayment.Round(ReportScale),
		ScheduledInterest: scheduledInterest.Round(ReportScale),
		Schedule:          schedule,
	}, nil
}
