package service

import "github.com/shopspring/decimal"

const (
	MinTermMonths = 1

	// DefaultMaxTermMonths is 50 years of monthly payments.
	DefaultMaxTermMonths = 600
	// DefaultMaxTermRangeMonths bounds the sweep done by term recommendation.
	DefaultMaxTermRangeMonths = 120
)

var (
	MinLoanAmount = decimal.New(1, -2) // 0.01

	DefaultMaxLoanAmount   = decimal.NewFromInt(1_000_000_000)
	DefaultMaxInterestRate = decimal.NewFromInt(1000) // percent per year
)

// Limits bounds the inputs accepted by the services.
type Limits struct {
	MaxLoanAmount      decimal.Decimal
	MaxInterestRate    decimal.Decimal
	MaxTermMonths      int
	MaxTermRangeMonths int
}

func DefaultLimits() Limits {
	return Limits{
		MaxLoanAmount:      DefaultMaxLoanAmount,
		MaxInterestRate:    DefaultMaxInterestRate,
		MaxTermMonths:      DefaultMaxTermMonths,
		MaxTermRangeMonths: DefaultMaxTermRangeMonths,
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if !l.MaxLoanAmount.IsPositive() {
		l.MaxLoanAmount = d.MaxLoanAmount
	}
	if !l.MaxInterestRate.IsPositive() {
		l.MaxInterestRate = d.MaxInterestRate
	}
	if l.MaxTermMonths <= 0 {
		l.MaxTermMonths = d.MaxTermMonths
	}
	if l.MaxTermRangeMonths <= 0 {
		l.MaxTermRangeMonths = d.MaxTermRangeMonths
	}
	return l
}
