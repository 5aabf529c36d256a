package amortization

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(periodsPerYear)
)

// PeriodicRate turns a nominal annual percentage (4.875 means 4.875%) into
// the monthly fraction, rounded half-up to InternalScale digits.
func PeriodicRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.
		DivRound(hundred, InternalScale).
		DivRound(twelve, InternalScale)
}
