package amortization

import "github.com/shopspring/decimal"

// Schedule walks the loan period by period. Interest, principal and balance
// are rounded half-up to ReportScale digits at every period.
//
// Any residual left by rounding, positive or negative, is folded into the
// principal of the final period so the schedule ends at exactly zero. The
// running balance may dip below zero before that when the rounded payment
// overshoots a tiny principal; the reported balance is clamped at zero.
func Schedule(principal, rate decimal.Decimal, n int, payment decimal.Decimal) []Entry {
	schedule := make([]Entry, 0, n)
	balance := principal

	for period := 1; period <= n; period++ {
		interest := balance.Mul(rate).Round(ReportScale)
		principalPart := payment.Sub(interest).Round(ReportScale)
		balance = balance.Sub(principalPart).Round(ReportScale)

		if period == n && !balance.IsZero() {
			principalPart = principalPart.Add(balance)
			balance = decimal.Zero
		}

		schedule = append(schedule, Entry{
			Period:           period,
			Payment:          principalPart.Add(interest).Round(ReportScale),
			Principal:        principalPart.Round(ReportScale),
			Interest:         interest,
			RemainingBalance: decimal.Max(balance, decimal.Zero).Round(ReportScale),
		})
	}

	return schedule
}
