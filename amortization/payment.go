package amortization

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// PaymentAmount solves the level periodic payment
//
//	payment = r*P / (1 - (1+r)^-n)
//
// rounded half-up to ReportScale digits. A zero rate splits the principal
// evenly instead, since the annuity denominator degenerates to 0.
func PaymentAmount(principal, rate decimal.Decimal, n int) (payment decimal.Decimal, err error) {
	if n < 1 {
		return decimal.Zero, fmt.Errorf("%w: payment count must be at least 1, got %d", ErrInvalidTerms, n)
	}

	count := decimal.NewFromInt(int64(n))
	if rate.IsZero() {
		return principal.DivRound(count, ReportScale), nil
	}

	// decimal panics on division by zero and similar faults.
	defer func() {
		if r := recover(); r != nil {
			payment = decimal.Zero
			err = &CalculationError{Op: "payment", Err: fmt.Errorf("%v", r)}
		}
	}()

	onePlusR := one.Add(rate)
	onePlusRPowN := powInt(onePlusR, n)
	if onePlusRPowN.IsZero() {
		return decimal.Zero, &CalculationError{Op: "power", Err: errors.New("(1+r)^n is zero")}
	}

	denominator := one.Sub(one.DivRound(onePlusRPowN, InternalScale))
	if denominator.IsZero() {
		return decimal.Zero, &CalculationError{
			Op:  "denominator",
			Err: fmt.Errorf("1 - (1+r)^-n is zero at %d digits for r=%s, n=%d", InternalScale, rate, n),
		}
	}

	numerator := rate.Mul(principal)

	return numerator.DivRound(denominator, InternalScale).Round(ReportScale), nil
}

// powInt raises base to a positive integer exponent by repeated squaring.
// Multiplication is exact, so no precision is lost before the reciprocal.
func powInt(base decimal.Decimal, exp int) decimal.Decimal {
	result := one
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base)
		}
		exp >>= 1
		if exp > 0 {
			base = base.Mul(base)
		}
	}
	return result
}
