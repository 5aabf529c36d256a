package domain

import "github.com/shopspring/decimal"

// Amount is a monetary value. It is rendered as a JSON number with exactly
// two fractional digits and decodes from JSON numbers or strings.
type Amount struct {
	decimal.Decimal
}

// NewAmount rounds d half-up to cents.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d.Round(2)}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

func (a Amount) String() string {
	return a.StringFixed(2)
}

// Rate is a percentage rendered as a plain JSON number.
type Rate struct {
	decimal.Decimal
}

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(r.Decimal.String()), nil
}
