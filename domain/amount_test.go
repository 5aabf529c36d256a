package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_MarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"500", "500.00"},
		{"0", "0.00"},
		{"336.105", "336.11"},
		{"-0.01", "-0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			b, err := json.Marshal(NewAmount(decimal.RequireFromString(tt.in)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestLoanResult_JSONRoundTrip(t *testing.T) {
	in := LoanResult{
		LoanID:           "abc",
		LoanAmount:       NewAmount(decimal.RequireFromString("1000")),
		InterestRate:     Rate{decimal.RequireFromString("4.875")},
		NumberOfPayments: 1,
		PeriodicPayment:  NewAmount(decimal.RequireFromString("1004.17")),
		PaymentSchedule: []PaymentScheduleEntry{
			{Period: 1, Payment: NewAmount(decimal.RequireFromString("1004.17"))},
		},
	}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"loanAmount":1000.00`)
	assert.Contains(t, string(b), `"interestRate":4.875`)

	var out LoanResult
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "abc", out.LoanID)
	assert.True(t, out.LoanAmount.Equal(in.LoanAmount.Decimal))
	assert.True(t, out.InterestRate.Equal(in.InterestRate.Decimal))
	require.Len(t, out.PaymentSchedule, 1)
	assert.Equal(t, "1004.17", out.PaymentSchedule[0].Payment.String())
}

func TestLoanInput_MissingFields(t *testing.T) {
	var in LoanInput
	require.NoError(t, json.Unmarshal([]byte(`{"loanAmount":"27000.00"}`), &in))

	require.NotNil(t, in.LoanAmount)
	assert.Equal(t, "27000", in.LoanAmount.String())
	assert.Nil(t, in.InterestRate)
	assert.Nil(t, in.NumberOfPayments)
}
