package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanInput is a calculation request. Pointer fields distinguish a missing
// value from zero.
type LoanInput struct {
	LoanAmount       *decimal.Decimal `json:"loanAmount"`
	InterestRate     *decimal.Decimal `json:"interestRate"`
	NumberOfPayments *int             `json:"numberOfPayments"`
}

type PaymentScheduleEntry struct {
	Period          int    `json:"period"`
	Payment         Amount `json:"payment"`
	PrincipalAmount Amount `json:"principalAmount"`
	InterestAmount  Amount `json:"interestAmount"`
	BalanceOwed     Amount `json:"balanceOwed"`
}

// LoanResult is a computed and stored loan.
type LoanResult struct {
	LoanID            string                 `json:"loanId"`
	LoanAmount        Amount                 `json:"loanAmount"`
	InterestRate      Rate                   `json:"interestRate"`
	NumberOfPayments  int                    `json:"numberOfPayments"`
	PeriodicPayment   Amount                 `json:"periodicPayment"`
	TotalPayment      Amount                 `json:"totalPayment"`
	TotalInterest     Amount                 `json:"totalInterest"`
	ScheduledPayment  Amount                 `json:"scheduledPayment"`
	ScheduledInterest Amount                 `json:"scheduledInterest"`
	PaymentSchedule   []PaymentScheduleEntry `json:"paymentSchedule"`
	CreatedAt         time.Time              `json:"createdAt"`
}
