package domain

import "github.com/shopspring/decimal"

type TermRecommendationInput struct {
	Amount            decimal.Decimal `json:"amount"`
	InterestRate      decimal.Decimal `json:"interestRate"`
	MinTermMonths     int             `json:"minTermMonths"`
	MaxTermMonths     int             `json:"maxTermMonths"`
	MaxMonthlyPayment decimal.Decimal `json:"maxMonthlyPayment"`
	Preference        string          `json:"preference"` // "minimize_interest", "minimize_payment", "balanced"
}

type TermRecommendation struct {
	TermMonths     int     `json:"termMonths"`
	MonthlyPayment Amount  `json:"monthlyPayment"`
	TotalInterest  Amount  `json:"totalInterest"`
	Score          float64 `json:"score"`
	Reason         string  `json:"reason"`
}

type TermRecommendationResult struct {
	RecommendedTerm int                  `json:"recommendedTerm"`
	Recommendations []TermRecommendation `json:"recommendations"`
}
