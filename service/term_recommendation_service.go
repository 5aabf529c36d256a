package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"loan-calculator/domain"
	"loan-calculator/observability"
)

const (
	PreferenceMinimizeInterest = "minimize_interest"
	PreferenceMinimizePayment  = "minimize_payment"
	PreferenceBalanced         = "balanced"
)

// maxAlternatives is how many runner-up terms the explanation mentions.
const maxAlternatives = 3

type TermRecommendationService struct {
	loanService *LoanService
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewTermRecommendationService(loanService *LoanService, logger *slog.Logger) *TermRecommendationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TermRecommendationService{
		loanService: loanService,
		logger:      logger,
		tracer:      observability.Tracer(),
	}
}

// RecommendTerm evaluates every term in the requested range and ranks the
// ones whose payment fits under MaxMonthlyPayment.
func (s *TermRecommendationService) RecommendTerm(
	ctx context.Context,
	input domain.TermRecommendationInput,
) (domain.TermRecommendationResult, error) {
	ctx, span := s.tracer.Start(ctx, "TermRecommendationService.RecommendTerm")
	defer span.End()

	if err := s.validate(input); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		s.logger.WarnContext(ctx, "term recommendation rejected", "error", err)
		return domain.TermRecommendationResult{}, err
	}
	span.SetAttributes(
		attribute.Int("term.min", input.MinTermMonths),
		attribute.Int("term.max", input.MaxTermMonths),
		attribute.String("term.preference", input.Preference),
	)

	recommendations := []domain.TermRecommendation{}

	for term := input.MinTermMonths; term <= input.MaxTermMonths; term++ {
		result, err := s.loanService.Quote(ctx, loanInput(input.Amount, input.InterestRate, term))
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				span.SetStatus(codes.Error, "invalid input")
				return domain.TermRecommendationResult{}, err
			}
			s.logger.WarnContext(ctx, "skipping term", "term", term, "error", err)
			continue
		}

		if result.PeriodicPayment.GreaterThan(input.MaxMonthlyPayment) {
			continue
		}

		recommendations = append(recommendations, domain.TermRecommendation{
			TermMonths:     term,
			MonthlyPayment: result.PeriodicPayment,
			TotalInterest:  result.TotalInterest,
			Score:          calculateScore(result, input, term),
			Reason:         reasonFor(input.Preference),
		})
	}

	if len(recommendations) == 0 {
		span.SetStatus(codes.Error, ErrNoMatchingTerm.Error())
		return domain.TermRecommendationResult{}, ErrNoMatchingTerm
	}

	// Highest score first; ties go to the shorter term.
	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	})

	recommendations[0].Reason = explain(recommendations, input.Preference)

	s.logger.InfoContext(ctx, "term recommended",
		"term", recommendations[0].TermMonths,
		"candidates", len(recommendations),
		"preference", input.Preference,
	)

	return domain.TermRecommendationResult{
		RecommendedTerm: recommendations[0].TermMonths,
		Recommendations: recommendations,
	}, nil
}

func (s *TermRecommendationService) validate(input domain.TermRecommendationInput) error {
	limits := s.loanService.Limits()
	var errs fieldErrors

	switch {
	case input.Amount.LessThan(MinLoanAmount):
		errs.add("amount", "Loan amount must be greater than 0")
	case input.Amount.GreaterThan(limits.MaxLoanAmount):
		errs.add("amount", "Loan amount must not exceed %s", limits.MaxLoanAmount.StringFixed(2))
	case !input.Amount.Equal(input.Amount.Round(2)):
		errs.add("amount", "Loan amount must have at most 2 decimal places")
	}

	switch {
	case input.InterestRate.IsNegative():
		errs.add("interestRate", "Interest rate must be at least 0")
	case input.InterestRate.GreaterThan(limits.MaxInterestRate):
		errs.add("interestRate", "Interest rate must not exceed %s", limits.MaxInterestRate.String())
	}

	switch {
	case input.MinTermMonths < MinTermMonths:
		errs.add("minTermMonths", "Minimum term must be at least %d", MinTermMonths)
	case input.MaxTermMonths < input.MinTermMonths:
		errs.add("maxTermMonths", "Maximum term must not be less than the minimum term")
	case input.MaxTermMonths > limits.MaxTermMonths:
		errs.add("maxTermMonths", "Maximum term must not exceed %d", limits.MaxTermMonths)
	case input.MaxTermMonths-input.MinTermMonths > limits.MaxTermRangeMonths:
		errs.add("maxTermMonths", "Term range must not exceed %d months", limits.MaxTermRangeMonths)
	}

	if !input.MaxMonthlyPayment.IsPositive() {
		errs.add("maxMonthlyPayment", "Maximum monthly payment must be greater than 0")
	}

	switch input.Preference {
	case PreferenceMinimizeInterest, PreferenceMinimizePayment, PreferenceBalanced:
	default:
		errs.add("preference", "Preference must be one of %s, %s, %s",
			PreferenceMinimizeInterest, PreferenceMinimizePayment, PreferenceBalanced)
	}

	return errs.err()
}

// calculateScore rates a term from 0 to 10 by weighting interest cost,
// payment size and term length according to the preference.
func calculateScore(result domain.LoanResult, input domain.TermRecommendationInput, term int) float64 {
	amount := input.Amount.InexactFloat64()
	rate := input.InterestRate.InexactFloat64() / 100
	maxPayment := input.MaxMonthlyPayment.InexactFloat64()
	totalInterest := result.TotalInterest.InexactFloat64()
	payment := result.PeriodicPayment.InexactFloat64()

	// Simple-interest bounds are enough to normalize the range.
	maxPossibleInterest := amount * rate * float64(input.MaxTermMonths) / 12
	minPossibleInterest := amount * rate * float64(input.MinTermMonths) / 12
	interestRange := maxPossibleInterest - minPossibleInterest

	floorPayment := amount / float64(input.MaxTermMonths)
	paymentRange := maxPayment - floorPayment

	var interestScore, paymentScore, termScore float64
	if interestRange > 0 {
		interestScore = 10 * (1 - (totalInterest-minPossibleInterest)/interestRange)
	}
	if paymentRange > 0 {
		paymentScore = 10 * (1 - (payment-floorPayment)/paymentRange)
	}
	if span := input.MaxTermMonths - input.MinTermMonths; span > 0 {
		termScore = 10 * (1 - float64(term-input.MinTermMonths)/float64(span))
	}

	var score float64
	switch input.Preference {
	case PreferenceMinimizeInterest:
		score = 0.6*interestScore + 0.2*paymentScore + 0.2*termScore
	case PreferenceMinimizePayment:
		score = 0.2*interestScore + 0.6*paymentScore + 0.2*termScore
	default:
		score = 0.4*interestScore + 0.4*paymentScore + 0.2*termScore
	}

	return math.Round(score*100) / 100
}

func reasonFor(preference string) string {
	switch preference {
	case PreferenceMinimizeInterest:
		return "Term optimized to minimize total interest cost"
	case PreferenceMinimizePayment:
		return "Term optimized to minimize the monthly payment"
	default:
		return "Balance between monthly payment and total cost"
	}
}

// explain describes the top recommendation and mentions a few alternatives.
func explain(recs []domain.TermRecommendation, preference string) string {
	top := recs[0]

	var text string
	switch preference {
	case PreferenceMinimizeInterest:
		text = fmt.Sprintf("A %d-month term keeps total interest at %s with a monthly payment of %s.",
			top.TermMonths, top.TotalInterest, top.MonthlyPayment)
	case PreferenceMinimizePayment:
		text = fmt.Sprintf("A %d-month term lowers the monthly payment to %s for a total interest of %s.",
			top.TermMonths, top.MonthlyPayment, top.TotalInterest)
	default:
		text = fmt.Sprintf("A %d-month term balances a monthly payment of %s against a total interest of %s.",
			top.TermMonths, top.MonthlyPayment, top.TotalInterest)
	}

	for i := 1; i < len(recs) && i <= maxAlternatives; i++ {
		alt := recs[i]
		if i == 1 {
			text += " Alternatives:"
		} else {
			text += ";"
		}
		text += fmt.Sprintf(" %d months at %s (interest %s)", alt.TermMonths, alt.MonthlyPayment, alt.TotalInterest)
	}
	if len(recs) > 1 {
		text += "."
	}
	return text
}
