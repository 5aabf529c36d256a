package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"loan-calculator/amortization"
	"loan-calculator/domain"
	"loan-calculator/observability"
	"loan-calculator/repository"
)

type LoanService struct {
	repo   repository.LoanRepository
	cache  repository.CacheRepository
	logger *slog.Logger
	limits Limits
	tracer trace.Tracer

	now   func() time.Time
	newID func() string
}

// NewLoanService creates a LoanService. cache may be nil to disable result
// caching; a nil logger falls back to slog.Default.
func NewLoanService(
	repo repository.LoanRepository,
	cache repository.CacheRepository,
	logger *slog.Logger,
	limits Limits,
) *LoanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoanService{
		repo:   repo,
		cache:  cache,
		logger: logger,
		limits: limits.withDefaults(),
		tracer: observability.Tracer(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Limits returns the bounds the service validates against.
func (s *LoanService) Limits() Limits {
	return s.limits
}

// CalculateLoan validates the request, computes the schedule and stores the
// result under a new identifier.
func (s *LoanService) CalculateLoan(ctx context.Context, input domain.LoanInput) (domain.LoanResult, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.CalculateLoan")
	defer span.End()

	result, err := s.quote(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.LoanResult{}, err
	}

	result.LoanID = s.newID()
	result.CreatedAt = s.now().UTC()
	span.SetAttributes(attribute.String("loan.id", result.LoanID))

	if err := s.repo.Save(ctx, result); err != nil {
		observability.LoanSaves.WithLabelValues(observability.SaveFailed).Inc()
		s.logger.ErrorContext(ctx, "failed to save loan", "loan_id", result.LoanID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return domain.LoanResult{}, fmt.Errorf("save loan: %w", err)
	}

	observability.LoanSaves.WithLabelValues(observability.SaveOK).Inc()

	s.logger.InfoContext(ctx, "loan calculated",
		"loan_id", result.LoanID,
		"loan_amount", result.LoanAmount.String(),
		"interest_rate", result.InterestRate.String(),
		"payments", result.NumberOfPayments,
		"periodic_payment", result.PeriodicPayment.String(),
	)
	return result, nil
}

// Quote computes a loan without persisting it. The result has no LoanID.
func (s *LoanService) Quote(ctx context.Context, input domain.LoanInput) (domain.LoanResult, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.Quote")
	defer span.End()

	result, err := s.quote(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// GetLoan returns a stored loan or repository.ErrNotFound.
func (s *LoanService) GetLoan(ctx context.Context, id string) (domain.LoanResult, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.GetLoan", trace.WithAttributes(attribute.String("loan.id", id)))
	defer span.End()

	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lookup failed")
		}
		return domain.LoanResult{}, fmt.Errorf("get loan %s: %w", id, err)
	}
	return loan, nil
}

func (s *LoanService) quote(ctx context.Context, input domain.LoanInput) (domain.LoanResult, error) {
	start := time.Now()
	terms, err := s.validate(input)
	if err != nil {
		observability.Calculations.WithLabelValues(observability.OutcomeInvalid).Inc()
		s.logger.WarnContext(ctx, "loan request rejected", "error", err)
		return domain.LoanResult{}, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("loan.amount", terms.Principal.String()),
		attribute.String("loan.rate", terms.AnnualRatePercent.String()),
		attribute.Int("loan.payments", terms.PaymentCount),
	)

	key := cacheKey(terms)
	if cached, ok := s.lookup(ctx, key); ok {
		observability.Calculations.WithLabelValues(observability.OutcomeCached).Inc()
		observability.CalculationDuration.Observe(time.Since(start).Seconds())
		return cached, nil
	}

	res, err := amortization.Calculate(terms)
	if err != nil {
		observability.Calculations.WithLabelValues(observability.OutcomeFailed).Inc()
		s.logger.ErrorContext(ctx, "loan calculation failed",
			"loan_amount", terms.Principal.String(),
			"interest_rate", terms.AnnualRatePercent.String(),
			"payments", terms.PaymentCount,
			"error", err,
		)
		return domain.LoanResult{}, err
	}

	s.logger.DebugContext(ctx, "schedule computed",
		"total_payment", res.TotalPayment.StringFixed(amortization.ReportScale),
		"total_interest", res.TotalInterest.StringFixed(amortization.ReportScale),
		"scheduled_payment", res.ScheduledPayment.StringFixed(amortization.ReportScale),
		"periods", len(res.Schedule),
	)

	observability.Calculations.WithLabelValues(observability.OutcomeOK).Inc()
	observability.CalculationDuration.Observe(time.Since(start).Seconds())
	observability.ScheduleLength.Observe(float64(len(res.Schedule)))

	result := toLoanResult(res)
	s.store(ctx, key, result)
	return result, nil
}

// validate checks every field and reports all violations at once.
func (s *LoanService) validate(input domain.LoanInput) (amortization.Terms, error) {
	var errs fieldErrors

	switch amount := input.LoanAmount; {
	case amount == nil:
		errs.add("loanAmount", "Loan amount is required")
	case amount.LessThan(MinLoanAmount):
		errs.add("loanAmount", "Loan amount must be greater than 0")
	case amount.GreaterThan(s.limits.MaxLoanAmount):
		errs.add("loanAmount", "Loan amount must not exceed %s", s.limits.MaxLoanAmount.StringFixed(2))
	case !amount.Equal(amount.Round(2)):
		errs.add("loanAmount", "Loan amount must have at most 2 decimal places")
	}

	switch rate := input.InterestRate; {
	case rate == nil:
		errs.add("interestRate", "Interest rate is required")
	case rate.IsNegative():
		errs.add("interestRate", "Interest rate must be at least 0")
	case rate.GreaterThan(s.limits.MaxInterestRate):
		errs.add("interestRate", "Interest rate must not exceed %s", s.limits.MaxInterestRate.String())
	}

	switch n := input.NumberOfPayments; {
	case n == nil:
		errs.add("numberOfPayments", "Number of payments is required")
	case *n < MinTermMonths:
		errs.add("numberOfPayments", "Number of payments must be at least %d", MinTermMonths)
	case *n > s.limits.MaxTermMonths:
		errs.add("numberOfPayments", "Number of payments must not exceed %d", s.limits.MaxTermMonths)
	}

	if err := errs.err(); err != nil {
		return amortization.Terms{}, err
	}

	return amortization.Terms{
		Principal:         *input.LoanAmount,
		AnnualRatePercent: *input.InterestRate,
		PaymentCount:      *input.NumberOfPayments,
	}, nil
}

func cacheKey(t amortization.Terms) string {
	return fmt.Sprintf("loan:%s:%s:%d", t.Principal.String(), t.AnnualRatePercent.String(), t.PaymentCount)
}

func (s *LoanService) lookup(ctx context.Context, key string) (domain.LoanResult, bool) {
	if s.cache == nil {
		return domain.LoanResult{}, false
	}

	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		observability.CacheLookups.WithLabelValues("miss").Inc()
		return domain.LoanResult{}, false
	}

	var result domain.LoanResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		observability.CacheLookups.WithLabelValues("miss").Inc()
		s.logger.WarnContext(ctx, "discarding unreadable cache entry", "key", key, "error", err)
		return domain.LoanResult{}, false
	}

	observability.CacheLookups.WithLabelValues("hit").Inc()
	s.logger.DebugContext(ctx, "cache hit", "key", key)
	return result, true
}

func (s *LoanService) store(ctx context.Context, key string, result domain.LoanResult) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, string(raw)); err != nil {
		s.logger.WarnContext(ctx, "failed to cache loan", "key", key, "error", err)
	}
}

func toLoanResult(res amortization.Result) domain.LoanResult {
	schedule := make([]domain.PaymentScheduleEntry, len(res.Schedule))
	for i, e := range res.Schedule {
		schedule[i] = domain.PaymentScheduleEntry{
			Period:          e.Period,
			Payment:         domain.NewAmount(e.Payment),
			PrincipalAmount: domain.NewAmount(e.Principal),
			InterestAmount:  domain.NewAmount(e.Interest),
			BalanceOwed:     domain.NewAmount(e.RemainingBalance),
		}
	}

	return domain.LoanResult{
		LoanAmount:        domain.NewAmount(res.Terms.Principal),
		InterestRate:      domain.Rate{Decimal: res.Terms.AnnualRatePercent},
		NumberOfPayments:  res.Terms.PaymentCount,
		PeriodicPayment:   domain.NewAmount(res.PeriodicPayment),
		TotalPayment:      domain.NewAmount(res.TotalPayment),
		TotalInterest:     domain.NewAmount(res.TotalInterest),
		ScheduledPayment:  domain.NewAmount(res.ScheduledPayment),
		ScheduledInterest: domain.NewAmount(res.ScheduledInterest),
		PaymentSchedule:   schedule,
	}
}

// loanInput builds a request from plain values.
func loanInput(amount, rate decimal.Decimal, n int) domain.LoanInput {
	return domain.LoanInput{LoanAmount: &amount, InterestRate: &rate, NumberOfPayments: &n}
}
