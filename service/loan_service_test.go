package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-calculator/amortization"
	"loan-calculator/domain"
	"loan-calculator/observability"
	"loan-calculator/repository"
)

type MockLoanRepository struct {
	mu         sync.Mutex
	SaveCalled int
	ForceError bool
	saved      map[string]domain.LoanResult
}

func (m *MockLoanRepository) Save(_ context.Context, loan domain.LoanResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalled++
	if m.ForceError {
		return errors.New("save error")
	}
	if m.saved == nil {
		m.saved = make(map[string]domain.LoanResult)
	}
	m.saved[loan.LoanID] = loan
	return nil
}

func (m *MockLoanRepository) FindByID(_ context.Context, id string) (domain.LoanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loan, ok := m.saved[id]
	if !ok {
		return domain.LoanResult{}, repository.ErrNotFound
	}
	return loan, nil
}

type MockCache struct {
	data     map[string]string
	GetCalls int
	SetCalls int
}

func (m *MockCache) Get(_ context.Context, key string) (string, bool) {
	m.GetCalls++
	v, ok := m.data[key]
	return v, ok
}

func (m *MockCache) Set(_ context.Context, key, value string) error {
	m.SetCalls++
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

var fixedNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestService(repo repository.LoanRepository, cache repository.CacheRepository) *LoanService {
	s := NewLoanService(repo, cache, observability.Discard(), DefaultLimits())
	s.now = func() time.Time { return fixedNow }
	s.newID = func() string { return "3f1c9a2e-0000-4000-8000-000000000001" }
	return s
}

func input(amount, rate string, n int) domain.LoanInput {
	return loanInput(decimal.RequireFromString(amount), decimal.RequireFromString(rate), n)
}

func TestCalculateLoan_WithInterest(t *testing.T) {
	repo := &MockLoanRepository{}
	svc := newTestService(repo, nil)

	result, err := svc.CalculateLoan(context.Background(), input("1000.00", "5.0", 3))
	require.NoError(t, err)

	assert.Equal(t, "3f1c9a2e-0000-4000-8000-000000000001", result.LoanID)
	assert.Equal(t, fixedNow, result.CreatedAt)
	assert.Equal(t, "1000.00", result.LoanAmount.String())
	assert.Equal(t, 3, result.NumberOfPayments)
	assert.Equal(t, "336.11", result.PeriodicPayment.String())
	assert.Equal(t, "1008.33", result.TotalPayment.String())
	assert.Equal(t, "8.33", result.TotalInterest.String())
	assert.Equal(t, "1008.34", result.ScheduledPayment.String())

	require.Len(t, result.PaymentSchedule, 3)
	last := result.PaymentSchedule[2]
	assert.Equal(t, 3, last.Period)
	assert.Equal(t, "336.12", last.Payment.String())
	assert.Equal(t, "0.00", last.BalanceOwed.String())

	assert.Equal(t, 1, repo.SaveCalled)
	stored, err := svc.GetLoan(context.Background(), result.LoanID)
	require.NoError(t, err)
	assert.Equal(t, result.PeriodicPayment.String(), stored.PeriodicPayment.String())
}

func TestCalculateLoan_ZeroInterest(t *testing.T) {
	svc := newTestService(&MockLoanRepository{}, nil)

	result, err := svc.CalculateLoan(context.Background(), input("12000.00", "0.00", 24))
	require.NoError(t, err)

	assert.Equal(t, "500.00", result.PeriodicPayment.String())
	assert.Equal(t, "0.00", result.TotalInterest.String())
	for _, e := range result.PaymentSchedule {
		assert.True(t, e.InterestAmount.IsZero(), "period %d", e.Period)
	}
}

func TestCalculateLoan_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   domain.LoanInput
		details []string
	}{
		{
			name:  "all fields missing",
			input: domain.LoanInput{},
			details: []string{
				"Field 'loanAmount' Loan amount is required",
				"Field 'interestRate' Interest rate is required",
				"Field 'numberOfPayments' Number of payments is required",
			},
		},
		{
			name:    "zero amount",
			input:   input("0", "5", 12),
			details: []string{"Field 'loanAmount' Loan amount must be greater than 0"},
		},
		{
			name:    "fractional cents",
			input:   input("1000.005", "5", 12),
			details: []string{"Field 'loanAmount' Loan amount must have at most 2 decimal places"},
		},
		{
			name:    "amount over limit",
			input:   input("1000000000.01", "5", 12),
			details: []string{"Field 'loanAmount' Loan amount must not exceed 1000000000.00"},
		},
		{
			name:    "negative rate",
			input:   input("1000", "-0.5", 12),
			details: []string{"Field 'interestRate' Interest rate must be at least 0"},
		},
		{
			name:    "rate over limit",
			input:   input("1000", "1000.01", 12),
			details: []string{"Field 'interestRate' Interest rate must not exceed 1000"},
		},
		{
			name:    "no payments",
			input:   input("1000", "5", 0),
			details: []string{"Field 'numberOfPayments' Number of payments must be at least 1"},
		},
		{
			name:    "too many payments",
			input:   input("1000", "5", 601),
			details: []string{"Field 'numberOfPayments' Number of payments must not exceed 600"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockLoanRepository{}
			svc := newTestService(repo, nil)

			_, err := svc.CalculateLoan(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, amortization.ErrInvalidTerms)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.details, verr.Details)
			assert.Zero(t, repo.SaveCalled)
		})
	}
}

func TestCalculateLoan_CustomLimits(t *testing.T) {
	svc := NewLoanService(&MockLoanRepository{}, nil, observability.Discard(), Limits{MaxTermMonths: 12})

	_, err := svc.CalculateLoan(context.Background(), input("1000", "5", 24))
	assert.ErrorIs(t, err, amortization.ErrInvalidTerms)

	// unset limits fall back to defaults
	assert.True(t, svc.Limits().MaxLoanAmount.Equal(DefaultMaxLoanAmount))
	assert.Equal(t, DefaultMaxTermRangeMonths, svc.Limits().MaxTermRangeMonths)
}

func TestCalculateLoan_SaveFailureIsReturned(t *testing.T) {
	repo := &MockLoanRepository{ForceError: true}
	svc := newTestService(repo, nil)

	_, err := svc.CalculateLoan(context.Background(), input("10000", "12", 24))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save loan")
	assert.Equal(t, 1, repo.SaveCalled)
}

func TestCalculateLoan_UsesCache(t *testing.T) {
	cache := &MockCache{}
	svc := newTestService(&MockLoanRepository{}, cache)

	first, err := svc.CalculateLoan(context.Background(), input("10000.00", "5.0", 12))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.SetCalls)
	require.Contains(t, cache.data, "loan:10000:5:12")

	second, err := svc.CalculateLoan(context.Background(), input("10000", "5", 12))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.SetCalls, "cached result should be reused")
	assert.Equal(t, first.PeriodicPayment.String(), second.PeriodicPayment.String())
	assert.Len(t, second.PaymentSchedule, 12)
}

func TestCalculateLoan_CachedValueIsReturned(t *testing.T) {
	cache := &MockCache{data: map[string]string{
		"loan:1000:5:3": `{"loanAmount":1000.00,"interestRate":5,"numberOfPayments":3,"periodicPayment":1.23}`,
	}}
	svc := newTestService(&MockLoanRepository{}, cache)

	result, err := svc.CalculateLoan(context.Background(), input("1000", "5", 3))
	require.NoError(t, err)
	assert.Equal(t, "1.23", result.PeriodicPayment.String())
	assert.NotEmpty(t, result.LoanID)
}

func TestCalculateLoan_CorruptCacheIsRecomputed(t *testing.T) {
	cache := &MockCache{data: map[string]string{"loan:1000:5:3": "{not json"}}
	svc := newTestService(&MockLoanRepository{}, cache)

	result, err := svc.CalculateLoan(context.Background(), input("1000", "5", 3))
	require.NoError(t, err)
	assert.Equal(t, "336.11", result.PeriodicPayment.String())
	assert.Equal(t, 1, cache.SetCalls)
}

func TestQuote_DoesNotPersist(t *testing.T) {
	repo := &MockLoanRepository{}
	svc := newTestService(repo, nil)

	result, err := svc.Quote(context.Background(), input("27000.00", "4.875", 36))
	require.NoError(t, err)
	assert.Empty(t, result.LoanID)
	assert.Equal(t, "807.70", result.PeriodicPayment.String())
	assert.Zero(t, repo.SaveCalled)
}

func TestGetLoan_NotFound(t *testing.T) {
	svc := newTestService(&MockLoanRepository{}, nil)

	_, err := svc.GetLoan(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCalculateLoan_WithMemoryRepository(t *testing.T) {
	repo := repository.NewLoanRepositoryMemory()
	svc := NewLoanService(repo, repository.NewMemoryCache(repository.MemoryCacheConfig{TTL: time.Minute}), observability.Discard(), DefaultLimits())

	a, err := svc.CalculateLoan(context.Background(), input("250000", "6.5", 360))
	require.NoError(t, err)
	b, err := svc.CalculateLoan(context.Background(), input("250000", "6.5", 360))
	require.NoError(t, err)

	assert.NotEqual(t, a.LoanID, b.LoanID)
	assert.Equal(t, 2, repo.Len())
	assert.Equal(t, "1580.17", b.PeriodicPayment.String())
}

func TestQuoteAndCalculateLoan_CountOutcomes(t *testing.T) {
	count := func(outcome string) float64 {
		return testutil.ToFloat64(observability.Calculations.WithLabelValues(outcome))
	}
	saves := func() float64 {
		return testutil.ToFloat64(observability.LoanSaves.WithLabelValues(observability.SaveOK))
	}
	svc := newTestService(&MockLoanRepository{}, &MockCache{})
	ctx := context.Background()

	ok, cached, saved := count(observability.OutcomeOK), count(observability.OutcomeCached), saves()

	_, err := svc.Quote(ctx, input("5000", "7", 48))
	require.NoError(t, err)
	assert.Equal(t, ok+1, count(observability.OutcomeOK))

	_, err = svc.CalculateLoan(ctx, input("5000", "7", 48))
	require.NoError(t, err)
	assert.Equal(t, ok+1, count(observability.OutcomeOK))
	assert.Equal(t, cached+1, count(observability.OutcomeCached))
	assert.Equal(t, saved+1, saves())

	_, err = svc.Quote(ctx, input("5000", "7", 48))
	require.NoError(t, err)
	assert.Equal(t, cached+2, count(observability.OutcomeCached))
	assert.Equal(t, saved+1, saves())
}
