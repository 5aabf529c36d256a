package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loancalc"

// Calculation outcomes. Every CalculateLoan and Quote call ends in exactly one.
const (
	OutcomeOK      = "ok"
	OutcomeCached  = "cached"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Save results.
const (
	SaveOK     = "ok"
	SaveFailed = "failed"
)

var (
	// Calculations counts loan results by outcome, whether or not they are
	// stored afterwards.
	Calculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Loan results by outcome; cache hits are counted as cached.",
		},
		[]string{"outcome"},
	)

	CalculationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_seconds",
			Help:      "Time spent producing a loan result, from the cache or the engine.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	LoanSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_saves_total",
			Help:      "Loan repository saves by result.",
		},
		[]string{"result"},
	)

	ScheduleLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_length",
			Help:      "Number of periods in schedules computed by the engine.",
			Buckets:   []float64{1, 3, 6, 12, 24, 36, 60, 120, 240, 360, 600},
		},
	)

	// CacheLookups counts result cache lookups by hit or miss.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups.",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
