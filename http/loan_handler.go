package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"loan-calculator/domain"
)

// LoanCalculator is the part of service.LoanService the handler needs.
type LoanCalculator interface {
	CalculateLoan(ctx context.Context, input domain.LoanInput) (domain.LoanResult, error)
	GetLoan(ctx context.Context, id string) (domain.LoanResult, error)
}

type LoanHandler struct {
	service LoanCalculator
	logger  *slog.Logger
}

func NewLoanHandler(service LoanCalculator, logger *slog.Logger) *LoanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoanHandler{service: service, logger: logger}
}

// CalculateLoan handles POST /api/v1/loans/calculate.
func (h *LoanHandler) CalculateLoan(w http.ResponseWriter, r *http.Request) {
	if err := requireJSON(r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var input domain.LoanInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.service.CalculateLoan(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}

// GetLoan handles GET /api/v1/loans/{id}.
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}
