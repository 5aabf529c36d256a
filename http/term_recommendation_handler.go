package http

import (
	"context"
	"log/slog"
	"net/http"

	"loan-calculator/domain"
)

type TermRecommender interface {
	RecommendTerm(ctx context.Context, input domain.TermRecommendationInput) (domain.TermRecommendationResult, error)
}

type TermRecommendationHandler struct {
	service TermRecommender
	logger  *slog.Logger
}

func NewTermRecommendationHandler(service TermRecommender, logger *slog.Logger) *TermRecommendationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TermRecommendationHandler{service: service, logger: logger}
}

// RecommendTerm handles POST /api/v1/loans/recommend-term.
func (h *TermRecommendationHandler) RecommendTerm(w http.ResponseWriter, r *http.Request) {
	if err := requireJSON(r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var input domain.TermRecommendationInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.service.RecommendTerm(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}
