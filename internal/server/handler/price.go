package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// PriceService defines the methods that the price handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type PriceService interface {
	Recommend(ctx context.Context, itemName string, callerRate float64) (domain.PriceRecommendation, error)
	History(ctx context.Context, itemName string, callerRate float64, opts domain.ListOpts) ([]domain.PriceLogEntry, error)
}

// PriceHandler serves price recommendation endpoints.
type PriceHandler struct {
	prices PriceService
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler with the given service and logger.
func NewPriceHandler(prices PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		prices: prices,
		logger: logger,
	}
}

// priceResponse is the recommendation payload returned to panels.
type priceResponse struct {
	Item           string  `json:"item"`
	Rate           float64 `json:"rate"`
	Band           string  `json:"band"`
	SuggestedPrice string  `json:"suggestedPrice"`
	Rationale      string  `json:"rationale"`
	SampleSize     int     `json:"sampleSize"`
	ComputedAt     string  `json:"computedAt"`
}

// GetPrice computes a price recommendation for an item at a farming rate.
// GET /api/price?item=Tralalero+Tralala&rate=150
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	item := strings.TrimSpace(q.Get("item"))
	if item == "" {
		writeError(w, http.StatusBadRequest, "missing item parameter")
		return
	}

	rate, err := strconv.ParseFloat(q.Get("rate"), 64)
	if err != nil || rate <= 0 {
		writeError(w, http.StatusBadRequest, "rate must be a positive number")
		return
	}

	rec, err := h.prices.Recommend(r.Context(), item, rate)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAmbiguousIdentity):
			writeError(w, http.StatusNotFound, "item not found on the marketplace under any search variant")
		case errors.Is(err, domain.ErrInsufficientData):
			writeError(w, http.StatusUnprocessableEntity, "not enough comparable offers to price this item")
		case errors.Is(err, domain.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "marketplace rate limit reached, retry shortly")
		default:
			h.logger.ErrorContext(r.Context(), "handler: price recommendation failed",
				slog.String("item", item),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to compute recommendation")
		}
		return
	}

	writeJSON(w, http.StatusOK, priceResponse{
		Item:           item,
		Rate:           rate,
		Band:           rec.Band.String(),
		SuggestedPrice: rec.SuggestedPrice.StringFixed(2),
		Rationale:      rec.Rationale,
		SampleSize:     rec.SampleSize,
		ComputedAt:     rec.ComputedAt.Format(time.RFC3339),
	})
}

// priceHistoryEntry is one past recommendation in the history payload.
type priceHistoryEntry struct {
	SuggestedPrice string `json:"suggestedPrice"`
	Rationale      string `json:"rationale"`
	Band           string `json:"band"`
	ComputedAt     string `json:"computedAt"`
}

// GetPriceHistory lists past recommendations for an item and rate, most
// recent first.
// GET /api/price/history?item=Tralalero+Tralala&rate=150&limit=20
func (h *PriceHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	item := strings.TrimSpace(q.Get("item"))
	if item == "" {
		writeError(w, http.StatusBadRequest, "missing item parameter")
		return
	}

	rate, err := strconv.ParseFloat(q.Get("rate"), 64)
	if err != nil || rate <= 0 {
		writeError(w, http.StatusBadRequest, "rate must be a positive number")
		return
	}

	entries, err := h.prices.History(r.Context(), item, rate, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: price history failed",
			slog.String("item", item),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read price history")
		return
	}

	out := make([]priceHistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, priceHistoryEntry{
			SuggestedPrice: e.SuggestedPrice.StringFixed(2),
			Rationale:      e.Rationale,
			Band:           e.Band.String(),
			ComputedAt:     e.ComputedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item":    item,
		"rate":    rate,
		"history": out,
	})
}
