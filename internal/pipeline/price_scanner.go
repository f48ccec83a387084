package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/notify"
)

// Recommender computes a price recommendation for an item at a given
// farming rate.
type Recommender interface {
	Recommend(ctx context.Context, itemName string, callerRate float64) (domain.PriceRecommendation, error)
}

// PriceScanner periodically refreshes recommendations for the item/rate
// combinations panel users are actually tracking. When a refreshed
// suggestion moves from the previous pass, operators are notified.
type PriceScanner struct {
	store       domain.ListingStore
	recommender Recommender
	notifier    *notify.Notifier
	logger      *slog.Logger

	// maxItems caps how many distinct item/rate pairs one pass covers;
	// the store returns them most-tracked first.
	maxItems int

	mu   sync.Mutex
	last map[string]decimal.Decimal // cache key -> previously suggested price
}

// NewPriceScanner creates a PriceScanner. notifier may be nil.
func NewPriceScanner(store domain.ListingStore, recommender Recommender, notifier *notify.Notifier, maxItems int, logger *slog.Logger) *PriceScanner {
	if maxItems <= 0 {
		maxItems = 50
	}
	return &PriceScanner{
		store:       store,
		recommender: recommender,
		notifier:    notifier,
		logger:      logger.With(slog.String("component", "price_scanner")),
		maxItems:    maxItems,
		last:        make(map[string]decimal.Decimal),
	}
}

// Run executes a single refresh pass. Per-item failures are logged and
// skipped; the pass only fails outright when the tracked set cannot be
// listed.
func (s *PriceScanner) Run(ctx context.Context) error {
	items, err := s.store.DistinctItemRates(ctx, s.maxItems)
	if err != nil {
		return fmt.Errorf("price scanner: list tracked items: %w", err)
	}
	if len(items) == 0 {
		s.logger.Debug("no tracked items to refresh")
		return nil
	}

	refreshed := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("price scanner: %w", err)
		}

		rec, err := s.recommender.Recommend(ctx, item.ItemName, item.Rate)
		switch {
		case err == nil:
			refreshed++
			s.observe(ctx, item, rec)
		case errors.Is(err, domain.ErrInsufficientData),
			errors.Is(err, domain.ErrAmbiguousIdentity):
			s.logger.Debug("item not priceable",
				slog.String("item", item.ItemName),
				slog.Float64("rate", item.Rate),
				slog.Any("error", err))
		default:
			s.logger.Error("recommendation refresh failed",
				slog.String("item", item.ItemName),
				slog.Float64("rate", item.Rate),
				slog.Any("error", err))
		}
	}

	s.logger.Info("price refresh pass complete",
		slog.Int("tracked", len(items)),
		slog.Int("refreshed", refreshed))
	return nil
}

// RunLoop runs refresh passes on a repeating interval until the context
// is cancelled. The first pass starts immediately.
func (s *PriceScanner) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := s.Run(ctx); err != nil {
		s.logger.Error("price refresh pass failed", slog.Any("error", err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("price scanner loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error("price refresh pass failed", slog.Any("error", err))
				s.alert(ctx, err)
			}
		}
	}
}

// alert raises an operator notification for a whole-pass failure.
func (s *PriceScanner) alert(ctx context.Context, passErr error) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, "error", "Price refresh failed", passErr.Error()); err != nil {
		s.logger.Warn("error notification failed", slog.Any("error", err))
	}
}

// observe remembers the suggestion and alerts on movement since the
// previous pass for the same item and band.
func (s *PriceScanner) observe(ctx context.Context, item domain.ItemRate, rec domain.PriceRecommendation) {
	key := domain.RecommendationCacheKey(item.ItemName, domain.BandOf(item.Rate))

	s.mu.Lock()
	prev, seen := s.last[key]
	s.last[key] = rec.SuggestedPrice
	s.mu.Unlock()

	if !seen || prev.Equal(rec.SuggestedPrice) {
		return
	}

	s.logger.Info("suggested price moved",
		slog.String("item", item.ItemName),
		slog.String("previous", prev.StringFixed(2)),
		slog.String("current", rec.SuggestedPrice.StringFixed(2)))

	if s.notifier == nil {
		return
	}
	title := fmt.Sprintf("Price moved: %s", item.ItemName)
	msg := fmt.Sprintf("%.0f/s band: $%s -> $%s (%s)",
		item.Rate, prev.StringFixed(2), rec.SuggestedPrice.StringFixed(2), rec.Rationale)
	if err := s.notifier.Notify(ctx, "price_change", title, msg); err != nil {
		s.logger.Warn("price change notification failed", slog.Any("error", err))
	}
}
