package pipeline

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/notify"
)

type fakeTrackedStore struct {
	items []domain.ItemRate
}

func (f *fakeTrackedStore) Get(context.Context, string) (domain.TrackedListing, error) {
	return domain.TrackedListing{}, domain.ErrNotFound
}
func (f *fakeTrackedStore) Create(context.Context, domain.TrackedListing) error { return nil }
func (f *fakeTrackedStore) Update(context.Context, domain.TrackedListing) error { return nil }
func (f *fakeTrackedStore) UpdateStatus(context.Context, string, domain.ListingStatus, time.Time) error {
	return nil
}
func (f *fakeTrackedStore) Delete(context.Context, string) error { return nil }
func (f *fakeTrackedStore) ListByOwner(context.Context, string) ([]domain.TrackedListing, error) {
	return nil, nil
}
func (f *fakeTrackedStore) ListByStatus(context.Context, domain.ListingStatus) ([]domain.TrackedListing, error) {
	return nil, nil
}
func (f *fakeTrackedStore) ListAll(context.Context) ([]domain.TrackedListing, error) {
	return nil, nil
}
func (f *fakeTrackedStore) DistinctItemRates(_ context.Context, limit int) ([]domain.ItemRate, error) {
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}
func (f *fakeTrackedStore) PurgePausedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeRecommender struct {
	prices map[string]string
	calls  int
}

func (f *fakeRecommender) Recommend(_ context.Context, itemName string, _ float64) (domain.PriceRecommendation, error) {
	f.calls++
	p, ok := f.prices[itemName]
	if !ok {
		return domain.PriceRecommendation{}, domain.ErrInsufficientData
	}
	return domain.PriceRecommendation{
		SuggestedPrice: decimal.RequireFromString(p),
		Rationale:      "test",
		ComputedAt:     time.Now().UTC(),
	}, nil
}

type memSender struct {
	msgs []string
}

func (m *memSender) Send(_ context.Context, title, _ string) error {
	m.msgs = append(m.msgs, title)
	return nil
}
func (m *memSender) Name() string { return "mem" }

func TestRunRefreshesTrackedItems(t *testing.T) {
	store := &fakeTrackedStore{items: []domain.ItemRate{
		{ItemName: "Tralalero Tralala", Rate: 150, Count: 3},
		{ItemName: "Unlisted Thing", Rate: 30, Count: 1},
	}}
	rec := &fakeRecommender{prices: map[string]string{"Tralalero Tralala": "9"}}
	s := NewPriceScanner(store, rec, nil, 50, slog.New(slog.DiscardHandler))

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 2, rec.calls, "unpriceable items are skipped, not fatal")
}

func TestNotifiesOnPriceMovement(t *testing.T) {
	store := &fakeTrackedStore{items: []domain.ItemRate{
		{ItemName: "Tralalero Tralala", Rate: 150, Count: 3},
	}}
	rec := &fakeRecommender{prices: map[string]string{"Tralalero Tralala": "9"}}
	sender := &memSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, slog.New(slog.DiscardHandler))
	s := NewPriceScanner(store, rec, notifier, 50, slog.New(slog.DiscardHandler))

	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, sender.msgs, "first observation sets the baseline")

	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, sender.msgs, "unchanged price stays quiet")

	rec.prices["Tralalero Tralala"] = "8.5"
	require.NoError(t, s.Run(context.Background()))
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "Tralalero Tralala")
}

func TestMaxItemsCapsPass(t *testing.T) {
	store := &fakeTrackedStore{items: []domain.ItemRate{
		{ItemName: "a", Rate: 10}, {ItemName: "b", Rate: 20}, {ItemName: "c", Rate: 30},
	}}
	rec := &fakeRecommender{prices: map[string]string{"a": "1", "b": "2", "c": "3"}}
	s := NewPriceScanner(store, rec, nil, 2, slog.New(slog.DiscardHandler))

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 2, rec.calls)
}
