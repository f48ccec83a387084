package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/platform/eldorado"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]eldorado.SearchResult
	errs    map[string]error
	calls   map[string]int
}

func (f *fakeSearcher) SearchOffers(_ context.Context, p eldorado.SearchParams) (eldorado.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[p.Query]++
	if err, ok := f.errs[p.Query]; ok {
		return eldorado.SearchPage{}, err
	}
	return eldorado.SearchPage{Results: f.results[p.Query]}, nil
}

type memListingStore struct {
	mu       sync.Mutex
	listings map[string]domain.TrackedListing
}

func newMemStore(ls ...domain.TrackedListing) *memListingStore {
	m := &memListingStore{listings: make(map[string]domain.TrackedListing)}
	for _, l := range ls {
		m.listings[l.Code] = l
	}
	return m
}

func (m *memListingStore) Get(_ context.Context, code string) (domain.TrackedListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[code]
	if !ok {
		return domain.TrackedListing{}, domain.ErrNotFound
	}
	return l, nil
}

func (m *memListingStore) Create(_ context.Context, l domain.TrackedListing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[l.Code]; ok {
		return domain.ErrAlreadyExists
	}
	m.listings[l.Code] = l
	return nil
}

func (m *memListingStore) Update(_ context.Context, l domain.TrackedListing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.Code] = l
	return nil
}

func (m *memListingStore) UpdateStatus(_ context.Context, code string, status domain.ListingStatus, scannedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.listings[code]
	l.Status = status
	l.LastScannedAt = &scannedAt
	m.listings[code] = l
	return nil
}

func (m *memListingStore) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listings, code)
	return nil
}

func (m *memListingStore) ListByOwner(_ context.Context, owner string) ([]domain.TrackedListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TrackedListing
	for _, l := range m.listings {
		if l.OwnerKey == owner {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memListingStore) ListByStatus(_ context.Context, status domain.ListingStatus) ([]domain.TrackedListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TrackedListing
	for _, l := range m.listings {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memListingStore) ListAll(_ context.Context) ([]domain.TrackedListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TrackedListing, 0, len(m.listings))
	for _, l := range m.listings {
		out = append(out, l)
	}
	return out, nil
}

func (m *memListingStore) DistinctItemRates(_ context.Context, limit int) ([]domain.ItemRate, error) {
	return nil, nil
}

func (m *memListingStore) PurgePausedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for code, l := range m.listings {
		if l.Status == domain.ListingStatusPaused && l.PausedAt != nil && l.PausedAt.Before(cutoff) {
			delete(m.listings, code)
			n++
		}
	}
	return n, nil
}

func testReconciler(s Searcher, store domain.ListingStore) *Reconciler {
	cfg := DefaultConfig()
	cfg.RetryDelay = 0
	return New(s, store, nil, cfg, slog.New(slog.DiscardHandler))
}

func foundResult(code string) eldorado.SearchResult {
	return eldorado.SearchResult{Offer: eldorado.OfferBody{
		ID:                "ext-" + code,
		OfferTitle:        "Tralalero 150M/s #" + code,
		PricePerUnitInUSD: &eldorado.Money{Amount: decimal.NewFromFloat(12.5)},
	}}
}

func TestRunActivatesPendingListing(t *testing.T) {
	store := newMemStore(domain.TrackedListing{
		Code: "AB23CD45", Status: domain.ListingStatusPending,
	})
	searcher := &fakeSearcher{results: map[string][]eldorado.SearchResult{
		"AB23CD45": {foundResult("AB23CD45")},
	}}

	report, err := testReconciler(searcher, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Activated)
	assert.Equal(t, 0, report.Paused)

	l, err := store.Get(context.Background(), "AB23CD45")
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusActive, l.Status)
	assert.Equal(t, "ext-AB23CD45", l.ExternalID)
	assert.Equal(t, 150.0, l.Rate)
	assert.Equal(t, "12.5", l.CurrentPrice.String())
	assert.Equal(t, 0, l.NotFoundStreak)
	assert.NotNil(t, l.LastScannedAt)
}

func TestRunPausesConfirmedEmptyInOnePass(t *testing.T) {
	store := newMemStore(domain.TrackedListing{
		Code: "GSAAAAAA", Status: domain.ListingStatusActive,
	})
	searcher := &fakeSearcher{} // clean empty results for every query

	report, err := testReconciler(searcher, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Paused)

	l, _ := store.Get(context.Background(), "GSAAAAAA")
	assert.Equal(t, domain.ListingStatusPaused, l.Status)
	assert.NotNil(t, l.PausedAt)
	assert.Equal(t, 1, l.NotFoundStreak)
}

func TestRunErrorNeverChangesStatus(t *testing.T) {
	store := newMemStore(domain.TrackedListing{
		Code: "GSBBBBBB", Status: domain.ListingStatusActive,
	})
	searcher := &fakeSearcher{errs: map[string]error{
		"GSBBBBBB": domain.ErrRateLimited,
	}}

	report, err := testReconciler(searcher, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.SkippedOnError)
	assert.Equal(t, 0, report.Paused)

	l, _ := store.Get(context.Background(), "GSBBBBBB")
	assert.Equal(t, domain.ListingStatusActive, l.Status)
	assert.NotNil(t, l.LastScannedAt, "transient errors still record the scan time")
}

func TestRunReactivatesPausedListing(t *testing.T) {
	pausedAt := time.Now().Add(-time.Hour)
	store := newMemStore(domain.TrackedListing{
		Code: "GSCCCCCC", Status: domain.ListingStatusPaused, PausedAt: &pausedAt,
	})
	searcher := &fakeSearcher{results: map[string][]eldorado.SearchResult{
		"GSCCCCCC": {foundResult("GSCCCCCC")},
	}}

	report, err := testReconciler(searcher, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Activated)

	l, _ := store.Get(context.Background(), "GSCCCCCC")
	assert.Equal(t, domain.ListingStatusActive, l.Status)
	assert.Nil(t, l.PausedAt)
}

func TestRunIsIdempotent(t *testing.T) {
	store := newMemStore(
		domain.TrackedListing{Code: "GSDDDDDD", Status: domain.ListingStatusPending},
		domain.TrackedListing{Code: "GSEEEEEE", Status: domain.ListingStatusActive},
	)
	searcher := &fakeSearcher{results: map[string][]eldorado.SearchResult{
		"GSDDDDDD": {foundResult("GSDDDDDD")},
		"GSEEEEEE": {foundResult("GSEEEEEE")},
	}}
	r := testReconciler(searcher, store)

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Activated)

	second, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Activated, "unchanged marketplace must produce zero transitions")
	assert.Equal(t, 0, second.Paused)
}

func TestCleanupPurgesExpiredPaused(t *testing.T) {
	old := time.Now().Add(-100 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	store := newMemStore(
		domain.TrackedListing{Code: "GSOLD111", Status: domain.ListingStatusPaused, PausedAt: &old},
		domain.TrackedListing{Code: "GSNEW222", Status: domain.ListingStatusPaused, PausedAt: &recent},
	)

	n, err := testReconciler(&fakeSearcher{}, store).Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(context.Background(), "GSOLD111")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Get(context.Background(), "GSNEW222")
	assert.NoError(t, err)
}

func TestExtractCodes(t *testing.T) {
	codes := ExtractCodes("Tralalero 150M/s #GS12AB34 combo [XY99ZZ88] (1234) #GS12AB34")
	assert.Equal(t, []string{"GS12AB34", "XY99ZZ88"}, codes)

	assert.Empty(t, ExtractCodes("no codes here"))
	assert.Empty(t, ExtractCodes(""))
	assert.Empty(t, ExtractCodes("#123456 purely numeric"), "numeric matches are prices, not codes")
}

func TestGenerateCode(t *testing.T) {
	code := GenerateCode("gs")
	assert.Len(t, code, 8)
	assert.Equal(t, "GS", code[:2])
	for _, c := range code[2:] {
		assert.Contains(t, codeAlphabet, string(c))
	}

	// Codes must survive their own extraction round trip.
	assert.Equal(t, []string{code}, ExtractCodes("title #"+code))
}
