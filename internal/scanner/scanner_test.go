package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/platform/eldorado"
)

type fakeFetcher struct {
	pages map[int]eldorado.SearchPage
	errs  map[int]error
	calls []int
}

func (f *fakeFetcher) SearchOffers(_ context.Context, p eldorado.SearchParams) (eldorado.SearchPage, error) {
	f.calls = append(f.calls, p.PageIndex)
	if err, ok := f.errs[p.PageIndex]; ok {
		return eldorado.SearchPage{}, err
	}
	return f.pages[p.PageIndex], nil
}

func result(id, title string, price float64) eldorado.SearchResult {
	return eldorado.SearchResult{
		Offer: eldorado.OfferBody{
			ID:                id,
			OfferTitle:        title,
			PricePerUnitInUSD: &eldorado.Money{Amount: decimal.NewFromFloat(price)},
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PageDelay = 0
	return cfg
}

func newTestScanner(f *fakeFetcher) *Scanner {
	return New(f, nil, testConfig(), slog.New(slog.DiscardHandler))
}

func pageOf(results ...eldorado.SearchResult) eldorado.SearchPage {
	return eldorado.SearchPage{Results: results}
}

func bandPage(page, n int, rate float64, priceStart float64) []eldorado.SearchResult {
	out := make([]eldorado.SearchResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, result(
			fmt.Sprintf("p%d-%d", page, i),
			fmt.Sprintf("Unit %1.0fM/s", rate),
			priceStart+float64(i),
		))
	}
	return out
}

func TestScanStopsOnUpperWithEnoughSamples(t *testing.T) {
	f := &fakeFetcher{pages: map[int]eldorado.SearchPage{
		1: pageOf(bandPage(1, 9, 60, 5)...),
		2: pageOf(append(bandPage(2, 1, 60, 20), result("up-1", "Unit 95M/s", 30))...),
		3: pageOf(bandPage(3, 5, 60, 40)...),
	}}

	res, err := newTestScanner(f).Scan(context.Background(), "unit", 90, domain.Band50to100)
	require.NoError(t, err)

	assert.Equal(t, "upper found", res.StopReason)
	assert.Equal(t, []int{1, 2}, f.calls, "scan must stop before page 3")
	assert.Len(t, res.Offers, 11)
}

func TestScanPageErrorIsNotEmptyPage(t *testing.T) {
	f := &fakeFetcher{
		pages: map[int]eldorado.SearchPage{
			2: pageOf(append(bandPage(2, 10, 60, 5), result("up-1", "Unit 95M/s", 30))...),
		},
		errs: map[int]error{1: domain.ErrRateLimited},
	}

	res, err := newTestScanner(f).Scan(context.Background(), "unit", 90, domain.Band50to100)
	require.NoError(t, err)

	assert.Equal(t, 1, res.PageErrors)
	assert.Equal(t, "upper found", res.StopReason)
	assert.Len(t, res.Offers, 11)
}

func TestScanStopsAfterConsecutiveEmptyPages(t *testing.T) {
	f := &fakeFetcher{pages: map[int]eldorado.SearchPage{
		1: pageOf(bandPage(1, 2, 60, 5)...),
		// pages 2 and 3 empty
	}}

	res, err := newTestScanner(f).Scan(context.Background(), "unit", 90, domain.Band50to100)
	require.NoError(t, err)

	assert.Equal(t, "exhausted", res.StopReason)
	assert.Equal(t, []int{1, 2, 3}, f.calls)
	assert.Len(t, res.Offers, 2)
}

func TestScanDeduplicatesByExternalID(t *testing.T) {
	dup := result("same-id", "Unit 60M/s", 5)
	f := &fakeFetcher{pages: map[int]eldorado.SearchPage{
		1: pageOf(dup, dup),
	}}

	res, err := newTestScanner(f).Scan(context.Background(), "unit", 90, domain.Band50to100)
	require.NoError(t, err)
	assert.Len(t, res.Offers, 1)
}

func TestScanExcludesOwnStore(t *testing.T) {
	f := &fakeFetcher{pages: map[int]eldorado.SearchPage{
		1: pageOf(
			result("own-1", "Unit 60M/s #GS12AB34 Glitched Store", 4),
			result("comp-1", "Unit 60M/s", 5),
		),
	}}

	res, err := newTestScanner(f).Scan(context.Background(), "unit", 90, domain.Band50to100)
	require.NoError(t, err)

	require.Len(t, res.Offers, 1)
	assert.Equal(t, "comp-1", res.Offers[0].ExternalID)
}

func TestScanUnparsedTitleFallsBackToBand(t *testing.T) {
	f := &fakeFetcher{pages: map[int]eldorado.SearchPage{
		1: pageOf(result("x-1", "no rate in this title", 5)),
	}}

	res, err := newTestScanner(f).Scan(context.Background(), "unit", 90, domain.Band50to100)
	require.NoError(t, err)

	require.Len(t, res.Offers, 1)
	o := res.Offers[0]
	assert.False(t, o.RateKnown)
	assert.Equal(t, domain.RateSourceBandFallback, o.RateSource)
	assert.Equal(t, domain.Band50to100, o.Band)
	assert.Equal(t, 50.0, o.Rate)
}

func TestScanHardPageCeiling(t *testing.T) {
	pages := make(map[int]eldorado.SearchPage)
	for i := 1; i <= 100; i++ {
		// Every page yields one new low-band offer, so no stall or
		// saturation condition ever fires.
		pages[i] = pageOf(result(fmt.Sprintf("c-%d", i), "Unit 10M/s", float64(i)))
	}
	f := &fakeFetcher{pages: pages}

	cfg := testConfig()
	cfg.MaxPages = 7
	s := New(f, nil, cfg, slog.New(slog.DiscardHandler))

	res, err := s.Scan(context.Background(), "unit", 90, domain.Band50to100)
	require.NoError(t, err)

	assert.Equal(t, "page ceiling", res.StopReason)
	assert.Len(t, f.calls, 7)
}

func TestScanStallsWithoutBandMatches(t *testing.T) {
	pages := make(map[int]eldorado.SearchPage)
	pages[1] = pageOf(result("m-1", "Unit 60M/s", 3))
	for i := 2; i <= 40; i++ {
		pages[i] = pageOf(result(fmt.Sprintf("lo-%d", i), "Unit 10M/s", float64(i)))
	}
	f := &fakeFetcher{pages: pages}

	res, err := newTestScanner(f).Scan(context.Background(), "unit", 90, domain.Band50to100)
	require.NoError(t, err)

	assert.Equal(t, "stalled", res.StopReason)
	// page 1 matched, then StallPagesAny pages without a band match.
	assert.Len(t, f.calls, 1+testConfig().StallPagesAny)
}

func TestScanAllPagesFailed(t *testing.T) {
	errs := make(map[int]error)
	for i := 1; i <= 50; i++ {
		errs[i] = domain.ErrRateLimited
	}
	f := &fakeFetcher{errs: errs}

	_, err := newTestScanner(f).Scan(context.Background(), "unit", 90, domain.Band50to100)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}
