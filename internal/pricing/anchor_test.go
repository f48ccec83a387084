package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

func fixedAnchor() *Anchor {
	return &Anchor{now: func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	}}
}

func offer(rate float64, price string) domain.ScannedOffer {
	return domain.ScannedOffer{
		Rate:       rate,
		RateKnown:  true,
		RateSource: domain.RateSourceExact,
		Price:      decimal.RequireFromString(price),
	}
}

func TestRecommendUpperAndWideFloor(t *testing.T) {
	offers := []domain.ScannedOffer{
		offer(100, "10"),
		offer(80, "7"),
	}
	rec, err := fixedAnchor().Recommend(offers, 90, domain.Band50to100)
	require.NoError(t, err)

	assert.Equal(t, "9", rec.SuggestedPrice.String())
	require.NotNil(t, rec.Upper)
	require.NotNil(t, rec.Lower)
	assert.Equal(t, 100.0, rec.Upper.Rate)
	assert.Equal(t, 80.0, rec.Lower.Rate)
	assert.Contains(t, rec.Rationale, ">= $1")
}

func TestRecommendUpperAndTightFloor(t *testing.T) {
	offers := []domain.ScannedOffer{
		offer(100, "10"),
		offer(80, "9.8"),
	}
	rec, err := fixedAnchor().Recommend(offers, 90, domain.Band50to100)
	require.NoError(t, err)

	assert.Equal(t, "9.5", rec.SuggestedPrice.String())
	assert.Contains(t, rec.Rationale, "< $1")
}

func TestRecommendNoFloor(t *testing.T) {
	offers := []domain.ScannedOffer{offer(100, "10")}
	rec, err := fixedAnchor().Recommend(offers, 90, domain.Band50to100)
	require.NoError(t, err)

	assert.Equal(t, "9.5", rec.SuggestedPrice.String())
	assert.Nil(t, rec.Lower)
	assert.Contains(t, rec.Rationale, "no lower")
}

func TestRecommendFloorPicksHighestRateBelowAnchor(t *testing.T) {
	offers := []domain.ScannedOffer{
		offer(100, "10"),
		offer(60, "6"),
		offer(85, "8"), // highest rate under the anchor wins, not cheapest
		offer(85, "7"),
	}
	rec, err := fixedAnchor().Recommend(offers, 90, domain.Band50to100)
	require.NoError(t, err)

	require.NotNil(t, rec.Lower)
	assert.Equal(t, 85.0, rec.Lower.Rate)
	assert.Equal(t, "8", rec.Lower.Price.String())
}

func TestRecommendAboveMarket(t *testing.T) {
	offers := []domain.ScannedOffer{
		offer(120, "20"),
		offer(150, "25"),
	}
	rec, err := fixedAnchor().Recommend(offers, 200, domain.Band100to250)
	require.NoError(t, err)

	// ceiling 25 + 1 + min(0.01*(200-150), 5) = 26.50
	assert.Equal(t, "26.5", rec.SuggestedPrice.String())
	assert.Nil(t, rec.Upper)
	assert.Contains(t, rec.Rationale, "above market")
}

func TestRecommendAboveMarketMarkupCap(t *testing.T) {
	offers := []domain.ScannedOffer{offer(50, "8")}
	rec, err := fixedAnchor().Recommend(offers, 5000, domain.Band1000Plus)
	require.NoError(t, err)

	// markup 0.01*4950 caps at 5: 8 + 1 + 5.
	assert.Equal(t, "14", rec.SuggestedPrice.String())
}

func TestRecommendNoParsedRates(t *testing.T) {
	offers := []domain.ScannedOffer{
		{Price: decimal.RequireFromString("4.2"), RateSource: domain.RateSourceBandFallback, RateKnown: false},
		{Price: decimal.RequireFromString("3.1"), RateSource: domain.RateSourceBandFallback, RateKnown: false},
	}
	rec, err := fixedAnchor().Recommend(offers, 90, domain.Band50to100)
	require.NoError(t, err)

	assert.Equal(t, "2.6", rec.SuggestedPrice.String())
	assert.Contains(t, rec.Rationale, "cheapest observed")
}

func TestRecommendBandFallbackNeverAnchors(t *testing.T) {
	offers := []domain.ScannedOffer{
		{Price: decimal.RequireFromString("2"), Rate: 95, RateKnown: true, RateSource: domain.RateSourceBandFallback},
		offer(100, "10"),
	}
	rec, err := fixedAnchor().Recommend(offers, 90, domain.Band50to100)
	require.NoError(t, err)

	require.NotNil(t, rec.Upper)
	assert.Equal(t, "10", rec.Upper.Price.String())
	assert.Equal(t, 2, rec.SampleSize)
}

func TestRecommendEmpty(t *testing.T) {
	_, err := fixedAnchor().Recommend(nil, 90, domain.Band50to100)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestRecommendIdempotent(t *testing.T) {
	offers := []domain.ScannedOffer{
		offer(100, "10"),
		offer(80, "7"),
		offer(95, "9.25"),
	}
	a := fixedAnchor()
	first, err := a.Recommend(offers, 90, domain.Band50to100)
	require.NoError(t, err)
	second, err := a.Recommend(offers, 90, domain.Band50to100)
	require.NoError(t, err)

	assert.True(t, first.SuggestedPrice.Equal(second.SuggestedPrice))
	assert.Equal(t, first.Rationale, second.Rationale)
}
