package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

var (
	centHalf = decimal.NewFromFloat(0.5)
	centOne  = decimal.NewFromInt(1)
)

// Anchor computes price recommendations from a scanned offer set. It is
// a pure engine: no clock injection beyond the now func, no I/O, and
// calling it twice on the same inputs yields the same price and
// rationale.
type Anchor struct {
	now func() time.Time
}

// NewAnchor creates the price anchor engine.
func NewAnchor() *Anchor {
	return &Anchor{now: time.Now}
}

// Recommend undercuts the nearest competitor with rate >= callerRate.
//
// Offers whose rate was parsed from the title partition into upper
// (rate >= callerRate) and lower (rate < callerRate). Band-fallback
// offers contribute to the sample size but never anchor a price.
// Returns ErrInsufficientData when the offer set is empty.
func (a *Anchor) Recommend(offers []domain.ScannedOffer, callerRate float64, band domain.Band) (domain.PriceRecommendation, error) {
	if len(offers) == 0 {
		return domain.PriceRecommendation{}, fmt.Errorf("pricing: recommend: %w", domain.ErrInsufficientData)
	}

	var upper, lower []domain.ScannedOffer
	for _, o := range offers {
		if !o.RateKnown || o.RateSource != domain.RateSourceExact {
			continue
		}
		if o.Rate >= callerRate {
			upper = append(upper, o)
		} else {
			lower = append(lower, o)
		}
	}
	sortByPriceAsc(upper)
	sortByPriceAsc(lower)

	rec := domain.PriceRecommendation{
		Band:       band,
		SampleSize: len(offers),
		ComputedAt: a.now().UTC(),
	}

	switch {
	case len(upper) > 0:
		anchor := upper[0]
		rec.Upper = &anchor
		floor := pickFloor(lower, anchor.Price)
		if floor != nil {
			rec.Lower = floor
			diff := anchor.Price.Sub(floor.Price)
			if diff.GreaterThanOrEqual(centOne) {
				rec.SuggestedPrice = round2(anchor.Price.Sub(centOne))
				rec.Rationale = fmt.Sprintf("upper %.0fM/s @ $%s, lower %.0fM/s @ $%s, diff $%s >= $1 -> -$1",
					anchor.Rate, anchor.Price.StringFixed(2), floor.Rate, floor.Price.StringFixed(2), diff.StringFixed(2))
			} else {
				rec.SuggestedPrice = round2(anchor.Price.Sub(centHalf))
				rec.Rationale = fmt.Sprintf("upper %.0fM/s @ $%s, lower %.0fM/s @ $%s, diff $%s < $1 -> -$0.50",
					anchor.Rate, anchor.Price.StringFixed(2), floor.Rate, floor.Price.StringFixed(2), diff.StringFixed(2))
			}
		} else {
			rec.SuggestedPrice = round2(anchor.Price.Sub(centHalf))
			rec.Rationale = fmt.Sprintf("upper %.0fM/s @ $%s, no lower -> -$0.50",
				anchor.Rate, anchor.Price.StringFixed(2))
		}

	case len(lower) > 0:
		// Caller's rate exceeds everything observed. Price above the
		// observed ceiling with a markup proportional to the rate gap,
		// capped at +$5.
		maxRate := lower[0]
		for _, o := range lower[1:] {
			if o.Rate > maxRate.Rate {
				maxRate = o
			}
		}
		maxPrice := lower[len(lower)-1].Price
		markup := 0.01 * (callerRate - maxRate.Rate)
		if markup > 5 {
			markup = 5
		}
		rec.Lower = &maxRate
		rec.SuggestedPrice = round2(maxPrice.Add(centOne).Add(decimal.NewFromFloat(markup)))
		rec.Rationale = fmt.Sprintf("above market (max %.0fM/s, ceiling $%s) -> +$1 +$%.2f markup",
			maxRate.Rate, maxPrice.StringFixed(2), markup)

	default:
		// No offer parsed a rate: pure price anchoring off the cheapest
		// observed offer.
		cheapest := offers[0]
		for _, o := range offers[1:] {
			if o.Price.LessThan(cheapest.Price) {
				cheapest = o
			}
		}
		rec.SuggestedPrice = round2(cheapest.Price.Sub(centHalf))
		rec.Rationale = fmt.Sprintf("no parsed rates, cheapest observed $%s -> -$0.50",
			cheapest.Price.StringFixed(2))
	}

	return rec, nil
}

// pickFloor finds the closest competitor below the caller: among lower
// offers priced under the anchor, the one with the highest rate,
// tie-broken by highest price.
func pickFloor(lower []domain.ScannedOffer, anchorPrice decimal.Decimal) *domain.ScannedOffer {
	var floor *domain.ScannedOffer
	for i := range lower {
		o := &lower[i]
		if !o.Price.LessThan(anchorPrice) {
			continue
		}
		if floor == nil || o.Rate > floor.Rate ||
			(o.Rate == floor.Rate && o.Price.GreaterThan(floor.Price)) {
			floor = o
		}
	}
	if floor == nil {
		return nil
	}
	cp := *floor
	return &cp
}

func sortByPriceAsc(offers []domain.ScannedOffer) {
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].Price.LessThan(offers[j].Price)
	})
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
