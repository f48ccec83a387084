package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSource records how a scanned offer's rate was obtained.
type RateSource string

const (
	// RateSourceExact means the rate was parsed directly from the title.
	RateSourceExact RateSource = "exact"
	// RateSourceBandFallback means the title did not parse and the rate
	// is estimated from the band the offer was found in. Fallback offers
	// count toward band sample sizes but never anchor a price.
	RateSourceBandFallback RateSource = "bandFallback"
)

// ScannedOffer is one competitor offer observed during a marketplace scan.
// Offers are produced transiently per scan cycle and never mutated after
// creation.
type ScannedOffer struct {
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	Rate       float64         `json:"rate"`
	RateKnown  bool            `json:"rateKnown"`
	RateSource RateSource      `json:"rateSource"`
	Band       Band            `json:"band"`
	ExternalID string          `json:"externalId"`
	Seller     string          `json:"seller,omitempty"`
	Page       int             `json:"page"`
}

// PriceRecommendation is the outcome of the price anchor engine for one
// (identity, band) pair. It is cached with a TTL and superseded, never
// merged, on recompute.
type PriceRecommendation struct {
	SuggestedPrice decimal.Decimal `json:"suggestedPrice"`
	Upper          *ScannedOffer   `json:"upper,omitempty"`
	Lower          *ScannedOffer   `json:"lower,omitempty"`
	Rationale      string          `json:"rationale"`
	Band           Band            `json:"band"`
	SampleSize     int             `json:"sampleSize"`
	ComputedAt     time.Time       `json:"computedAt"`
}

// ScanSnapshot is the full offer set of one completed scan cycle, archived
// to object storage for dispute debugging.
type ScanSnapshot struct {
	CycleID    string         `json:"cycleId"`
	Query      string         `json:"query"`
	CallerRate float64        `json:"callerRate"`
	Band       Band           `json:"band"`
	Offers     []ScannedOffer `json:"offers"`
	PagesRead  int            `json:"pagesRead"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}
