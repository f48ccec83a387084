package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingStatus is the lifecycle state of a tracked listing.
//
// pending: registered locally, never yet confirmed on the marketplace.
// active:  the listing's code was found on the marketplace.
// paused:  a confirmed-empty search concluded the listing is gone.
type ListingStatus string

const (
	ListingStatusPending ListingStatus = "pending"
	ListingStatusActive  ListingStatus = "active"
	ListingStatusPaused  ListingStatus = "paused"
)

// ListingIdentity is the resolved catalog identity of an item name.
// Derived fresh on every call; never persisted on its own.
type ListingIdentity struct {
	CanonicalName string
	CatalogID     string
	IsCataloged   bool
}

// TrackedListing is a marketplace listing tracked through an opaque code
// embedded in its title or description. It is the only entity with
// cross-cycle persistent identity; updates are applied per code.
type TrackedListing struct {
	Code           string
	OwnerKey       string
	ItemName       string
	CanonicalName  string
	CatalogID      string
	Rate           float64
	Status         ListingStatus
	CurrentPrice   decimal.Decimal
	ImageURL       string
	ExternalID     string
	NotFoundStreak int
	LastScannedAt  *time.Time
	PausedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ListingMatch is a marketplace offer matched to a tracked code during a
// reconciliation search.
type ListingMatch struct {
	Code       string
	ExternalID string
	Title      string
	Price      decimal.Decimal
	Rate       float64
	RateKnown  bool
	ImageURL   string
	Seller     string
}

// ReconcileReport summarises the status transitions of one reconciliation
// pass. The pass is idempotent: re-running it over an unchanged
// marketplace produces zero transitions.
type ReconcileReport struct {
	Scanned        int `json:"scanned"`
	Activated      int `json:"activated"`
	Paused         int `json:"paused"`
	SkippedOnError int `json:"skippedOnError"`
}

// CatalogEntry is one item of the static marketplace catalog, loaded once
// at startup and read-only thereafter.
type CatalogEntry struct {
	ID            string
	CanonicalName string
	FloorPrice    decimal.Decimal
}

// APIKeyRecord stores a panel user's personal marketplace API key,
// encrypted at rest.
type APIKeyRecord struct {
	OwnerKey        string
	KeyHash         string
	KeyEncrypted    []byte
	SellerName      string
	SellerID        string
	IsActive        bool
	LastUsedAt      *time.Time
	LastValidatedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PriceLogEntry is an append-only record of a computed recommendation,
// kept so disputed prices can be traced back to the comparison that
// produced them.
type PriceLogEntry struct {
	ID             int64
	CacheKey       string
	SuggestedPrice decimal.Decimal
	Rationale      string
	Band           Band
	ComputedAt     time.Time
}
