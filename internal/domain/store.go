package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// ItemRate is one distinct (item, rate) pair across all tracked listings,
// with the number of listings sharing it. The periodic price scan walks
// these, most popular first.
type ItemRate struct {
	ItemName string
	Rate     float64
	Count    int
}

// ListingStore persists tracked listings keyed by their opaque code.
type ListingStore interface {
	Get(ctx context.Context, code string) (TrackedListing, error)
	Create(ctx context.Context, l TrackedListing) error
	Update(ctx context.Context, l TrackedListing) error
	// UpdateStatus transitions a single code and bumps updated_at. When
	// paused is true, paused_at is set; transitioning to active clears it.
	UpdateStatus(ctx context.Context, code string, status ListingStatus, scannedAt time.Time) error
	Delete(ctx context.Context, code string) error
	ListByOwner(ctx context.Context, ownerKey string) ([]TrackedListing, error)
	ListByStatus(ctx context.Context, status ListingStatus) ([]TrackedListing, error)
	ListAll(ctx context.Context) ([]TrackedListing, error)
	// DistinctItemRates aggregates distinct (item, rate) pairs for the
	// periodic price scan, ordered by listing count descending.
	DistinctItemRates(ctx context.Context, limit int) ([]ItemRate, error)
	// PurgePausedBefore removes listings that have been paused since
	// before the cutoff. Returns the number of rows removed.
	PurgePausedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CatalogStore loads the static item catalog.
type CatalogStore interface {
	LoadAll(ctx context.Context) (map[string]CatalogEntry, error)
}

// APIKeyStore persists encrypted marketplace API keys per owner.
type APIKeyStore interface {
	Get(ctx context.Context, ownerKey string) (APIKeyRecord, error)
	Upsert(ctx context.Context, rec APIKeyRecord) error
	Delete(ctx context.Context, ownerKey string) error
	// TouchUsed bumps last_used_at for the owner's key.
	TouchUsed(ctx context.Context, ownerKey string, at time.Time) error
}

// PriceLogStore appends computed recommendations for dispute debugging.
type PriceLogStore interface {
	Insert(ctx context.Context, e PriceLogEntry) error
	ListByCacheKey(ctx context.Context, cacheKey string, opts ListOpts) ([]PriceLogEntry, error)
}
