package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a ListingStore backed by the given pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

const listingColumns = `
	code, owner_key, item_name, canonical_name, catalog_id, rate,
	status, current_price, image_url, external_id, not_found_streak,
	last_scanned_at, paused_at, created_at, updated_at`

// Get returns a single listing by code, or domain.ErrNotFound.
func (s *ListingStore) Get(ctx context.Context, code string) (domain.TrackedListing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+listingColumns+` FROM tracked_listings WHERE code = $1`, code)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TrackedListing{}, domain.ErrNotFound
		}
		return domain.TrackedListing{}, fmt.Errorf("postgres: get listing %s: %w", code, err)
	}
	return l, nil
}

// Create inserts a new listing. A code collision returns
// domain.ErrAlreadyExists.
func (s *ListingStore) Create(ctx context.Context, l domain.TrackedListing) error {
	const query = `
		INSERT INTO tracked_listings (
			code, owner_key, item_name, canonical_name, catalog_id, rate,
			status, current_price, image_url, external_id, not_found_streak,
			last_scanned_at, paused_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		l.Code, l.OwnerKey, l.ItemName, l.CanonicalName, l.CatalogID, l.Rate,
		string(l.Status), l.CurrentPrice, l.ImageURL, l.ExternalID, l.NotFoundStreak,
		l.LastScannedAt, l.PausedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create listing %s: %w", l.Code, err)
	}
	return nil
}

// Update rewrites every mutable field of an existing listing.
func (s *ListingStore) Update(ctx context.Context, l domain.TrackedListing) error {
	const query = `
		UPDATE tracked_listings SET
			item_name        = $2,
			canonical_name   = $3,
			catalog_id       = $4,
			rate             = $5,
			status           = $6,
			current_price    = $7,
			image_url        = $8,
			external_id      = $9,
			not_found_streak = $10,
			last_scanned_at  = $11,
			paused_at        = $12,
			updated_at       = NOW()
		WHERE code = $1`

	tag, err := s.pool.Exec(ctx, query,
		l.Code, l.ItemName, l.CanonicalName, l.CatalogID, l.Rate,
		string(l.Status), l.CurrentPrice, l.ImageURL, l.ExternalID,
		l.NotFoundStreak, l.LastScannedAt, l.PausedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update listing %s: %w", l.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus transitions a single code. Entering paused stamps
// paused_at once; entering any other status clears it.
func (s *ListingStore) UpdateStatus(ctx context.Context, code string, status domain.ListingStatus, scannedAt time.Time) error {
	const query = `
		UPDATE tracked_listings SET
			status          = $2,
			last_scanned_at = $3,
			paused_at       = CASE
				WHEN $2 = 'paused' THEN COALESCE(paused_at, $3)
				ELSE NULL
			END,
			updated_at      = NOW()
		WHERE code = $1`

	tag, err := s.pool.Exec(ctx, query, code, string(status), scannedAt)
	if err != nil {
		return fmt.Errorf("postgres: update listing status %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a listing by code.
func (s *ListingStore) Delete(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tracked_listings WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("postgres: delete listing %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByOwner returns the owner's listings, newest first.
func (s *ListingStore) ListByOwner(ctx context.Context, ownerKey string) ([]domain.TrackedListing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+listingColumns+` FROM tracked_listings WHERE owner_key = $1 ORDER BY created_at DESC`,
		ownerKey)
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings by owner: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

// ListByStatus returns every listing in the given status.
func (s *ListingStore) ListByStatus(ctx context.Context, status domain.ListingStatus) ([]domain.TrackedListing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+listingColumns+` FROM tracked_listings WHERE status = $1 ORDER BY created_at`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings by status: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

// ListAll returns every tracked listing.
func (s *ListingStore) ListAll(ctx context.Context) ([]domain.TrackedListing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+listingColumns+` FROM tracked_listings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

// DistinctItemRates aggregates distinct (item, rate) pairs across all
// listings, most shared first. The periodic price pass walks these so
// one scan serves every listing with the same item and rate.
func (s *ListingStore) DistinctItemRates(ctx context.Context, limit int) ([]domain.ItemRate, error) {
	const query = `
		SELECT item_name, rate, COUNT(*) AS cnt
		FROM tracked_listings
		WHERE status != 'paused' AND rate > 0
		GROUP BY item_name, rate
		ORDER BY cnt DESC, item_name
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: distinct item rates: %w", err)
	}
	defer rows.Close()

	var out []domain.ItemRate
	for rows.Next() {
		var ir domain.ItemRate
		if err := rows.Scan(&ir.ItemName, &ir.Rate, &ir.Count); err != nil {
			return nil, fmt.Errorf("postgres: scan item rate: %w", err)
		}
		out = append(out, ir)
	}
	return out, rows.Err()
}

// PurgePausedBefore deletes listings paused since before the cutoff.
func (s *ListingStore) PurgePausedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tracked_listings WHERE status = 'paused' AND paused_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge paused listings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanListing(row pgx.Row) (domain.TrackedListing, error) {
	var (
		l      domain.TrackedListing
		status string
	)
	err := row.Scan(
		&l.Code, &l.OwnerKey, &l.ItemName, &l.CanonicalName, &l.CatalogID, &l.Rate,
		&status, &l.CurrentPrice, &l.ImageURL, &l.ExternalID, &l.NotFoundStreak,
		&l.LastScannedAt, &l.PausedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.TrackedListing{}, err
	}
	l.Status = domain.ListingStatus(status)
	return l, nil
}

func collectListings(rows pgx.Rows) ([]domain.TrackedListing, error) {
	var out []domain.TrackedListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Compile-time interface check.
var _ domain.ListingStore = (*ListingStore)(nil)
