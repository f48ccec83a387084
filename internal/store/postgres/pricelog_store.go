package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// PriceLogStore implements domain.PriceLogStore using PostgreSQL. The
// log is append-only; entries exist so disputed prices can be traced
// back to the comparison that produced them.
type PriceLogStore struct {
	pool *pgxpool.Pool
}

// NewPriceLogStore creates a PriceLogStore backed by the given pool.
func NewPriceLogStore(pool *pgxpool.Pool) *PriceLogStore {
	return &PriceLogStore{pool: pool}
}

// Insert appends one computed recommendation.
func (s *PriceLogStore) Insert(ctx context.Context, e domain.PriceLogEntry) error {
	const query = `
		INSERT INTO price_log (cache_key, suggested_price, rationale, band, computed_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		e.CacheKey, e.SuggestedPrice, e.Rationale, int(e.Band), e.ComputedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert price log: %w", err)
	}
	return nil
}

// ListByCacheKey returns log entries for a cache slot, newest first.
func (s *PriceLogStore) ListByCacheKey(ctx context.Context, cacheKey string, opts domain.ListOpts) ([]domain.PriceLogEntry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, cache_key, suggested_price, rationale, band, computed_at
		FROM price_log
		WHERE cache_key = $1
		ORDER BY computed_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, cacheKey, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list price log: %w", err)
	}
	defer rows.Close()

	var out []domain.PriceLogEntry
	for rows.Next() {
		var (
			e    domain.PriceLogEntry
			band int
		)
		if err := rows.Scan(&e.ID, &e.CacheKey, &e.SuggestedPrice, &e.Rationale, &band, &e.ComputedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan price log: %w", err)
		}
		e.Band = domain.Band(band)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Compile-time interface check.
var _ domain.PriceLogStore = (*PriceLogStore)(nil)
