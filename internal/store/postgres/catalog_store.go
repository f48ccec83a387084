package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// CatalogStore implements domain.CatalogStore using PostgreSQL. The
// catalog is small and read once at startup, so there is no caching
// layer in front of it.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a CatalogStore backed by the given pool.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// LoadAll returns the full catalog keyed by lowercase lookup name.
func (s *CatalogStore) LoadAll(ctx context.Context) (map[string]domain.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lookup_name, canonical_name, floor_price FROM catalog_items`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load catalog: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.CatalogEntry)
	for rows.Next() {
		var (
			e      domain.CatalogEntry
			lookup string
		)
		if err := rows.Scan(&e.ID, &lookup, &e.CanonicalName, &e.FloorPrice); err != nil {
			return nil, fmt.Errorf("postgres: scan catalog item: %w", err)
		}
		out[lookup] = e
	}
	return out, rows.Err()
}

// Compile-time interface check.
var _ domain.CatalogStore = (*CatalogStore)(nil)
