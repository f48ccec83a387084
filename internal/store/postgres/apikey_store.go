package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// APIKeyStore implements domain.APIKeyStore using PostgreSQL. Keys are
// stored encrypted; this layer never sees plaintext.
type APIKeyStore struct {
	pool *pgxpool.Pool
}

// NewAPIKeyStore creates an APIKeyStore backed by the given pool.
func NewAPIKeyStore(pool *pgxpool.Pool) *APIKeyStore {
	return &APIKeyStore{pool: pool}
}

// Get returns the owner's key record, or domain.ErrNotFound.
func (s *APIKeyStore) Get(ctx context.Context, ownerKey string) (domain.APIKeyRecord, error) {
	const query = `
		SELECT owner_key, api_key_hash, api_key_encrypted, seller_name, seller_id,
		       is_active, last_used_at, last_validated_at, created_at, updated_at
		FROM api_keys WHERE owner_key = $1`

	var rec domain.APIKeyRecord
	err := s.pool.QueryRow(ctx, query, ownerKey).Scan(
		&rec.OwnerKey, &rec.KeyHash, &rec.KeyEncrypted, &rec.SellerName, &rec.SellerID,
		&rec.IsActive, &rec.LastUsedAt, &rec.LastValidatedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.APIKeyRecord{}, domain.ErrNotFound
		}
		return domain.APIKeyRecord{}, fmt.Errorf("postgres: get api key: %w", err)
	}
	return rec, nil
}

// Upsert inserts or replaces the owner's key record.
func (s *APIKeyStore) Upsert(ctx context.Context, rec domain.APIKeyRecord) error {
	const query = `
		INSERT INTO api_keys (
			owner_key, api_key_hash, api_key_encrypted, seller_name, seller_id,
			is_active, last_used_at, last_validated_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (owner_key) DO UPDATE SET
			api_key_hash      = EXCLUDED.api_key_hash,
			api_key_encrypted = EXCLUDED.api_key_encrypted,
			seller_name       = EXCLUDED.seller_name,
			seller_id         = EXCLUDED.seller_id,
			is_active         = EXCLUDED.is_active,
			last_validated_at = EXCLUDED.last_validated_at,
			updated_at        = NOW()`

	_, err := s.pool.Exec(ctx, query,
		rec.OwnerKey, rec.KeyHash, rec.KeyEncrypted, rec.SellerName, rec.SellerID,
		rec.IsActive, rec.LastUsedAt, rec.LastValidatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert api key: %w", err)
	}
	return nil
}

// Delete removes the owner's key record.
func (s *APIKeyStore) Delete(ctx context.Context, ownerKey string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE owner_key = $1`, ownerKey)
	if err != nil {
		return fmt.Errorf("postgres: delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TouchUsed bumps last_used_at for the owner's key.
func (s *APIKeyStore) TouchUsed(ctx context.Context, ownerKey string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $2, updated_at = NOW() WHERE owner_key = $1`,
		ownerKey, at)
	if err != nil {
		return fmt.Errorf("postgres: touch api key: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.APIKeyStore = (*APIKeyStore)(nil)
