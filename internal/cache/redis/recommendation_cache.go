package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// defaultRecommendationTTL keeps a computed price fresh long enough to
// absorb bursts of identical requests without re-scanning.
const defaultRecommendationTTL = 15 * time.Minute

// RecommendationCache implements domain.RecommendationCache using Redis
// string values holding JSON-serialized recommendations.
//
// Key schema:
//
//	pricerec:{identity}:{bandAttrID}
//
// The key incorporates both identity and band so two rates in different
// bands never share a slot. Staleness is owned entirely by the Redis
// TTL; entries are never served past expiry.
type RecommendationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRecommendationCache creates a RecommendationCache backed by the
// given Client. A non-positive ttl selects the default.
func NewRecommendationCache(c *Client, ttl time.Duration) *RecommendationCache {
	if ttl <= 0 {
		ttl = defaultRecommendationTTL
	}
	return &RecommendationCache{rdb: c.Underlying(), ttl: ttl}
}

// Get retrieves a cached recommendation. It returns domain.ErrNotFound
// when the slot is empty or expired.
func (rc *RecommendationCache) Get(ctx context.Context, identity string, band domain.Band) (domain.PriceRecommendation, error) {
	key := domain.RecommendationCacheKey(identity, band)
	data, err := rc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PriceRecommendation{}, domain.ErrNotFound
		}
		return domain.PriceRecommendation{}, fmt.Errorf("redis: get recommendation %s: %w", key, err)
	}

	var rec domain.PriceRecommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.PriceRecommendation{}, fmt.Errorf("redis: decode recommendation %s: %w", key, err)
	}
	return rec, nil
}

// Put stores a recommendation, superseding any previous entry for the
// same slot.
func (rc *RecommendationCache) Put(ctx context.Context, identity string, band domain.Band, rec domain.PriceRecommendation) error {
	key := domain.RecommendationCacheKey(identity, band)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal recommendation %s: %w", key, err)
	}
	if err := rc.rdb.Set(ctx, key, data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: put recommendation %s: %w", key, err)
	}
	return nil
}

// Invalidate drops the cached entry for the slot, if any.
func (rc *RecommendationCache) Invalidate(ctx context.Context, identity string, band domain.Band) error {
	key := domain.RecommendationCacheKey(identity, band)
	if err := rc.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: invalidate recommendation %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.RecommendationCache = (*RecommendationCache)(nil)
