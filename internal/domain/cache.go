package domain

import (
	"context"
	"strings"
	"time"
)

// RecommendationCacheKey builds the canonical cache slot name for an
// (identity, band) pair. The band is part of the key so two rates in
// different bands never share a slot; the price log references the
// same key.
func RecommendationCacheKey(identity string, band Band) string {
	return "pricerec:" + strings.ToLower(strings.TrimSpace(identity)) + ":" + band.AttrID()
}

// RecommendationCache stores computed price recommendations keyed by
// (canonical identity, band) with a fixed TTL. Two rates in different
// bands never share a slot.
type RecommendationCache interface {
	Get(ctx context.Context, identity string, band Band) (PriceRecommendation, error)
	Put(ctx context.Context, identity string, band Band, rec PriceRecommendation) error
	Invalidate(ctx context.Context, identity string, band Band) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking, used to serialize concurrent
// writers to the same tracked code.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of panel events (price updates,
// listing status changes) to the websocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
