package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glitchedstore/farmpanel/internal/crypto"
	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/platform/eldorado"
)

// KeyValidator probes the marketplace with a candidate API key.
type KeyValidator interface {
	CheckSellerEligibility(ctx context.Context, apiKey string) (eldorado.SellerEligibility, error)
	SellerProfile(ctx context.Context, apiKey string) (eldorado.UserRef, error)
}

// APIKeyService stores panel users' personal marketplace API keys.
// Keys are validated against the marketplace before being sealed; the
// database only ever sees ciphertext and a comparison hash.
type APIKeyService struct {
	validator KeyValidator
	vault     *crypto.KeyVault
	store     domain.APIKeyStore
	logger    *slog.Logger
	now       func() time.Time

	// validation retry tuning; rate-limit responses back off and retry.
	maxAttempts int
	retryDelay  time.Duration
}

// NewAPIKeyService creates an APIKeyService.
func NewAPIKeyService(validator KeyValidator, vault *crypto.KeyVault, store domain.APIKeyStore, logger *slog.Logger) *APIKeyService {
	return &APIKeyService{
		validator:   validator,
		vault:       vault,
		store:       store,
		logger:      logger.With(slog.String("component", "apikey_service")),
		now:         time.Now,
		maxAttempts: 3,
		retryDelay:  2 * time.Second,
	}
}

// KeyStatus is the owner-visible view of a stored key. The key itself
// is never returned.
type KeyStatus struct {
	HasKey          bool       `json:"hasKey"`
	SellerName      string     `json:"sellerName,omitempty"`
	SellerID        string     `json:"sellerId,omitempty"`
	IsActive        bool       `json:"isActive"`
	LastUsedAt      *time.Time `json:"lastUsedAt,omitempty"`
	LastValidatedAt *time.Time `json:"lastValidatedAt,omitempty"`
}

// ValidationResult reports a probe of a candidate key without storing it.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	SellerName string `json:"sellerName,omitempty"`
	SellerID   string `json:"sellerId,omitempty"`
}

// Validate probes the marketplace with a candidate key and reports the
// seller it belongs to. Nothing is persisted.
func (s *APIKeyService) Validate(ctx context.Context, apiKey string) (ValidationResult, error) {
	if apiKey == "" {
		return ValidationResult{}, fmt.Errorf("apikey_service: validate: %w", domain.ErrInvalidAPIKey)
	}
	if err := s.validate(ctx, apiKey); err != nil {
		return ValidationResult{}, fmt.Errorf("apikey_service: validate: %w", err)
	}

	res := ValidationResult{Valid: true}
	if profile, err := s.validator.SellerProfile(ctx, apiKey); err == nil {
		res.SellerName = profile.Username
		res.SellerID = profile.ID
	}
	return res, nil
}

// Save validates the key against the marketplace, encrypts it, and
// upserts the owner's record. Invalid keys surface ErrInvalidAPIKey;
// persistent rate limiting surfaces ErrRateLimited.
func (s *APIKeyService) Save(ctx context.Context, ownerKey, apiKey string) (KeyStatus, error) {
	if apiKey == "" {
		return KeyStatus{}, fmt.Errorf("apikey_service: save: %w", domain.ErrInvalidAPIKey)
	}

	if err := s.validate(ctx, apiKey); err != nil {
		return KeyStatus{}, fmt.Errorf("apikey_service: save: %w", err)
	}

	// Seller identity is cosmetic; a probe failure does not block the save.
	var sellerName, sellerID string
	if profile, err := s.validator.SellerProfile(ctx, apiKey); err == nil {
		sellerName = profile.Username
		sellerID = profile.ID
	} else {
		s.logger.Warn("seller profile probe failed", slog.Any("error", err))
	}

	sealed, err := s.vault.Seal(apiKey)
	if err != nil {
		return KeyStatus{}, fmt.Errorf("apikey_service: save: %w", err)
	}

	now := s.now().UTC()
	rec := domain.APIKeyRecord{
		OwnerKey:        ownerKey,
		KeyHash:         crypto.HashKey(apiKey),
		KeyEncrypted:    sealed,
		SellerName:      sellerName,
		SellerID:        sellerID,
		IsActive:        true,
		LastValidatedAt: &now,
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return KeyStatus{}, fmt.Errorf("apikey_service: save: %w", err)
	}

	s.logger.Info("api key saved",
		slog.String("owner", ownerKey),
		slog.String("seller", sellerName))
	return KeyStatus{
		HasKey:          true,
		SellerName:      sellerName,
		SellerID:        sellerID,
		IsActive:        true,
		LastValidatedAt: &now,
	}, nil
}

// Status reports whether the owner has a stored key and its metadata.
func (s *APIKeyService) Status(ctx context.Context, ownerKey string) (KeyStatus, error) {
	rec, err := s.store.Get(ctx, ownerKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return KeyStatus{}, nil
		}
		return KeyStatus{}, fmt.Errorf("apikey_service: status: %w", err)
	}
	return KeyStatus{
		HasKey:          true,
		SellerName:      rec.SellerName,
		SellerID:        rec.SellerID,
		IsActive:        rec.IsActive,
		LastUsedAt:      rec.LastUsedAt,
		LastValidatedAt: rec.LastValidatedAt,
	}, nil
}

// Delete removes the owner's stored key.
func (s *APIKeyService) Delete(ctx context.Context, ownerKey string) error {
	if err := s.store.Delete(ctx, ownerKey); err != nil {
		return fmt.Errorf("apikey_service: delete: %w", err)
	}
	s.logger.Info("api key removed", slog.String("owner", ownerKey))
	return nil
}

// PlainKey decrypts and returns the owner's key for an outbound
// marketplace call, bumping last_used_at.
func (s *APIKeyService) PlainKey(ctx context.Context, ownerKey string) (string, error) {
	rec, err := s.store.Get(ctx, ownerKey)
	if err != nil {
		return "", fmt.Errorf("apikey_service: plain key: %w", err)
	}
	key, err := s.vault.Open(rec.KeyEncrypted)
	if err != nil {
		return "", fmt.Errorf("apikey_service: plain key: %w", err)
	}
	if err := s.store.TouchUsed(ctx, ownerKey, s.now().UTC()); err != nil {
		s.logger.Warn("touch api key failed", slog.Any("error", err))
	}
	return key, nil
}

// validate probes seller eligibility with bounded retries. Only
// rate-limit responses retry; an unauthorized response is final.
func (s *APIKeyService) validate(ctx context.Context, apiKey string) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			t := time.NewTimer(s.retryDelay * time.Duration(attempt-1))
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		elig, err := s.validator.CheckSellerEligibility(ctx, apiKey)
		switch {
		case err == nil:
			if !elig.Eligible {
				// The key authenticates but the account cannot sell.
				return fmt.Errorf("seller not eligible: %w", domain.ErrInvalidAPIKey)
			}
			return nil
		case errors.Is(err, domain.ErrRateLimited):
			lastErr = err
			s.logger.Warn("validation rate limited",
				slog.Int("attempt", attempt), slog.Int("max", s.maxAttempts))
			continue
		default:
			return err
		}
	}
	return lastErr
}
