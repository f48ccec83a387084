package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitchedstore/farmpanel/internal/crypto"
	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/platform/eldorado"
)

type fakeValidator struct {
	// errs are returned per attempt; nil past the end.
	errs       []error
	attempts   int
	ineligible bool
}

func (f *fakeValidator) CheckSellerEligibility(_ context.Context, _ string) (eldorado.SellerEligibility, error) {
	f.attempts++
	if f.attempts <= len(f.errs) {
		return eldorado.SellerEligibility{}, f.errs[f.attempts-1]
	}
	return eldorado.SellerEligibility{Eligible: !f.ineligible}, nil
}

func (f *fakeValidator) SellerProfile(_ context.Context, _ string) (eldorado.UserRef, error) {
	return eldorado.UserRef{ID: "u-1", Username: "glitched"}, nil
}

type memKeyStore struct {
	recs map[string]domain.APIKeyRecord
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{recs: make(map[string]domain.APIKeyRecord)}
}

func (m *memKeyStore) Get(_ context.Context, owner string) (domain.APIKeyRecord, error) {
	rec, ok := m.recs[owner]
	if !ok {
		return domain.APIKeyRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *memKeyStore) Upsert(_ context.Context, rec domain.APIKeyRecord) error {
	m.recs[rec.OwnerKey] = rec
	return nil
}

func (m *memKeyStore) Delete(_ context.Context, owner string) error {
	delete(m.recs, owner)
	return nil
}

func (m *memKeyStore) TouchUsed(_ context.Context, owner string, at time.Time) error {
	rec := m.recs[owner]
	rec.LastUsedAt = &at
	m.recs[owner] = rec
	return nil
}

func testAPIKeyService(t *testing.T, validator KeyValidator, store domain.APIKeyStore) *APIKeyService {
	t.Helper()
	vault, err := crypto.NewKeyVault("test-master-secret")
	require.NoError(t, err)
	svc := NewAPIKeyService(validator, vault, store, slog.New(slog.DiscardHandler))
	svc.retryDelay = time.Millisecond
	return svc
}

func TestSaveSealsAndRoundTrips(t *testing.T) {
	store := newMemKeyStore()
	svc := testAPIKeyService(t, &fakeValidator{}, store)

	status, err := svc.Save(context.Background(), "farm-1", "eld-api-key-123")
	require.NoError(t, err)
	assert.True(t, status.HasKey)
	assert.Equal(t, "glitched", status.SellerName)

	rec := store.recs["farm-1"]
	assert.NotContains(t, string(rec.KeyEncrypted), "eld-api-key-123")
	assert.Equal(t, crypto.HashKey("eld-api-key-123"), rec.KeyHash)

	plain, err := svc.PlainKey(context.Background(), "farm-1")
	require.NoError(t, err)
	assert.Equal(t, "eld-api-key-123", plain)
	assert.NotNil(t, store.recs["farm-1"].LastUsedAt)
}

func TestSaveRetriesRateLimitOnly(t *testing.T) {
	v := &fakeValidator{errs: []error{domain.ErrRateLimited, domain.ErrRateLimited}}
	svc := testAPIKeyService(t, v, newMemKeyStore())

	_, err := svc.Save(context.Background(), "farm-1", "eld-api-key-123")
	require.NoError(t, err)
	assert.Equal(t, 3, v.attempts)
}

func TestSaveGivesUpAfterPersistentRateLimit(t *testing.T) {
	v := &fakeValidator{errs: []error{domain.ErrRateLimited, domain.ErrRateLimited, domain.ErrRateLimited}}
	svc := testAPIKeyService(t, v, newMemKeyStore())

	_, err := svc.Save(context.Background(), "farm-1", "eld-api-key-123")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 3, v.attempts)
}

func TestSaveRejectsInvalidKeyWithoutRetry(t *testing.T) {
	v := &fakeValidator{errs: []error{domain.ErrInvalidAPIKey}}
	store := newMemKeyStore()
	svc := testAPIKeyService(t, v, store)

	_, err := svc.Save(context.Background(), "farm-1", "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
	assert.Equal(t, 1, v.attempts, "unauthorized responses are final")
	assert.Empty(t, store.recs)
}

func TestValidateProbesWithoutStoring(t *testing.T) {
	store := newMemKeyStore()
	svc := testAPIKeyService(t, &fakeValidator{}, store)

	result, err := svc.Validate(context.Background(), "eld-api-key-123")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "glitched", result.SellerName)
	assert.Empty(t, store.recs)
}

func TestValidateRejectsIneligibleSeller(t *testing.T) {
	v := &fakeValidator{ineligible: true}
	svc := testAPIKeyService(t, v, newMemKeyStore())

	_, err := svc.Validate(context.Background(), "eld-api-key-123")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
	assert.Equal(t, 1, v.attempts, "ineligibility is final, no retry")
}

func TestStatusWithoutKey(t *testing.T) {
	svc := testAPIKeyService(t, &fakeValidator{}, newMemKeyStore())

	status, err := svc.Status(context.Background(), "farm-1")
	require.NoError(t, err)
	assert.False(t, status.HasKey)
}
