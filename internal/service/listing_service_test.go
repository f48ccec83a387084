package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitchedstore/farmpanel/internal/catalog"
	"github.com/glitchedstore/farmpanel/internal/domain"
)

type memListings struct {
	m map[string]domain.TrackedListing
}

func newMemListings() *memListings {
	return &memListings{m: make(map[string]domain.TrackedListing)}
}

func (s *memListings) Get(_ context.Context, code string) (domain.TrackedListing, error) {
	l, ok := s.m[code]
	if !ok {
		return domain.TrackedListing{}, domain.ErrNotFound
	}
	return l, nil
}

func (s *memListings) Create(_ context.Context, l domain.TrackedListing) error {
	if _, ok := s.m[l.Code]; ok {
		return domain.ErrAlreadyExists
	}
	s.m[l.Code] = l
	return nil
}

func (s *memListings) Update(_ context.Context, l domain.TrackedListing) error {
	s.m[l.Code] = l
	return nil
}

func (s *memListings) UpdateStatus(_ context.Context, code string, status domain.ListingStatus, at time.Time) error {
	l := s.m[code]
	l.Status = status
	l.LastScannedAt = &at
	s.m[code] = l
	return nil
}

func (s *memListings) Delete(_ context.Context, code string) error {
	delete(s.m, code)
	return nil
}

func (s *memListings) ListByOwner(_ context.Context, owner string) ([]domain.TrackedListing, error) {
	var out []domain.TrackedListing
	for _, l := range s.m {
		if l.OwnerKey == owner {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memListings) ListByStatus(_ context.Context, status domain.ListingStatus) ([]domain.TrackedListing, error) {
	var out []domain.TrackedListing
	for _, l := range s.m {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memListings) ListAll(_ context.Context) ([]domain.TrackedListing, error) {
	var out []domain.TrackedListing
	for _, l := range s.m {
		out = append(out, l)
	}
	return out, nil
}

func (s *memListings) DistinctItemRates(_ context.Context, _ int) ([]domain.ItemRate, error) {
	return nil, nil
}

func (s *memListings) PurgePausedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func testListingService(store domain.ListingStore) *ListingService {
	resolver := catalog.NewResolver(map[string]domain.CatalogEntry{
		"tralalero tralala": {ID: "c1", CanonicalName: "Tralalero Tralala"},
	}, slog.New(slog.DiscardHandler))
	return NewListingService(store, resolver, nil, slog.New(slog.DiscardHandler))
}

func TestRegisterGeneratesCodeAndResolvesIdentity(t *testing.T) {
	svc := testListingService(newMemListings())

	l, err := svc.Register(context.Background(), RegisterParams{
		OwnerKey: "farm-1",
		ItemName: "tralalero tralala",
		Rate:     150,
	})
	require.NoError(t, err)

	assert.Len(t, l.Code, 8)
	assert.Equal(t, domain.ListingStatusPending, l.Status)
	assert.Equal(t, "Tralalero Tralala", l.CanonicalName)
	assert.Equal(t, "c1", l.CatalogID)
}

func TestRegisterDuplicateCode(t *testing.T) {
	svc := testListingService(newMemListings())

	_, err := svc.Register(context.Background(), RegisterParams{
		OwnerKey: "farm-1", ItemName: "odin", Code: "AB23CD45",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterParams{
		OwnerKey: "farm-2", ItemName: "odin", Code: "ab23cd45",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestRegisterRejectsMalformedCode(t *testing.T) {
	svc := testListingService(newMemListings())

	_, err := svc.Register(context.Background(), RegisterParams{
		OwnerKey: "farm-1", ItemName: "odin", Code: "123456",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = svc.Register(context.Background(), RegisterParams{
		OwnerKey: "farm-1", ItemName: "odin", Code: "ab",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestOwnershipEnforced(t *testing.T) {
	store := newMemListings()
	svc := testListingService(store)

	_, err := svc.Register(context.Background(), RegisterParams{
		OwnerKey: "farm-1", ItemName: "odin", Code: "AB23CD45",
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "farm-2", "AB23CD45")
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	err = svc.Delete(context.Background(), "farm-2", "AB23CD45")
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	err = svc.Delete(context.Background(), "farm-1", "AB23CD45")
	assert.NoError(t, err)
}

func TestUpdateRestrictedToOwnerFields(t *testing.T) {
	store := newMemListings()
	svc := testListingService(store)

	_, err := svc.Register(context.Background(), RegisterParams{
		OwnerKey: "farm-1", ItemName: "odin", Code: "AB23CD45", Rate: 100,
	})
	require.NoError(t, err)

	newRate := 250.0
	newName := "tralalero tralala"
	l, err := svc.Update(context.Background(), "farm-1", "AB23CD45", UpdateParams{
		ItemName: &newName,
		Rate:     &newRate,
	})
	require.NoError(t, err)

	assert.Equal(t, 250.0, l.Rate)
	assert.Equal(t, "Tralalero Tralala", l.CanonicalName, "name change re-resolves identity")
}
