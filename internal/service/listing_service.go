package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glitchedstore/farmpanel/internal/catalog"
	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/reconcile"
)

// ListingService manages tracked listings on behalf of panel users.
// Every mutation is checked against the owner key; a code never changes
// hands implicitly.
type ListingService struct {
	store    domain.ListingStore
	resolver *catalog.Resolver
	bus      domain.SignalBus
	logger   *slog.Logger
	now      func() time.Time
}

// NewListingService creates a ListingService. bus may be nil.
func NewListingService(store domain.ListingStore, resolver *catalog.Resolver, bus domain.SignalBus, logger *slog.Logger) *ListingService {
	return &ListingService{
		store:    store,
		resolver: resolver,
		bus:      bus,
		logger:   logger.With(slog.String("component", "listing_service")),
		now:      time.Now,
	}
}

// ListingStatusChannel carries status change events to the websocket hub.
const ListingStatusChannel = "listing_status"

// RegisterParams describe a new tracked listing.
type RegisterParams struct {
	OwnerKey string
	ItemName string
	Rate     float64
	// Code is optional; when empty a fresh one is generated.
	Code  string
	Price decimal.Decimal
}

// Register creates a tracked listing in the pending state. The listing
// becomes active on the first reconciliation pass that finds its code
// on the marketplace.
func (s *ListingService) Register(ctx context.Context, p RegisterParams) (domain.TrackedListing, error) {
	if p.OwnerKey == "" {
		return domain.TrackedListing{}, fmt.Errorf("listing_service: register: %w", domain.ErrUnauthorized)
	}
	if strings.TrimSpace(p.ItemName) == "" {
		return domain.TrackedListing{}, fmt.Errorf("listing_service: register: empty item name")
	}

	code := strings.ToUpper(strings.TrimSpace(p.Code))
	if code == "" {
		code = reconcile.GenerateCode("GS")
	} else if len(reconcile.ExtractCodes("#"+code)) == 0 {
		return domain.TrackedListing{}, fmt.Errorf("listing_service: register %q: %w", p.Code, domain.ErrInvalidCode)
	}

	identity := s.resolver.Resolve(p.ItemName)
	now := s.now().UTC()
	l := domain.TrackedListing{
		Code:          code,
		OwnerKey:      p.OwnerKey,
		ItemName:      strings.TrimSpace(p.ItemName),
		CanonicalName: identity.CanonicalName,
		CatalogID:     identity.CatalogID,
		Rate:          p.Rate,
		Status:        domain.ListingStatusPending,
		CurrentPrice:  p.Price,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Create(ctx, l); err != nil {
		return domain.TrackedListing{}, fmt.Errorf("listing_service: register %s: %w", code, err)
	}
	s.publishStatus(ctx, l)
	s.logger.Info("listing registered",
		slog.String("code", code),
		slog.String("item", l.ItemName),
		slog.Float64("rate", l.Rate))
	return l, nil
}

// Get returns a listing if the caller owns it.
func (s *ListingService) Get(ctx context.Context, ownerKey, code string) (domain.TrackedListing, error) {
	l, err := s.store.Get(ctx, strings.ToUpper(code))
	if err != nil {
		return domain.TrackedListing{}, fmt.Errorf("listing_service: get %s: %w", code, err)
	}
	if l.OwnerKey != ownerKey {
		return domain.TrackedListing{}, fmt.Errorf("listing_service: get %s: %w", code, domain.ErrNotOwner)
	}
	return l, nil
}

// List returns all of the owner's listings.
func (s *ListingService) List(ctx context.Context, ownerKey string) ([]domain.TrackedListing, error) {
	ls, err := s.store.ListByOwner(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("listing_service: list: %w", err)
	}
	return ls, nil
}

// UpdateParams carry the owner-editable listing fields.
type UpdateParams struct {
	ItemName *string
	Rate     *float64
	Price    *decimal.Decimal
}

// Update applies the owner's edits. Changing the item name re-resolves
// the catalog identity.
func (s *ListingService) Update(ctx context.Context, ownerKey, code string, p UpdateParams) (domain.TrackedListing, error) {
	l, err := s.Get(ctx, ownerKey, code)
	if err != nil {
		return domain.TrackedListing{}, err
	}

	if p.ItemName != nil && strings.TrimSpace(*p.ItemName) != "" {
		l.ItemName = strings.TrimSpace(*p.ItemName)
		identity := s.resolver.Resolve(l.ItemName)
		l.CanonicalName = identity.CanonicalName
		l.CatalogID = identity.CatalogID
	}
	if p.Rate != nil {
		l.Rate = *p.Rate
	}
	if p.Price != nil {
		l.CurrentPrice = *p.Price
	}

	if err := s.store.Update(ctx, l); err != nil {
		return domain.TrackedListing{}, fmt.Errorf("listing_service: update %s: %w", code, err)
	}
	return l, nil
}

// Delete removes the owner's listing.
func (s *ListingService) Delete(ctx context.Context, ownerKey, code string) error {
	if _, err := s.Get(ctx, ownerKey, code); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, strings.ToUpper(code)); err != nil {
		return fmt.Errorf("listing_service: delete %s: %w", code, err)
	}
	s.logger.Info("listing deleted", slog.String("code", strings.ToUpper(code)))
	return nil
}

func (s *ListingService) publishStatus(ctx context.Context, l domain.TrackedListing) {
	if s.bus == nil {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event":  "listing_status",
		"code":   l.Code,
		"status": string(l.Status),
		"item":   l.ItemName,
	})
	if err := s.bus.Publish(ctx, ListingStatusChannel, evt); err != nil {
		s.logger.Warn("publish listing status failed",
			slog.String("code", l.Code), slog.Any("error", err))
	}
}
