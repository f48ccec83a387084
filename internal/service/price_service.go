package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glitchedstore/farmpanel/internal/catalog"
	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/pricing"
	"github.com/glitchedstore/farmpanel/internal/scanner"
)

// OfferScanner is the slice of the paginated scanner the price service
// needs.
type OfferScanner interface {
	Scan(ctx context.Context, query string, callerRate float64, band domain.Band) (scanner.Result, error)
}

// PriceService answers "what should I charge" requests by resolving the
// item identity, scanning the marketplace neighborhood, and anchoring a
// price against the nearest competitors. Results are cached per
// (identity, band) so bursts of identical requests cost one scan.
type PriceService struct {
	resolver *catalog.Resolver
	scanner  OfferScanner
	anchor   *pricing.Anchor
	cache    domain.RecommendationCache
	priceLog domain.PriceLogStore
	archiver domain.ScanArchiver
	bus      domain.SignalBus
	logger   *slog.Logger
}

// NewPriceService creates a PriceService. archiver and bus may be nil;
// archival and event fan-out are then skipped.
func NewPriceService(
	resolver *catalog.Resolver,
	sc OfferScanner,
	anchor *pricing.Anchor,
	cache domain.RecommendationCache,
	priceLog domain.PriceLogStore,
	archiver domain.ScanArchiver,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PriceService {
	return &PriceService{
		resolver: resolver,
		scanner:  sc,
		anchor:   anchor,
		cache:    cache,
		priceLog: priceLog,
		archiver: archiver,
		bus:      bus,
		logger:   logger.With(slog.String("component", "price_service")),
	}
}

// PriceUpdatesChannel carries recommendation events to the websocket hub.
const PriceUpdatesChannel = "price_updates"

// Recommend returns a price recommendation for (itemName, callerRate).
// Within the cache TTL the same (identity, band) pair never triggers a
// second scan. An uncataloged name whose search variants all come back
// empty surfaces ErrAmbiguousIdentity; a cataloged item with no usable
// offers surfaces ErrInsufficientData.
func (s *PriceService) Recommend(ctx context.Context, itemName string, callerRate float64) (domain.PriceRecommendation, error) {
	identity := s.resolver.Resolve(itemName)
	band := domain.BandOf(callerRate)

	if rec, err := s.cache.Get(ctx, identity.CanonicalName, band); err == nil {
		s.logger.Debug("cache hit",
			slog.String("identity", identity.CanonicalName),
			slog.String("band", band.String()))
		return rec, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("cache read failed", slog.Any("error", err))
	}

	res, query, err := s.scanIdentity(ctx, identity, callerRate, band)
	if err != nil {
		return domain.PriceRecommendation{}, err
	}

	rec, err := s.anchor.Recommend(res.Offers, callerRate, band)
	if err != nil {
		return domain.PriceRecommendation{}, fmt.Errorf("price_service: %s: %w", identity.CanonicalName, err)
	}

	if err := s.cache.Put(ctx, identity.CanonicalName, band, rec); err != nil {
		s.logger.Warn("cache write failed", slog.Any("error", err))
	}
	s.recordAndPublish(ctx, identity, band, callerRate, query, res, rec)
	return rec, nil
}

// History returns past recommendations for (itemName, callerRate), most
// recent first, so a disputed price can be traced back to when and why
// it was suggested.
func (s *PriceService) History(ctx context.Context, itemName string, callerRate float64, opts domain.ListOpts) ([]domain.PriceLogEntry, error) {
	identity := s.resolver.Resolve(itemName)
	cacheKey := domain.RecommendationCacheKey(identity.CanonicalName, domain.BandOf(callerRate))

	entries, err := s.priceLog.ListByCacheKey(ctx, cacheKey, opts)
	if err != nil {
		return nil, fmt.Errorf("price_service: history %s: %w", identity.CanonicalName, err)
	}
	return entries, nil
}

// scanIdentity runs the marketplace scan: one pass under the canonical
// name for cataloged items, otherwise a walk over the generated search
// variants until one yields offers.
func (s *PriceService) scanIdentity(ctx context.Context, identity domain.ListingIdentity, callerRate float64, band domain.Band) (scanner.Result, string, error) {
	if identity.IsCataloged {
		res, err := s.scanner.Scan(ctx, identity.CanonicalName, callerRate, band)
		if err != nil {
			return scanner.Result{}, "", fmt.Errorf("price_service: scan %s: %w", identity.CanonicalName, err)
		}
		return res, identity.CanonicalName, nil
	}

	for _, variant := range catalog.GenerateSearchVariants(identity.CanonicalName) {
		res, err := s.scanner.Scan(ctx, variant, callerRate, band)
		if err != nil {
			if ctx.Err() != nil {
				return scanner.Result{}, "", fmt.Errorf("price_service: scan %s: %w", variant, err)
			}
			s.logger.Warn("variant scan failed",
				slog.String("variant", variant), slog.Any("error", err))
			continue
		}
		if len(res.Offers) > 0 {
			return res, variant, nil
		}
	}
	return scanner.Result{}, "", fmt.Errorf("price_service: %s: %w", identity.CanonicalName, domain.ErrAmbiguousIdentity)
}

// recordAndPublish appends the price log entry, archives the scan
// snapshot, and fans the recommendation out to connected panels. All
// three are best effort; a computed price is never discarded over them.
func (s *PriceService) recordAndPublish(
	ctx context.Context,
	identity domain.ListingIdentity,
	band domain.Band,
	callerRate float64,
	query string,
	res scanner.Result,
	rec domain.PriceRecommendation,
) {
	cacheKey := domain.RecommendationCacheKey(identity.CanonicalName, band)

	if err := s.priceLog.Insert(ctx, domain.PriceLogEntry{
		CacheKey:       cacheKey,
		SuggestedPrice: rec.SuggestedPrice,
		Rationale:      rec.Rationale,
		Band:           band,
		ComputedAt:     rec.ComputedAt,
	}); err != nil {
		s.logger.Warn("price log insert failed", slog.Any("error", err))
	}

	if s.archiver != nil {
		snap := domain.ScanSnapshot{
			CycleID:    uuid.New().String(),
			Query:      query,
			CallerRate: callerRate,
			Band:       band,
			Offers:     res.Offers,
			PagesRead:  res.PagesRead,
			StartedAt:  rec.ComputedAt,
			FinishedAt: time.Now().UTC(),
		}
		if _, err := s.archiver.ArchiveScan(ctx, snap); err != nil {
			s.logger.Warn("scan archive failed", slog.Any("error", err))
		}
	}

	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":          "price_update",
			"identity":       identity.CanonicalName,
			"band":           band.String(),
			"callerRate":     callerRate,
			"suggestedPrice": rec.SuggestedPrice,
			"rationale":      rec.Rationale,
			"computedAt":     rec.ComputedAt.Format(time.RFC3339Nano),
		})
		if err := s.bus.Publish(ctx, PriceUpdatesChannel, evt); err != nil {
			s.logger.Warn("publish price update failed", slog.Any("error", err))
		}
	}
}
