package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/platform/eldorado"
	"github.com/glitchedstore/farmpanel/internal/pricing"
)

// Fetcher is the slice of the marketplace client the scanner needs.
type Fetcher interface {
	SearchOffers(ctx context.Context, p eldorado.SearchParams) (eldorado.SearchPage, error)
}

// Config tunes the paginated scan loop.
type Config struct {
	// MinBandSamples is the sample count in the caller's band required
	// before an upper-offer sighting can end the scan.
	MinBandSamples int
	// StallPagesBand ends an over-sampled scan after this many
	// consecutive pages without a new band match.
	StallPagesBand int
	// StallPagesAny ends any scan with matches after this many
	// consecutive pages without a band match.
	StallPagesAny int
	// MaxPages is the hard page ceiling.
	MaxPages int
	PageSize int
	// PageTimeout bounds each page request.
	PageTimeout time.Duration
	// PageDelay is the pause between pages on top of the shared limiter.
	PageDelay time.Duration
	// OwnStoreMarkers exclude the caller's own listings from competitor
	// consideration when found in a title or description.
	OwnStoreMarkers []string
}

// DefaultConfig returns the scan tuning used in production.
func DefaultConfig() Config {
	return Config{
		MinBandSamples:  10,
		StallPagesBand:  10,
		StallPagesAny:   15,
		MaxPages:        50,
		PageSize:        100,
		PageTimeout:     15 * time.Second,
		PageDelay:       500 * time.Millisecond,
		OwnStoreMarkers: []string{"#gs", "glitched store"},
	}
}

// limiterKey is the shared rate-limit bucket for marketplace searches;
// all scans drain the same budget.
const limiterKey = "eldorado:search"

// Result is the outcome of one scan cycle.
type Result struct {
	Offers     []domain.ScannedOffer
	PagesRead  int
	PageErrors int
	// StopReason names the stop-policy branch that ended the scan.
	StopReason string
}

// Scanner walks marketplace search pages in ascending price order and
// collects competitor offers until its stopping policy is satisfied.
// Pages within one scan are strictly sequential; concurrent page
// fetches for the same query trip the marketplace limiter.
type Scanner struct {
	fetcher Fetcher
	limiter domain.RateLimiter
	cfg     Config
	logger  *slog.Logger
}

// New creates a scanner. limiter may be nil, in which case only the
// fixed inter-page delay paces requests.
func New(fetcher Fetcher, limiter domain.RateLimiter, cfg Config, logger *slog.Logger) *Scanner {
	return &Scanner{
		fetcher: fetcher,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "scanner")),
	}
}

// Scan fetches offers for the query until the stopping policy ends the
// walk. The policy is asymmetric because rate is not a queryable field:
// the scanner over-fetches until it is confident it has seen the
// neighborhood around callerRate.
//
// Stop conditions, evaluated after each page:
//
//	(a) an offer with rate >= callerRate exists and the caller's band
//	    holds at least MinBandSamples samples;
//	(b) the band holds 2x MinBandSamples but no >=-rate offer exists
//	    and StallPagesBand consecutive pages added no band match;
//	(c) matches exist but StallPagesAny consecutive pages added none;
//	(d) the hard page ceiling is reached.
func (s *Scanner) Scan(ctx context.Context, query string, callerRate float64, band domain.Band) (Result, error) {
	var (
		res           Result
		seen          = make(map[string]struct{})
		bandSamples   int
		foundUpper    bool
		pagesSinceHit int
		emptyStreak   int
	)

	for page := 1; page <= s.cfg.MaxPages; page++ {
		if err := s.pace(ctx, page); err != nil {
			return res, fmt.Errorf("scanner: %w", err)
		}

		sp, err := s.fetchPage(ctx, query, band, page)
		if err != nil {
			// A failed page is not an empty page; keep walking.
			res.PageErrors++
			s.logger.Warn("page fetch failed",
				slog.String("query", query),
				slog.Int("page", page),
				slog.Any("error", err))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return res, fmt.Errorf("scanner: %w", ctx.Err())
				}
			}
			continue
		}
		res.PagesRead++

		if len(sp.Results) == 0 {
			emptyStreak++
			if emptyStreak >= 2 {
				res.StopReason = "exhausted"
				break
			}
			continue
		}
		emptyStreak = 0

		newBandMatch := false
		for _, r := range sp.Results {
			o, ok := s.toOffer(r, band, page)
			if !ok {
				continue
			}
			if _, dup := seen[o.ExternalID]; dup {
				continue
			}
			seen[o.ExternalID] = struct{}{}
			res.Offers = append(res.Offers, o)

			if o.Band == band {
				bandSamples++
				newBandMatch = true
			}
			if o.RateKnown && o.RateSource == domain.RateSourceExact && o.Rate >= callerRate {
				foundUpper = true
			}
		}
		if newBandMatch {
			pagesSinceHit = 0
		} else {
			pagesSinceHit++
		}

		switch {
		case foundUpper && bandSamples >= s.cfg.MinBandSamples:
			res.StopReason = "upper found"
		case !foundUpper && bandSamples >= 2*s.cfg.MinBandSamples && pagesSinceHit >= s.cfg.StallPagesBand:
			res.StopReason = "band saturated"
		case len(res.Offers) > 0 && pagesSinceHit >= s.cfg.StallPagesAny:
			res.StopReason = "stalled"
		}
		if res.StopReason != "" {
			break
		}
	}
	if res.StopReason == "" {
		res.StopReason = "page ceiling"
	}

	s.logger.Info("scan finished",
		slog.String("query", query),
		slog.String("band", band.String()),
		slog.Int("pages", res.PagesRead),
		slog.Int("offers", len(res.Offers)),
		slog.Int("band_samples", bandSamples),
		slog.String("stop", res.StopReason))

	if len(res.Offers) == 0 && res.PageErrors > 0 && res.PagesRead == 0 {
		return res, fmt.Errorf("scanner: all pages failed: %w", domain.ErrInsufficientData)
	}
	return res, nil
}

// pace enforces the inter-page delay and the shared marketplace rate
// limit. The first page goes out immediately.
func (s *Scanner) pace(ctx context.Context, page int) error {
	if page > 1 && s.cfg.PageDelay > 0 {
		t := time.NewTimer(s.cfg.PageDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, limiterKey); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	return nil
}

func (s *Scanner) fetchPage(ctx context.Context, query string, band domain.Band, page int) (eldorado.SearchPage, error) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.PageTimeout)
	defer cancel()
	return s.fetcher.SearchOffers(pctx, eldorado.SearchParams{
		Query:       query,
		BandAttrID:  band.AttrID(),
		PageIndex:   page,
		PageSize:    s.cfg.PageSize,
		SortByPrice: true,
	})
}

// toOffer converts a raw search result into a ScannedOffer. Own-store
// offers and results without an id or price are dropped. Titles that do
// not parse fall back to the scan band's lower bound so they still
// count as samples without ever anchoring a price.
func (s *Scanner) toOffer(r eldorado.SearchResult, band domain.Band, page int) (domain.ScannedOffer, bool) {
	id := r.ExternalID()
	if id == "" {
		return domain.ScannedOffer{}, false
	}
	price := r.Price()
	if price.IsZero() || price.IsNegative() {
		return domain.ScannedOffer{}, false
	}
	title := r.Title()
	if s.isOwnStore(title, r.Description()) {
		return domain.ScannedOffer{}, false
	}

	o := domain.ScannedOffer{
		Title:      title,
		Price:      price,
		ExternalID: id,
		Seller:     r.SellerName(),
		Page:       page,
	}
	if rate, ok := pricing.ParseRate(title); ok {
		o.Rate = rate
		o.RateKnown = true
		o.RateSource = domain.RateSourceExact
		o.Band = domain.BandOf(rate)
	} else {
		o.Rate = band.Min()
		o.RateSource = domain.RateSourceBandFallback
		o.Band = band
	}
	return o, true
}

func (s *Scanner) isOwnStore(title, description string) bool {
	t := strings.ToLower(title)
	d := strings.ToLower(description)
	for _, m := range s.cfg.OwnStoreMarkers {
		if strings.Contains(t, m) || strings.Contains(d, m) {
			return true
		}
	}
	return false
}
