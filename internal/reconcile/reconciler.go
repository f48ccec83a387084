package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/platform/eldorado"
	"github.com/glitchedstore/farmpanel/internal/pricing"
)

// Searcher is the slice of the marketplace client the reconciler needs.
type Searcher interface {
	SearchOffers(ctx context.Context, p eldorado.SearchParams) (eldorado.SearchPage, error)
}

// Config tunes the reconciliation pass.
type Config struct {
	// Workers bounds concurrent code lookups. Each code's fate is
	// independent, so a small pool is safe.
	Workers int64
	// SearchAttempts bounds retries per code. Retries exist to rule out
	// transient emptiness, not to delay the pause decision.
	SearchAttempts int
	RetryDelay     time.Duration
	// SearchPages is how many result pages are checked per attempt.
	SearchPages int
	PageSize    int
	// LockTTL bounds how long a per-code lock is held.
	LockTTL time.Duration
	// PausedGrace is how long a paused listing survives before the
	// cleanup pass purges it.
	PausedGrace time.Duration
}

// DefaultConfig returns the reconciliation tuning used in production.
func DefaultConfig() Config {
	return Config{
		Workers:        5,
		SearchAttempts: 3,
		RetryDelay:     2 * time.Second,
		SearchPages:    3,
		PageSize:       100,
		LockTTL:        time.Minute,
		PausedGrace:    72 * time.Hour,
	}
}

// Reconciler drives the pending -> active <-> paused state machine for
// tracked listings by re-finding their codes on the marketplace.
type Reconciler struct {
	searcher Searcher
	store    domain.ListingStore
	locks    domain.LockManager
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a reconciler. locks may be nil when passes are known to
// be single-writer, e.g. under a single scheduled job.
func New(searcher Searcher, store domain.ListingStore, locks domain.LockManager, cfg Config, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		searcher: searcher,
		store:    store,
		locks:    locks,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "reconciler")),
		now:      time.Now,
	}
}

// searchOutcome is the tri-state result of a code lookup. Errors are
// never conflated with absence.
type searchOutcome int

const (
	outcomeFound searchOutcome = iota
	outcomeNotFound
	outcomeError
)

// Run reconciles every tracked listing once. The pass is idempotent:
// re-running it against an unchanged marketplace produces zero
// transitions.
func (r *Reconciler) Run(ctx context.Context) (domain.ReconcileReport, error) {
	listings, err := r.store.ListAll(ctx)
	if err != nil {
		return domain.ReconcileReport{}, fmt.Errorf("reconcile: list listings: %w", err)
	}

	var (
		mu     sync.Mutex
		report domain.ReconcileReport
	)
	sem := semaphore.NewWeighted(r.cfg.Workers)
	var wg sync.WaitGroup

	for _, l := range listings {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return report, fmt.Errorf("reconcile: %w", err)
		}
		wg.Add(1)
		go func(l domain.TrackedListing) {
			defer wg.Done()
			defer sem.Release(1)

			outcome := r.reconcileOne(ctx, l)
			mu.Lock()
			defer mu.Unlock()
			report.Scanned++
			switch outcome {
			case transitionActivated:
				report.Activated++
			case transitionPaused:
				report.Paused++
			case transitionError:
				report.SkippedOnError++
			}
		}(l)
	}
	wg.Wait()

	r.logger.Info("reconcile pass finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("activated", report.Activated),
		slog.Int("paused", report.Paused),
		slog.Int("skipped_on_error", report.SkippedOnError))
	return report, nil
}

type transition int

const (
	transitionNone transition = iota
	transitionActivated
	transitionPaused
	transitionError
)

func (r *Reconciler) reconcileOne(ctx context.Context, l domain.TrackedListing) transition {
	if r.locks != nil {
		unlock, err := r.locks.Acquire(ctx, "reconcile:"+l.Code, r.cfg.LockTTL)
		if err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				r.logger.Warn("lock acquire failed", slog.String("code", l.Code), slog.Any("error", err))
			}
			return transitionError
		}
		defer unlock()
	}

	match, outcome := r.searchCode(ctx, l.Code)
	now := r.now().UTC()

	switch outcome {
	case outcomeError:
		// Transient failure: touch lastScannedAt, never the status.
		if err := r.store.UpdateStatus(ctx, l.Code, l.Status, now); err != nil {
			r.logger.Warn("touch failed", slog.String("code", l.Code), slog.Any("error", err))
		}
		return transitionError

	case outcomeNotFound:
		// One confirmed empty search suffices; the marketplace does not
		// cache absence.
		if err := r.pause(ctx, l, now); err != nil {
			r.logger.Warn("pause failed", slog.String("code", l.Code), slog.Any("error", err))
			return transitionError
		}
		if l.Status != domain.ListingStatusPaused {
			return transitionPaused
		}
		return transitionNone

	default:
		if err := r.activate(ctx, l, *match, now); err != nil {
			r.logger.Warn("activate failed", slog.String("code", l.Code), slog.Any("error", err))
			return transitionError
		}
		if l.Status != domain.ListingStatusActive {
			return transitionActivated
		}
		return transitionNone
	}
}

// searchCode looks the code up on the marketplace with bounded retries.
func (r *Reconciler) searchCode(ctx context.Context, code string) (*domain.ListingMatch, searchOutcome) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.SearchAttempts; attempt++ {
		if attempt > 1 {
			t := time.NewTimer(r.cfg.RetryDelay * time.Duration(attempt-1))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, outcomeError
			case <-t.C:
			}
		}

		match, err := r.searchOnce(ctx, code)
		if err != nil {
			lastErr = err
			continue
		}
		if match != nil {
			return match, outcomeFound
		}
		// A clean empty result is confirmation, not a reason to retry
		// harder; remaining attempts only guard transient emptiness on
		// the first page read.
		if attempt < r.cfg.SearchAttempts {
			continue
		}
		return nil, outcomeNotFound
	}
	if lastErr != nil {
		r.logger.Debug("code search errored",
			slog.String("code", code), slog.Any("error", lastErr))
		return nil, outcomeError
	}
	return nil, outcomeNotFound
}

func (r *Reconciler) searchOnce(ctx context.Context, code string) (*domain.ListingMatch, error) {
	for page := 1; page <= r.cfg.SearchPages; page++ {
		sp, err := r.searcher.SearchOffers(ctx, eldorado.SearchParams{
			Query:     code,
			PageIndex: page,
			PageSize:  r.cfg.PageSize,
		})
		if err != nil {
			return nil, err
		}
		for _, res := range sp.Results {
			if !containsCode(res, code) {
				continue
			}
			m := domain.ListingMatch{
				Code:       code,
				ExternalID: res.ExternalID(),
				Title:      res.Title(),
				Price:      res.Price(),
				ImageURL:   res.ImageURL(),
				Seller:     res.SellerName(),
			}
			if rate, ok := pricing.ParseRate(res.Title()); ok {
				m.Rate = rate
				m.RateKnown = true
			}
			return &m, nil
		}
		if len(sp.Results) < r.cfg.PageSize {
			break
		}
	}
	return nil, nil
}

// containsCode reports whether the result's title or description embeds
// the code under any of the recognised marker styles.
func containsCode(res eldorado.SearchResult, code string) bool {
	code = strings.ToUpper(code)
	for _, c := range ExtractCodes(res.Title()) {
		if c == code {
			return true
		}
	}
	for _, c := range ExtractCodes(res.Description()) {
		if c == code {
			return true
		}
	}
	return false
}

func (r *Reconciler) activate(ctx context.Context, l domain.TrackedListing, m domain.ListingMatch, now time.Time) error {
	l.Status = domain.ListingStatusActive
	l.ExternalID = m.ExternalID
	l.NotFoundStreak = 0
	l.LastScannedAt = &now
	l.PausedAt = nil
	if !m.Price.IsZero() {
		l.CurrentPrice = m.Price
	}
	if m.RateKnown {
		l.Rate = m.Rate
	}
	if m.ImageURL != "" {
		l.ImageURL = m.ImageURL
	}
	return r.store.Update(ctx, l)
}

func (r *Reconciler) pause(ctx context.Context, l domain.TrackedListing, now time.Time) error {
	l.Status = domain.ListingStatusPaused
	l.NotFoundStreak++
	l.LastScannedAt = &now
	if l.PausedAt == nil {
		l.PausedAt = &now
	}
	return r.store.Update(ctx, l)
}

// Cleanup purges listings that have sat paused for longer than the
// grace period. Housekeeping only; it never changes statuses.
func (r *Reconciler) Cleanup(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.cfg.PausedGrace)
	n, err := r.store.PurgePausedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reconcile: cleanup: %w", err)
	}
	if n > 0 {
		r.logger.Info("purged expired paused listings", slog.Int64("count", n))
	}
	return n, nil
}
