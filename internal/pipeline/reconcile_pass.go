package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/notify"
)

// ListingReconciler verifies tracked listings against the marketplace
// and purges listings that stayed paused past the grace window.
type ListingReconciler interface {
	Run(ctx context.Context) (domain.ReconcileReport, error)
	Cleanup(ctx context.Context) (int64, error)
}

// ReconcilePass drives the reconciler on a schedule and alerts operators
// when listings drop off the marketplace.
type ReconcilePass struct {
	reconciler ListingReconciler
	notifier   *notify.Notifier
	logger     *slog.Logger
}

// NewReconcilePass creates a ReconcilePass. notifier may be nil.
func NewReconcilePass(reconciler ListingReconciler, notifier *notify.Notifier, logger *slog.Logger) *ReconcilePass {
	return &ReconcilePass{
		reconciler: reconciler,
		notifier:   notifier,
		logger:     logger.With(slog.String("component", "reconcile_pass")),
	}
}

// Run executes one reconciliation pass followed by the paused-listing
// cleanup.
func (p *ReconcilePass) Run(ctx context.Context) (domain.ReconcileReport, error) {
	report, err := p.reconciler.Run(ctx)
	if err != nil {
		return domain.ReconcileReport{}, fmt.Errorf("reconcile pass: %w", err)
	}

	if report.Paused > 0 && p.notifier != nil {
		title := "Listings paused"
		msg := fmt.Sprintf("%d listing(s) no longer found on the marketplace (scanned %d, activated %d)",
			report.Paused, report.Scanned, report.Activated)
		if err := p.notifier.Notify(ctx, "listing_paused", title, msg); err != nil {
			p.logger.Warn("pause notification failed", slog.Any("error", err))
		}
	}

	purged, err := p.reconciler.Cleanup(ctx)
	if err != nil {
		p.logger.Error("paused listing cleanup failed", slog.Any("error", err))
	} else if purged > 0 {
		p.logger.Info("purged expired paused listings", slog.Int64("count", purged))
	}

	return report, nil
}

// RunLoop runs reconciliation passes on a repeating interval until the
// context is cancelled. The first pass starts immediately.
func (p *ReconcilePass) RunLoop(ctx context.Context, interval time.Duration) error {
	if _, err := p.Run(ctx); err != nil {
		p.logger.Error("reconcile pass failed", slog.Any("error", err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("reconcile loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Run(ctx); err != nil {
				p.logger.Error("reconcile pass failed", slog.Any("error", err))
				p.alert(ctx, err)
			}
		}
	}
}

// alert raises an operator notification for a whole-pass failure.
func (p *ReconcilePass) alert(ctx context.Context, passErr error) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, "error", "Reconciliation failed", passErr.Error()); err != nil {
		p.logger.Warn("error notification failed", slog.Any("error", err))
	}
}
