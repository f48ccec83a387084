package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator manages the background loops: recommendation refresh for
// tracked items and marketplace reconciliation of listing codes.
type Orchestrator struct {
	priceScanner      *PriceScanner
	reconcilePass     *ReconcilePass
	scanInterval      time.Duration
	reconcileInterval time.Duration
	logger            *slog.Logger
}

// NewOrchestrator creates an Orchestrator. Either loop may be nil, in
// which case it simply is not started.
func NewOrchestrator(
	priceScanner *PriceScanner,
	reconcilePass *ReconcilePass,
	scanInterval time.Duration,
	reconcileInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		priceScanner:      priceScanner,
		reconcilePass:     reconcilePass,
		scanInterval:      scanInterval,
		reconcileInterval: reconcileInterval,
		logger:            logger,
	}
}

// Run starts the configured loops as concurrent goroutines using an
// errgroup. Each goroutine respects ctx cancellation. If any goroutine
// returns a non-context error, the errgroup cancels the shared context
// and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("scan_interval", o.scanInterval),
		slog.Duration("reconcile_interval", o.reconcileInterval),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.priceScanner != nil {
		g.Go(func() error {
			o.logger.Info("starting price refresh loop")
			err := o.priceScanner.RunLoop(ctx, o.scanInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("price scanner: %w", err)
		})
	}

	if o.reconcilePass != nil {
		g.Go(func() error {
			o.logger.Info("starting reconcile loop")
			err := o.reconcilePass.RunLoop(ctx, o.reconcileInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("reconcile pass: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
