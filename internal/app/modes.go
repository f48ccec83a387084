package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glitchedstore/farmpanel/internal/catalog"
	"github.com/glitchedstore/farmpanel/internal/pipeline"
	"github.com/glitchedstore/farmpanel/internal/pricing"
	"github.com/glitchedstore/farmpanel/internal/reconcile"
	"github.com/glitchedstore/farmpanel/internal/scanner"
	"github.com/glitchedstore/farmpanel/internal/server"
	"github.com/glitchedstore/farmpanel/internal/server/handler"
	"github.com/glitchedstore/farmpanel/internal/server/ws"
	"github.com/glitchedstore/farmpanel/internal/service"
)

// core bundles the domain services every mode builds on top of the wired
// dependencies.
type core struct {
	resolver      *catalog.Resolver
	priceSvc      *service.PriceService
	listingSvc    *service.ListingService
	apikeySvc     *service.APIKeyService
	priceScanner  *pipeline.PriceScanner
	reconcilePass *pipeline.ReconcilePass
}

// buildCore loads the catalog and constructs the service layer.
func (a *App) buildCore(ctx context.Context, deps *Dependencies) (*core, error) {
	resolver, err := catalog.Load(ctx, deps.CatalogStore, a.logger)
	if err != nil {
		return nil, fmt.Errorf("app: load catalog: %w", err)
	}

	sc := scanner.New(deps.Eldorado, deps.RateLimiter, a.scannerConfig(), a.logger)
	priceSvc := service.NewPriceService(
		resolver,
		sc,
		pricing.NewAnchor(),
		deps.RecommendationCache,
		deps.PriceLogStore,
		deps.Archiver,
		deps.SignalBus,
		a.logger,
	)
	listingSvc := service.NewListingService(deps.ListingStore, resolver, deps.SignalBus, a.logger)

	var apikeySvc *service.APIKeyService
	if deps.Vault != nil {
		apikeySvc = service.NewAPIKeyService(deps.Eldorado, deps.Vault, deps.APIKeyStore, a.logger)
	}

	reconciler := reconcile.New(deps.Eldorado, deps.ListingStore, deps.LockManager, a.reconcilerConfig(), a.logger)

	return &core{
		resolver:      resolver,
		priceSvc:      priceSvc,
		listingSvc:    listingSvc,
		apikeySvc:     apikeySvc,
		priceScanner:  pipeline.NewPriceScanner(deps.ListingStore, priceSvc, deps.Notifier, a.cfg.Pipeline.MaxTrackedItems, a.logger),
		reconcilePass: pipeline.NewReconcilePass(reconciler, deps.Notifier, a.logger),
	}, nil
}

func (a *App) scannerConfig() scanner.Config {
	cfg := scanner.DefaultConfig()
	s := a.cfg.Scanner
	if s.MinBandSamples > 0 {
		cfg.MinBandSamples = s.MinBandSamples
	}
	if s.StallPagesBand > 0 {
		cfg.StallPagesBand = s.StallPagesBand
	}
	if s.StallPagesAny > 0 {
		cfg.StallPagesAny = s.StallPagesAny
	}
	if s.MaxPages > 0 {
		cfg.MaxPages = s.MaxPages
	}
	if s.PageSize > 0 {
		cfg.PageSize = s.PageSize
	}
	if s.PageTimeout.Duration > 0 {
		cfg.PageTimeout = s.PageTimeout.Duration
	}
	if s.PageDelay.Duration > 0 {
		cfg.PageDelay = s.PageDelay.Duration
	}
	if len(s.OwnStoreMarkers) > 0 {
		cfg.OwnStoreMarkers = s.OwnStoreMarkers
	}
	return cfg
}

func (a *App) reconcilerConfig() reconcile.Config {
	cfg := reconcile.DefaultConfig()
	r := a.cfg.Reconciler
	if r.Workers > 0 {
		cfg.Workers = int64(r.Workers)
	}
	if r.SearchAttempts > 0 {
		cfg.SearchAttempts = r.SearchAttempts
	}
	if r.RetryDelay.Duration > 0 {
		cfg.RetryDelay = r.RetryDelay.Duration
	}
	if r.SearchPages > 0 {
		cfg.SearchPages = r.SearchPages
	}
	if r.PageSize > 0 {
		cfg.PageSize = r.PageSize
	}
	if r.LockTTL.Duration > 0 {
		cfg.LockTTL = r.LockTTL.Duration
	}
	if r.PausedGrace.Duration > 0 {
		cfg.PausedGrace = r.PausedGrace.Duration
	}
	return cfg
}

// runServer starts the HTTP API and the WebSocket hub on the errgroup.
func (a *App) runServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, c *core) {
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("ws hub: %w", err)
	})

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Prices:    handler.NewPriceHandler(c.priceSvc, a.logger),
		Listings:  handler.NewListingHandler(c.listingSvc, a.logger),
		Keys:      handler.NewAPIKeyHandler(c.apikeySvc, a.logger),
		Reconcile: handler.NewReconcileHandler(c.reconcilePass, a.logger),
		Scans:     handler.NewScanHandler(deps.BlobReader, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// ServeMode runs only the HTTP API and WebSocket hub; no background loops.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode", slog.Int("port", a.cfg.Server.Port))

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.runServer(ctx, g, deps, c)
	return g.Wait()
}

// ScanMode runs only the recommendation refresh loop.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Duration("interval", a.cfg.Pipeline.ScanInterval.Duration))

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(
		c.priceScanner, nil,
		a.cfg.Pipeline.ScanInterval.Duration,
		0,
		a.logger,
	)
	return orch.Run(ctx)
}

// ReconcileMode runs only the listing reconciliation loop.
func (a *App) ReconcileMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting reconcile mode",
		slog.Duration("interval", a.cfg.Pipeline.ReconcileInterval.Duration))

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(
		nil, c.reconcilePass,
		0,
		a.cfg.Pipeline.ReconcileInterval.Duration,
		a.logger,
	)
	return orch.Run(ctx)
}

// FullMode runs the HTTP API plus both background loops.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	c, err := a.buildCore(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		a.runServer(ctx, g, deps, c)
	}

	if a.cfg.Pipeline.Enabled {
		orch := pipeline.NewOrchestrator(
			c.priceScanner, c.reconcilePass,
			a.cfg.Pipeline.ScanInterval.Duration,
			a.cfg.Pipeline.ReconcileInterval.Duration,
			a.logger,
		)
		g.Go(func() error {
			return orch.Run(ctx)
		})
	}

	return g.Wait()
}
