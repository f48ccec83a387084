package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/server/handler"
	"github.com/glitchedstore/farmpanel/internal/server/middleware"
	"github.com/glitchedstore/farmpanel/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// RateLimitPerMinute caps requests per client IP; 0 disables limiting.
	RateLimitPerMinute int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Prices    *handler.PriceHandler
	Listings  *handler.ListingHandler
	Keys      *handler.APIKeyHandler
	Reconcile *handler.ReconcileHandler
	Scans     *handler.ScanHandler
}

// Server is the headless HTTP + WebSocket API server for the panel.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Price recommendation.
	mux.HandleFunc("GET /api/price", handlers.Prices.GetPrice)
	mux.HandleFunc("GET /api/price/history", handlers.Prices.GetPriceHistory)

	// Tracked listing endpoints.
	mux.HandleFunc("GET /api/listings", handlers.Listings.ListListings)
	mux.HandleFunc("POST /api/listings", handlers.Listings.RegisterListing)
	mux.HandleFunc("GET /api/listings/{code}", handlers.Listings.GetListing)
	mux.HandleFunc("PUT /api/listings/{code}", handlers.Listings.UpdateListing)
	mux.HandleFunc("DELETE /api/listings/{code}", handlers.Listings.DeleteListing)

	// Marketplace API key endpoints.
	mux.HandleFunc("GET /api/apikey", handlers.Keys.KeyStatus)
	mux.HandleFunc("POST /api/apikey", handlers.Keys.SaveKey)
	mux.HandleFunc("POST /api/apikey/validate", handlers.Keys.ValidateKey)
	mux.HandleFunc("DELETE /api/apikey", handlers.Keys.DeleteKey)

	// Manual reconciliation trigger.
	mux.HandleFunc("POST /api/reconcile", handlers.Reconcile.TriggerReconcile)

	// Archived scan snapshots.
	mux.HandleFunc("GET /api/scans/{date}", handlers.Scans.ListScans)
	mux.HandleFunc("GET /api/scans/{date}/{cycle}", handlers.Scans.GetScan)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when a limiter is available.
	if limiter != nil && cfg.RateLimitPerMinute > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
