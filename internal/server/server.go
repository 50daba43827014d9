// Package server exposes the scanner's HTTP and WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LavaaC/ArbiSport/internal/server/handler"
	"github.com/LavaaC/ArbiSport/internal/server/middleware"
	"github.com/LavaaC/ArbiSport/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per minute per client; 0 disables
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Scans         *handler.ScanHandler
	Opportunities *handler.OpportunityHandler
	Quotes        *handler.QuoteHandler
	Usage         *handler.UsageHandler
}

// Server is the headless HTTP + WebSocket API for the arbitrage scanner.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. metricsRegistry may
// be nil to skip the /metrics endpoint; wsHub may be nil to skip /ws.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, metricsRegistry *prometheus.Registry, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Scan status and control.
	mux.HandleFunc("GET /api/status", handlers.Scans.Status)
	mux.HandleFunc("POST /api/scans/{name}/rescan", handlers.Scans.Rescan)

	// Arbitrage history.
	mux.HandleFunc("GET /api/opportunities", handlers.Opportunities.ListRecent)

	// Cached market quotes.
	mux.HandleFunc("GET /api/quotes/{eventID}/{marketKey}", handlers.Quotes.Latest)

	// Provider quota.
	mux.HandleFunc("GET /api/usage", handlers.Usage.Latest)

	if metricsRegistry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if cfg.RateLimit > 0 {
		h = middleware.RateLimit(cfg.RateLimit, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
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
