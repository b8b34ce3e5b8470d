// Package server provides the HTTP server setup and wiring.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/deployconf/internal/config"
	"github.com/pendergraft/deployconf/internal/middleware/logging"
	"github.com/pendergraft/deployconf/internal/middleware/ratelimit"
	"github.com/pendergraft/deployconf/internal/middleware/realip"
	"github.com/pendergraft/deployconf/internal/netconfig"
	"github.com/pendergraft/deployconf/internal/observability/metrics"
	"github.com/pendergraft/deployconf/internal/storage"
)

// Server is the HTTP server. It serves a read-only view of one loaded
// network config; handlers share the config without locking.
type Server struct {
	cfg        *config.Config
	networks   *netconfig.Store
	store      storage.Store
	snapshotID string
	logger     *slog.Logger
	router     *chi.Mux
}

// New creates a new server. snapshotID identifies the stored snapshot of
// networks and may be empty when no snapshot was recorded.
func New(cfg *config.Config, networks *netconfig.Store, store storage.Store, snapshotID string, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		networks:   networks,
		store:      store,
		snapshotID: snapshotID,
		logger:     logger,
		router:     chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the metrics HTTP handler for separate metrics server
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler()
}

func (s *Server) setupMiddleware() {
	// 1. Real IP extraction (must be first to set client IP for other middleware)
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))

	// 2. Rate limiting (bypasses health checks)
	s.router.Use(ratelimit.Middleware(ratelimit.Config{
		Enabled:        s.cfg.RateLimit.Enabled,
		RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
		BurstSize:      s.cfg.RateLimit.BurstSize,
		CleanupMinutes: s.cfg.RateLimit.CleanupMinutes,
	}))

	// 3. Standard middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/compiler", s.handleCompiler)

		r.Route("/networks", func(r chi.Router) {
			r.Get("/", s.handleListNetworks)
			r.Get("/{name}", s.handleGetNetwork)
		})

		r.Get("/snapshots", s.handleListSnapshots)
		r.Get("/snapshots/{id}", s.handleGetSnapshot)
		r.Get("/resolutions", s.handleListResolutions)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once a config is loaded; the audit store is
// optional and does not gate readiness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.networks == nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "no network config loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"networks": s.networks.Len(),
	})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
