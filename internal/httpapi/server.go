// Package httpapi is the HTTP surface: it composes the Comparison
// Resolver, Lineage Engine, Broad-Checks Evaluator, Test Aggregator, and
// Tiered Cache into the lineage/errors/cache-admin/snapshots endpoints.
// Cross-cutting middleware (request id, logging, CORS, rate limiting) is
// composed by the caller in cmd/server, not here, so this package stays a
// pure handler/route table.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"obs-engine/internal/checks"
	"obs-engine/internal/config"
	"obs-engine/internal/store"
)

// Server holds the dependencies every handler needs.
type Server struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewServer builds a Server over an already-constructed Store and Config.
func NewServer(st *store.Store, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: st, cfg: cfg, logger: logger}
}

func (s *Server) thresholds() checks.Thresholds {
	return checks.Thresholds{
		VolumeThresholdPct:                 s.cfg.VolumeThresholdPct,
		FreshnessThresholdMinutes:          s.cfg.FreshnessThresholdMinutes,
		ReferenceFreshnessThresholdMinutes: s.cfg.ReferenceFreshnessThresholdMinutes,
	}
}

// Routes assembles the chi route table. It is mounted by cmd/server under
// the middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealthz)
	r.Get("/snapshots", s.handleSnapshots)

	r.Get("/dag/{id}", s.handleLineage)
	r.Post("/dag/{id}", s.handleInvalidateOrLineage)

	r.Get("/errors/{id}", s.handleErrors)

	r.Get("/cache/stats", s.handleCacheStats)
	r.Post("/cache/clear", s.handleCacheClear)

	return r
}
