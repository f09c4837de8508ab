// Package main is the entry point for the observability engine's HTTP
// server: it loads configuration, builds the process-wide artifact store,
// and serves the lineage/errors/cache-admin/snapshots API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"obs-engine/internal/config"
	"obs-engine/internal/httpapi"
	appmiddleware "obs-engine/internal/middleware"
	"obs-engine/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	st := store.New(cfg.ArtifactsDir, logger)
	if _, err := st.Bundle(); err != nil {
		logger.Warn("initial artifact load failed, will retry on first request", "error", err)
	}
	if err := st.Watch(ctx); err != nil {
		logger.Warn("artifact watch disabled", "error", err)
	}
	defer st.Close()

	server := httpapi.NewServer(st, cfg, logger)
	handler := buildRouter(server, cfg, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func buildRouter(server *httpapi.Server, cfg *config.Config, logger *slog.Logger) http.Handler {
	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Cache", "X-Compute-Time-Ms", "X-Request-ID"},
		MaxAge:           300,
		AllowCredentials: false,
	})

	rateLimiter := appmiddleware.RateLimiter(appmiddleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})

	handler := server.Routes()
	handler = rateLimiter(handler)
	handler = corsMiddleware(handler)
	handler = chimw.Recoverer(handler)
	handler = appmiddleware.StructuredLogger(logger)(handler)
	handler = appmiddleware.RequestID(handler)
	return handler
}
