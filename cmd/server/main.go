// Package main is the entry point for cryptofolio, a self-hosted crypto portfolio tracker.
// It records buys and sells per asset, prices holdings from the CoinGecko market index
// and serves portfolio valuations over HTTP.
//
// The application follows the usual layering:
// - Domain layer is pure (no infrastructure dependencies)
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cryptofolio/cryptofolio/internal/config"
	"github.com/cryptofolio/cryptofolio/internal/di"
	"github.com/cryptofolio/cryptofolio/internal/server"
	"github.com/cryptofolio/cryptofolio/pkg/logger"
)

// main is the application entry point. Startup sequence:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires all dependencies via DI container (databases, repositories, services, jobs)
// 4. Starts HTTP server
// 5. Starts the valuation recompute loop and the job scheduler
// 6. Primes the price cache once in the background
// 7. Waits for shutdown signal and performs graceful shutdown
//
// Two databases live under the data directory:
// - ledger.db: assets, buys and sells entered by the user
// - catalog.db: top coins by market cap, rebuilt by the catalog sync job
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("quote_currency", cfg.Feed.QuoteCurrency).
		Msg("Starting cryptofolio")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Databases must be closed so WAL checkpoints are written
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Jobs:      jobs,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger changes and preloads trigger a fresh valuation in the background
	go container.ValuationService.Run(ctx, container.EventBus)

	container.Scheduler.Start()

	// Prime the cache now rather than waiting for the first scheduled preload
	go func() {
		if err := container.Scheduler.RunNow(jobs.PreloadPrices); err != nil {
			log.Warn().Err(err).Msg("Initial price preload failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancel()
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
