// Package server provides the HTTP server and routing for cryptofolio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/config"
	"github.com/cryptofolio/cryptofolio/internal/database"
	"github.com/cryptofolio/cryptofolio/internal/di"
	cataloghandlers "github.com/cryptofolio/cryptofolio/internal/modules/catalog/handlers"
	ledgerhandlers "github.com/cryptofolio/cryptofolio/internal/modules/ledger/handlers"
	pricehandlers "github.com/cryptofolio/cryptofolio/internal/modules/prices/handlers"
	valuationhandlers "github.com/cryptofolio/cryptofolio/internal/modules/valuation/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container    // DI container with all services
	Jobs      *di.JobInstances // Optional, enables manual job triggers
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		[]*database.DB{cfg.Container.LedgerDB, cfg.Container.CatalogDB},
		cfg.Container.PriceCache,
	)
	if cfg.Jobs != nil {
		systemHandlers.SetJobs(
			cfg.Jobs.PreloadPrices,
			cfg.Jobs.SyncCatalog,
			cfg.Jobs.CheckCoreDatabases,
			cfg.Jobs.CheckWALCheckpoints,
		)
	}

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		port:           cfg.Port,
		container:      cfg.Container,
		systemHandlers: systemHandlers,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Event stream (SSE) is long-lived, so it skips the timeout and compression below
		eventsStreamHandler := NewEventsStreamHandler(s.container.EventBus, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if s.cfg == nil || !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			s.setupSystemRoutes(r)

			// Ledger module
			ledgerHandler := ledgerhandlers.NewHandler(s.container.LedgerService, s.log)
			ledgerHandler.RegisterRoutes(r)

			// Price cache
			priceHandler := pricehandlers.NewHandler(s.container.PriceCache, s.log)
			priceHandler.RegisterRoutes(r)

			// Coin catalog and remote search
			catalogHandler := cataloghandlers.NewHandler(s.container.CatalogService, s.log)
			catalogHandler.RegisterRoutes(r)

			// Portfolio valuation
			valuationHandler := valuationhandlers.NewHandler(s.container.ValuationService, s.log)
			valuationHandler.RegisterRoutes(r)
		})
	})
}

// setupSystemRoutes configures system monitoring and job trigger routes
func (s *Server) setupSystemRoutes(r chi.Router) {
	systemHandlers := s.systemHandlers

	r.Route("/system", func(r chi.Router) {
		// Status and monitoring
		r.Get("/status", systemHandlers.HandleSystemStatus)
		r.Get("/database/stats", systemHandlers.HandleDatabaseStats)
		r.Get("/disk", systemHandlers.HandleDiskUsage)

		// Job triggers (manual operation triggers)
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/preload-prices", systemHandlers.HandleTriggerPreloadPrices)
			r.Post("/sync-catalog", systemHandlers.HandleTriggerSyncCatalog)
			r.Post("/check-core-databases", systemHandlers.HandleTriggerCheckCoreDatabases)
			r.Post("/check-wal-checkpoints", systemHandlers.HandleTriggerCheckWALCheckpoints)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
