// Package di provides dependency injection for services.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/clients/coingecko"
	"github.com/cryptofolio/cryptofolio/internal/config"
	"github.com/cryptofolio/cryptofolio/internal/events"
	"github.com/cryptofolio/cryptofolio/internal/modules/catalog"
	"github.com/cryptofolio/cryptofolio/internal/modules/ledger"
	"github.com/cryptofolio/cryptofolio/internal/modules/prices"
	"github.com/cryptofolio/cryptofolio/internal/modules/valuation"
)

// InitializeServices creates all services in dependency order
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Events
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	// Market-data client
	container.FeedClient = coingecko.NewClient(coingecko.Config{
		BaseURL:           cfg.Feed.BaseURL,
		APIKey:            cfg.Feed.APIKey,
		QuoteCurrency:     cfg.Feed.QuoteCurrency,
		RequestsPerMinute: cfg.Feed.RequestsPerMinute,
		Timeout:           cfg.Feed.Timeout,
	}, log)

	// Price cache
	container.PriceCache = prices.NewCache(container.FeedClient, prices.Config{
		PreloadPages: cfg.Feed.PreloadPages,
	}, log)

	// Ledger
	container.LedgerService = ledger.NewService(
		container.LedgerRepo,
		container.EventManager,
		cfg.StablecoinSymbol,
		log,
	)

	// Catalog (shares the preload page count with the cache)
	container.CatalogService = catalog.NewService(
		container.CatalogRepo,
		container.FeedClient,
		container.PriceCache,
		container.LedgerService,
		container.EventManager,
		cfg.Feed.PreloadPages,
		log,
	)

	// Valuation reads the ledger directly; it never writes
	container.ValuationEngine = valuation.NewEngine(container.LedgerRepo, container.PriceCache, log)
	container.ValuationService = valuation.NewService(
		container.ValuationEngine,
		container.PriceCache,
		container.EventManager,
		log,
	)

	log.Info().Msg("All services initialized")

	return nil
}
