/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/cryptofolio/cryptofolio/internal/clients/coingecko"
	"github.com/cryptofolio/cryptofolio/internal/database"
	"github.com/cryptofolio/cryptofolio/internal/events"
	"github.com/cryptofolio/cryptofolio/internal/modules/catalog"
	"github.com/cryptofolio/cryptofolio/internal/modules/ledger"
	"github.com/cryptofolio/cryptofolio/internal/modules/prices"
	"github.com/cryptofolio/cryptofolio/internal/modules/valuation"
	"github.com/cryptofolio/cryptofolio/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: ledger.db (user data, maximum safety) and catalog.db (re-fetchable)
 * - Clients: CoinGecko market-data client
 * - Repositories: ledger and catalog data access
 * - Services: price cache, ledger rules, catalog sync, valuation
 * - Scheduler: cron jobs for preload, catalog sync and database health
 */
type Container struct {
	// Databases
	LedgerDB  *database.DB
	CatalogDB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Clients
	FeedClient *coingecko.Client

	// Repositories
	LedgerRepo  *ledger.Repository
	CatalogRepo *catalog.Repository

	// Services
	PriceCache       *prices.Cache
	LedgerService    *ledger.Service
	CatalogService   *catalog.Service
	ValuationEngine  *valuation.Engine
	ValuationService *valuation.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds job references for manual triggering via API
type JobInstances struct {
	PreloadPrices       scheduler.Job
	SyncCatalog         scheduler.Job
	CheckCoreDatabases  scheduler.Job
	CheckWALCheckpoints scheduler.Job
}

// Close closes every database held by the container
func (c *Container) Close() {
	if c == nil {
		return
	}
	for _, db := range []*database.DB{c.LedgerDB, c.CatalogDB} {
		if db != nil {
			_ = db.Close()
		}
	}
}
