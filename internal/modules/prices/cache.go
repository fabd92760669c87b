// Package prices provides the process-lifetime price cache in front of the market-data feed.
package prices

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cryptofolio/cryptofolio/internal/domain"
)

// DefaultPreloadPages is how many markets pages a preload fetches
const DefaultPreloadPages = 4

// refreshTimeout bounds a shared miss refresh, which outlives the callers waiting on it
const refreshTimeout = 30 * time.Second

// Config holds cache settings
type Config struct {
	PreloadPages int
}

// Cache maps lowercase symbols to their last-known price.
// Entries never expire; they are overwritten by Preload and by Refresh.
// Only positive prices are stored, since 0 means unknown.
type Cache struct {
	feed   domain.PriceFeed
	pages  int
	misses singleflight.Group
	log    zerolog.Logger

	mu          sync.RWMutex
	prices      map[string]float64
	lastPreload time.Time
}

// NewCache creates an empty cache backed by feed
func NewCache(feed domain.PriceFeed, cfg Config, log zerolog.Logger) *Cache {
	if cfg.PreloadPages < 1 {
		cfg.PreloadPages = DefaultPreloadPages
	}
	return &Cache{
		feed:   feed,
		pages:  cfg.PreloadPages,
		prices: make(map[string]float64),
		log:    log.With().Str("component", "price_cache").Logger(),
	}
}

// Preload fetches the top of the index page by page, in parallel, and stores
// every coin that has a symbol and a price. If any page fails nothing is written.
func (c *Cache) Preload(ctx context.Context) {
	start := time.Now()

	all, err := FetchPages(ctx, c.feed, c.pages)
	if err != nil {
		c.log.Warn().Err(err).Int("pages", c.pages).Msg("Price preload aborted, keeping existing prices")
		return
	}
	stored := c.Ingest(all)

	c.mu.Lock()
	c.lastPreload = time.Now()
	c.mu.Unlock()

	c.log.Info().
		Int("pages", c.pages).
		Int("stored", stored).
		Dur("duration", time.Since(start)).
		Msg("Price preload completed")
}

// Ingest stores the price of every coin with a non-empty symbol and a positive
// price, in order, and returns how many were stored. Coins the index no longer
// prices (null, stored as 0) leave any earlier price in place.
func (c *Cache) Ingest(coins []domain.MarketCoin) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := 0
	for _, coin := range coins {
		key := domain.NormalizeSymbol(coin.Symbol)
		if key == "" || coin.CurrentPrice <= 0 {
			continue
		}
		c.prices[key] = coin.CurrentPrice
		stored++
	}
	return stored
}

// Get returns the cached price for symbol, refreshing it from the feed on a miss.
// 0 means the price is unknown. When ctx ends first Get returns 0 and the refresh
// carries on for later callers.
func (c *Cache) Get(ctx context.Context, symbol string) float64 {
	key := domain.NormalizeSymbol(symbol)
	if key == "" {
		return 0
	}

	if price, ok := c.Peek(key); ok && price > 0 {
		return price
	}

	// Concurrent misses on the same symbol share one feed request
	ch := c.misses.DoChan(key, func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.Refresh(refreshCtx, key), nil
	})

	select {
	case res := <-ch:
		return res.Val.(float64)
	case <-ctx.Done():
		c.log.Debug().Err(ctx.Err()).Str("symbol", key).Msg("Gave up waiting for price refresh")
		return 0
	}
}

// Refresh queries the feed for symbol and stores the first match.
// No match, a zero price or a feed failure returns 0 and leaves the cache untouched.
func (c *Cache) Refresh(ctx context.Context, symbol string) float64 {
	key := domain.NormalizeSymbol(symbol)
	if key == "" {
		return 0
	}

	coins, err := c.feed.FetchBySymbol(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", key).Msg("Price refresh failed")
		return 0
	}
	if len(coins) == 0 {
		c.log.Debug().Str("symbol", key).Msg("Symbol not found in price feed")
		return 0
	}

	price := coins[0].CurrentPrice
	if price <= 0 {
		c.log.Debug().Str("symbol", key).Msg("Price feed has no price for symbol")
		return 0
	}

	c.mu.Lock()
	c.prices[key] = price
	c.mu.Unlock()

	return price
}

// Peek returns the cached price without touching the network
func (c *Cache) Peek(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	price, ok := c.prices[domain.NormalizeSymbol(symbol)]
	return price, ok
}

// Len returns the number of cached symbols
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.prices)
}

// Snapshot returns a copy of the cache contents
func (c *Cache) Snapshot() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(c.prices))
	for k, v := range c.prices {
		out[k] = v
	}
	return out
}

// LastPreload returns when the last successful preload finished (zero if never)
func (c *Cache) LastPreload() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPreload
}
