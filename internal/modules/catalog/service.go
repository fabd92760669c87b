package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/domain"
	"github.com/cryptofolio/cryptofolio/internal/events"
	"github.com/cryptofolio/cryptofolio/internal/modules/prices"
)

// DefaultPages is how many feed pages a sync pulls when not configured
const DefaultPages = 4

// PriceIngester receives the prices that come along with a sync
type PriceIngester interface {
	Ingest(coins []domain.MarketCoin) int
}

// AssetCreator creates ledger assets
type AssetCreator interface {
	CreateAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error)
}

// EventEmitter publishes catalog events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Service syncs the catalog from the price feed and serves lookups
type Service struct {
	repo   *Repository
	feed   domain.PriceFeed
	prices PriceIngester
	assets AssetCreator
	events EventEmitter
	pages  int
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a new catalog service. prices and emitter may be nil.
func NewService(repo *Repository, feed domain.PriceFeed, prices PriceIngester, assets AssetCreator, emitter EventEmitter, pages int, log zerolog.Logger) *Service {
	if pages < 1 {
		pages = DefaultPages
	}
	return &Service{
		repo:   repo,
		feed:   feed,
		prices: prices,
		assets: assets,
		events: emitter,
		pages:  pages,
		now:    time.Now,
		log:    log.With().Str("service", "catalog").Logger(),
	}
}

// Sync fetches the top pages of the market index and replaces the catalog.
// If any page fails nothing is written.
func (s *Service) Sync(ctx context.Context) (int, error) {
	start := time.Now()

	all, err := prices.FetchPages(ctx, s.feed, s.pages)
	if err != nil {
		s.log.Warn().Err(err).Msg("Catalog sync failed")
		return 0, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	syncedAt := s.now()
	entries := make([]domain.CatalogEntry, 0, len(all))
	for _, c := range all {
		if c.ID == "" || c.Symbol == "" {
			continue
		}
		entries = append(entries, domain.CatalogEntry{
			CoinID:        c.ID,
			Name:          c.Name,
			Symbol:        c.Symbol,
			Logo:          c.Image,
			MarketCapRank: c.MarketCapRank,
			SyncedAt:      syncedAt,
		})
	}

	if err := s.repo.ReplaceAll(ctx, entries); err != nil {
		return 0, err
	}

	if s.prices != nil {
		s.prices.Ingest(all)
	}

	s.log.Info().
		Int("coins", len(entries)).
		Dur("duration", time.Since(start)).
		Msg("Catalog synced")

	if s.events != nil {
		s.events.EmitTyped("catalog", &events.CatalogSyncedData{Coins: len(entries)})
	}
	return len(entries), nil
}

// List returns catalog entries, filtered by query when it is non-empty
func (s *Service) List(ctx context.Context, query string, limit int) ([]domain.CatalogEntry, error) {
	return s.repo.Search(ctx, query, limit)
}

// SearchRemote proxies a free-text search to the feed
func (s *Service) SearchRemote(ctx context.Context, query string) ([]domain.SearchCoin, error) {
	return s.feed.Search(ctx, query)
}

// AddAsset creates a ledger asset for coinID.
// Coins outside the local catalog are looked up on the feed.
func (s *Service) AddAsset(ctx context.Context, coinID string) (*domain.Asset, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		return nil, fmt.Errorf("coin id is required: %w", ErrNotFound)
	}

	entry, err := s.repo.Get(ctx, coinID)
	if errors.Is(err, ErrNotFound) {
		entry, err = s.lookupRemote(ctx, coinID)
	}
	if err != nil {
		return nil, err
	}

	return s.assets.CreateAsset(ctx, domain.Asset{
		Name:   entry.Name,
		Symbol: strings.ToUpper(entry.Symbol),
		Logo:   entry.Logo,
	})
}

func (s *Service) lookupRemote(ctx context.Context, coinID string) (*domain.CatalogEntry, error) {
	coins, err := s.feed.FetchByID(ctx, coinID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up coin %s: %w", coinID, err)
	}
	if len(coins) == 0 {
		return nil, fmt.Errorf("%s: %w", coinID, ErrNotFound)
	}

	c := coins[0]
	if s.prices != nil {
		s.prices.Ingest(coins[:1])
	}
	return &domain.CatalogEntry{
		CoinID:        c.ID,
		Name:          c.Name,
		Symbol:        c.Symbol,
		Logo:          c.Image,
		MarketCapRank: c.MarketCapRank,
	}, nil
}
