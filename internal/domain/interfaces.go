package domain

import "context"

// PriceFeed defines the market-data index queries
// Implemented by clients/coingecko; faked in tests
type PriceFeed interface {
	// FetchPage returns up to one page of coins ordered by market cap.
	// An empty result signals the end of data.
	FetchPage(ctx context.Context, page int) ([]MarketCoin, error)

	// FetchBySymbol returns zero or one coin matching the ticker
	FetchBySymbol(ctx context.Context, symbol string) ([]MarketCoin, error)

	// FetchByID returns zero or one coin matching the index id
	FetchByID(ctx context.Context, id string) ([]MarketCoin, error)

	// Search returns coins whose name or symbol match the query.
	// No hits is an empty list, not an error.
	Search(ctx context.Context, query string) ([]SearchCoin, error)
}

// PriceProvider resolves the current price of a symbol.
// A price of 0 means unknown.
type PriceProvider interface {
	Get(ctx context.Context, symbol string) float64
}
