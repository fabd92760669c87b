package prices

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cryptofolio/cryptofolio/internal/domain"
)

// FetchPages fetches markets pages 1..pages in parallel and returns them
// concatenated in page order. Any page failure fails the whole fetch.
func FetchPages(ctx context.Context, feed domain.PriceFeed, pages int) ([]domain.MarketCoin, error) {
	results := make([][]domain.MarketCoin, pages)

	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		i := i
		g.Go(func() error {
			coins, err := feed.FetchPage(gctx, i+1)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			results[i] = coins
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, page := range results {
		total += len(page)
	}
	all := make([]domain.MarketCoin, 0, total)
	for _, page := range results {
		all = append(all, page...)
	}
	return all, nil
}
