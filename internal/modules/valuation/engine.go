// Package valuation turns the ledger and current prices into per-asset and aggregate portfolio metrics.
package valuation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cryptofolio/cryptofolio/internal/domain"
)

// DefaultPriceTimeout bounds how long one pass waits on price lookups.
// Lookups still pending after it are valued at 0.
const DefaultPriceTimeout = 8 * time.Second

// LedgerReader is the read side of the ledger store
type LedgerReader interface {
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	ListBuys(ctx context.Context, assetID int64) ([]domain.BuyEvent, error)
	ListSells(ctx context.Context, assetID int64) ([]domain.SellEvent, error)
}

// Holding is the valuation of one asset
type Holding struct {
	Asset             domain.Asset `json:"asset"`
	RemainingQuantity float64      `json:"remaining_quantity"` // Signed; negative on inconsistent ledgers
	AverageCost       float64      `json:"average_cost"`       // 0 when nothing was bought
	TotalInvested     float64      `json:"total_invested"`
	TotalSold         float64      `json:"total_sold"`
	CurrentPrice      float64      `json:"current_price"` // 0 when unknown
	EstimatedValue    float64      `json:"estimated_value"`
	PercentageShare   float64      `json:"percentage_share"`
}

// Valuation is the result of one engine pass
type Valuation struct {
	RunID               string    `json:"run_id"`
	ComputedAt          time.Time `json:"computed_at"` // When the pass started reading the ledger
	TotalPortfolioValue float64   `json:"total_portfolio_value"`
	Holdings            []Holding `json:"holdings"` // Sorted by PercentageShare, descending
}

// Engine computes valuations. It never writes to the ledger.
type Engine struct {
	ledger       LedgerReader
	prices       domain.PriceProvider
	priceTimeout time.Duration
	log          zerolog.Logger
}

// NewEngine creates a new valuation engine
func NewEngine(ledger LedgerReader, prices domain.PriceProvider, log zerolog.Logger) *Engine {
	return &Engine{
		ledger:       ledger,
		prices:       prices,
		priceTimeout: DefaultPriceTimeout,
		log:          log.With().Str("component", "valuation_engine").Logger(),
	}
}

// SetPriceTimeout changes how long a pass waits on price lookups
func (e *Engine) SetPriceTimeout(d time.Duration) {
	if d > 0 {
		e.priceTimeout = d
	}
}

// Compute values every asset concurrently, then aggregates once.
// A ledger read failure fails the whole pass; a missing price only zeroes that asset.
func (e *Engine) Compute(ctx context.Context) (*Valuation, error) {
	start := time.Now()
	runID := uuid.NewString()

	assets, err := e.ledger.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	// Each goroutine owns one slot, so no locking is needed
	holdings := make([]Holding, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	priceCtx, cancel := context.WithTimeout(gctx, e.priceTimeout)
	defer cancel()

	for i, asset := range assets {
		i, asset := i, asset
		g.Go(func() error {
			h, err := e.valueAsset(gctx, priceCtx, asset)
			if err != nil {
				return fmt.Errorf("asset %d (%s): %w", asset.ID, asset.Symbol, err)
			}
			holdings[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	total := 0.0
	for _, h := range holdings {
		total += h.EstimatedValue
	}

	if total > 0 {
		for i := range holdings {
			holdings[i].PercentageShare = holdings[i].EstimatedValue / total * 100
		}
	}

	// Ties keep ledger order
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].PercentageShare > holdings[j].PercentageShare
	})

	e.log.Debug().
		Str("run_id", runID).
		Int("assets", len(holdings)).
		Float64("total", total).
		Dur("duration", time.Since(start)).
		Msg("Valuation computed")

	return &Valuation{
		RunID:               runID,
		ComputedAt:          start,
		TotalPortfolioValue: total,
		Holdings:            holdings,
	}, nil
}

func (e *Engine) valueAsset(ctx, priceCtx context.Context, asset domain.Asset) (Holding, error) {
	buys, err := e.ledger.ListBuys(ctx, asset.ID)
	if err != nil {
		return Holding{}, err
	}
	sells, err := e.ledger.ListSells(ctx, asset.ID)
	if err != nil {
		return Holding{}, err
	}

	h := Holding{Asset: asset}
	quantityBought := 0.0
	for _, b := range buys {
		h.TotalInvested += b.AmountInvested
		quantityBought += b.Quantity()
	}
	quantitySold := 0.0
	for _, s := range sells {
		h.TotalSold += s.AmountSold
		quantitySold += s.Quantity()
	}

	h.RemainingQuantity = quantityBought - quantitySold
	if quantityBought > 0 {
		h.AverageCost = h.TotalInvested / quantityBought
	}

	h.CurrentPrice = e.prices.Get(priceCtx, asset.PriceKey())
	h.EstimatedValue = h.RemainingQuantity * h.CurrentPrice

	return h, nil
}
