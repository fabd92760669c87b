package valuation

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptofolio/cryptofolio/internal/domain"
	"github.com/cryptofolio/cryptofolio/internal/modules/prices"
)

type fakeLedger struct {
	assets    []domain.Asset
	buys      map[int64][]domain.BuyEvent
	sells     map[int64][]domain.SellEvent
	assetsErr error
	buysErr   map[int64]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		buys:    map[int64][]domain.BuyEvent{},
		sells:   map[int64][]domain.SellEvent{},
		buysErr: map[int64]error{},
	}
}

func (f *fakeLedger) addAsset(id int64, symbol string) {
	f.assets = append(f.assets, domain.Asset{ID: id, Name: symbol, Symbol: symbol})
}

func (f *fakeLedger) buy(assetID int64, unitPrice, amount float64) {
	f.buys[assetID] = append(f.buys[assetID], domain.BuyEvent{AssetID: assetID, UnitPrice: unitPrice, AmountInvested: amount, Date: "2024-01-01"})
}

func (f *fakeLedger) sell(assetID int64, unitPrice, amount float64) {
	f.sells[assetID] = append(f.sells[assetID], domain.SellEvent{AssetID: assetID, UnitPrice: unitPrice, AmountSold: amount, Date: "2024-02-01"})
}

func (f *fakeLedger) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return f.assets, f.assetsErr
}

func (f *fakeLedger) ListBuys(ctx context.Context, assetID int64) ([]domain.BuyEvent, error) {
	if err := f.buysErr[assetID]; err != nil {
		return nil, err
	}
	return f.buys[assetID], nil
}

func (f *fakeLedger) ListSells(ctx context.Context, assetID int64) ([]domain.SellEvent, error) {
	return f.sells[assetID], nil
}

// fixedPrices is a PriceProvider backed by a read-only map
type fixedPrices map[string]float64

func (p fixedPrices) Get(ctx context.Context, symbol string) float64 {
	return p[symbol]
}

// emptyFeed knows no symbols
type emptyFeed struct {
	mu    sync.Mutex
	calls int
}

func (f *emptyFeed) FetchPage(ctx context.Context, page int) ([]domain.MarketCoin, error) {
	return nil, nil
}

func (f *emptyFeed) FetchBySymbol(ctx context.Context, symbol string) ([]domain.MarketCoin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return []domain.MarketCoin{}, nil
}

func (f *emptyFeed) FetchByID(ctx context.Context, id string) ([]domain.MarketCoin, error) {
	return nil, nil
}

func (f *emptyFeed) Search(ctx context.Context, query string) ([]domain.SearchCoin, error) {
	return []domain.SearchCoin{}, nil
}

func compute(t *testing.T, ledger LedgerReader, p domain.PriceProvider) *Valuation {
	t.Helper()
	v, err := NewEngine(ledger, p, zerolog.Nop()).Compute(context.Background())
	require.NoError(t, err)
	return v
}

func holdingBySymbol(t *testing.T, v *Valuation, symbol string) Holding {
	t.Helper()
	for _, h := range v.Holdings {
		if h.Asset.Symbol == symbol {
			return h
		}
	}
	t.Fatalf("no holding for %s", symbol)
	return Holding{}
}

func TestCompute_SingleBuy(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "BTC")
	ledger.buy(1, 20000, 2000)

	v := compute(t, ledger, fixedPrices{"btc": 30000})
	btc := holdingBySymbol(t, v, "BTC")

	assert.InDelta(t, 0.1, btc.RemainingQuantity, 1e-12)
	assert.InDelta(t, 20000, btc.AverageCost, 1e-9)
	assert.Equal(t, 2000.0, btc.TotalInvested)
	assert.Equal(t, 30000.0, btc.CurrentPrice)
	assert.InDelta(t, 3000, btc.EstimatedValue, 1e-9)
	assert.InDelta(t, 100, btc.PercentageShare, 1e-9)
	assert.NotEmpty(t, v.RunID)
}

func TestCompute_BuyThenSell(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "BTC")
	ledger.buy(1, 20000, 2000)
	ledger.sell(1, 25000, 500)

	v := compute(t, ledger, fixedPrices{"btc": 30000})
	btc := holdingBySymbol(t, v, "BTC")

	assert.InDelta(t, 0.08, btc.RemainingQuantity, 1e-12)
	assert.Equal(t, 500.0, btc.TotalSold)
	assert.InDelta(t, 20000, btc.AverageCost, 1e-9)
	assert.InDelta(t, 2400, btc.EstimatedValue, 1e-9)
}

func TestCompute_PercentagesAndOrdering(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "ETH")
	ledger.buy(1, 2000, 1600) // 0.8 ETH
	ledger.addAsset(2, "BTC")
	ledger.buy(2, 20000, 2000)
	ledger.sell(2, 25000, 500) // 0.08 BTC

	v := compute(t, ledger, fixedPrices{"btc": 30000, "eth": 2000})

	assert.InDelta(t, 4000, v.TotalPortfolioValue, 1e-9)
	require.Len(t, v.Holdings, 2)
	assert.Equal(t, "BTC", v.Holdings[0].Asset.Symbol)
	assert.InDelta(t, 60, v.Holdings[0].PercentageShare, 1e-9)
	assert.Equal(t, "ETH", v.Holdings[1].Asset.Symbol)
	assert.InDelta(t, 40, v.Holdings[1].PercentageShare, 1e-9)
}

func TestCompute_UnknownSymbolPricedAtZero(t *testing.T) {
	feed := &emptyFeed{}
	cache := prices.NewCache(feed, prices.Config{PreloadPages: 1}, zerolog.Nop())

	assert.Equal(t, 0.0, cache.Get(context.Background(), "xyz"))

	ledger := newFakeLedger()
	ledger.addAsset(1, "XYZ")
	ledger.buy(1, 2, 100)

	v := compute(t, ledger, cache)
	xyz := holdingBySymbol(t, v, "XYZ")

	assert.Equal(t, 0.0, xyz.CurrentPrice)
	assert.Equal(t, 0.0, xyz.EstimatedValue)
	assert.Equal(t, 0.0, xyz.PercentageShare)
	assert.InDelta(t, 50, xyz.RemainingQuantity, 1e-12)
}

func TestCompute_SellOnlyAsset(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "SOL")
	ledger.sell(1, 100, 250)

	v := compute(t, ledger, fixedPrices{"sol": 120})
	sol := holdingBySymbol(t, v, "SOL")

	assert.Equal(t, 0.0, sol.AverageCost)
	assert.InDelta(t, -2.5, sol.RemainingQuantity, 1e-12)
	assert.InDelta(t, -300, sol.EstimatedValue, 1e-9)
	assert.Equal(t, 0.0, sol.PercentageShare)
	assert.InDelta(t, -300, v.TotalPortfolioValue, 1e-9)
}

func TestCompute_ZeroUnitPriceContributesNothing(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "BTC")
	ledger.buy(1, 0, 1000)
	ledger.sell(1, 0, 500)

	v := compute(t, ledger, fixedPrices{"btc": 30000})
	btc := holdingBySymbol(t, v, "BTC")

	assert.Equal(t, 0.0, btc.RemainingQuantity)
	assert.Equal(t, 0.0, btc.AverageCost)
	assert.Equal(t, 1000.0, btc.TotalInvested)
}

func TestCompute_NoBuysMeansZeroCostAndNonPositiveQuantity(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "A")
	ledger.addAsset(2, "B")
	ledger.sell(2, 10, 50)

	v := compute(t, ledger, fixedPrices{"a": 1, "b": 1})
	for _, h := range v.Holdings {
		assert.Equal(t, 0.0, h.AverageCost)
		assert.LessOrEqual(t, h.RemainingQuantity, 0.0)
	}
}

func TestCompute_EmptyPortfolio(t *testing.T) {
	v := compute(t, newFakeLedger(), fixedPrices{})

	assert.Equal(t, 0.0, v.TotalPortfolioValue)
	assert.NotNil(t, v.Holdings)
	assert.Empty(t, v.Holdings)
}

func TestCompute_AllPricesUnknownGivesZeroShares(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "A")
	ledger.buy(1, 1, 10)
	ledger.addAsset(2, "B")
	ledger.buy(2, 1, 20)

	v := compute(t, ledger, fixedPrices{})

	assert.Equal(t, 0.0, v.TotalPortfolioValue)
	for _, h := range v.Holdings {
		assert.Equal(t, 0.0, h.PercentageShare)
	}
	// Ties keep ledger order
	assert.Equal(t, "A", v.Holdings[0].Asset.Symbol)
	assert.Equal(t, "B", v.Holdings[1].Asset.Symbol)
}

func TestCompute_PercentagesSumToHundred(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 25; round++ {
		ledger := newFakeLedger()
		p := fixedPrices{}
		n := 1 + rng.Intn(30)
		for i := 1; i <= n; i++ {
			symbol := string(rune('a'+i%26)) + string(rune('a'+i/26))
			ledger.addAsset(int64(i), symbol)
			ledger.buy(int64(i), 1+rng.Float64()*1000, 1+rng.Float64()*5000)
			if rng.Intn(3) == 0 {
				ledger.sell(int64(i), 1+rng.Float64()*1000, rng.Float64()*100+1)
			}
			p[symbol] = rng.Float64() * 2000
		}

		v := compute(t, ledger, p)
		sum := 0.0
		for _, h := range v.Holdings {
			sum += h.PercentageShare
		}
		if v.TotalPortfolioValue > 0 {
			assert.InDelta(t, 100, sum, 1e-6, "round %d", round)
		} else {
			assert.Equal(t, 0.0, sum, "round %d", round)
		}

		for i := 1; i < len(v.Holdings); i++ {
			assert.GreaterOrEqual(t, v.Holdings[i-1].PercentageShare, v.Holdings[i].PercentageShare)
		}
	}
}

func TestCompute_IsIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	for i := int64(1); i <= 20; i++ {
		symbol := string(rune('a'+i)) + "x"
		ledger.addAsset(i, symbol)
		ledger.buy(i, float64(i)*3.7, float64(i)*11.3)
		ledger.sell(i, float64(i)*4.1, float64(i)*0.9)
	}
	p := fixedPrices{}
	for _, a := range ledger.assets {
		p[a.Symbol] = float64(a.ID) * 1.1
	}

	first := compute(t, ledger, p)
	second := compute(t, ledger, p)

	assert.Equal(t, first.TotalPortfolioValue, second.TotalPortfolioValue)
	assert.Equal(t, first.Holdings, second.Holdings)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestCompute_LedgerListFailureIsFatal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.assetsErr = errors.New("disk I/O error")

	_, err := NewEngine(ledger, fixedPrices{}, zerolog.Nop()).Compute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.assetsErr)
}

func TestCompute_EventReadFailureIsFatal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "BTC")
	ledger.buy(1, 20000, 2000)
	ledger.addAsset(2, "ETH")
	ioErr := errors.New("database is locked")
	ledger.buysErr[2] = ioErr

	v, err := NewEngine(ledger, fixedPrices{"btc": 30000}, zerolog.Nop()).Compute(context.Background())
	require.Error(t, err)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ioErr)
	assert.Contains(t, err.Error(), "ETH")
}

func TestCompute_LooksUpLowercaseSymbol(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "DoGe")
	ledger.buy(1, 0.1, 10)

	v := compute(t, ledger, fixedPrices{"doge": 0.2})
	assert.InDelta(t, 20, v.Holdings[0].EstimatedValue, 1e-9)
}

// blockingPrices never answers before ctx ends
type blockingPrices struct{}

func (blockingPrices) Get(ctx context.Context, symbol string) float64 {
	<-ctx.Done()
	return 0
}

func TestCompute_SlowPricesDegradeToZero(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addAsset(1, "BTC")
	ledger.buy(1, 20000, 2000)
	ledger.addAsset(2, "ETH")
	ledger.buy(2, 1000, 1000)

	engine := NewEngine(ledger, blockingPrices{}, zerolog.Nop())
	engine.SetPriceTimeout(50 * time.Millisecond)

	start := time.Now()
	v, err := engine.Compute(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, v.Holdings, 2)
	assert.Zero(t, v.TotalPortfolioValue)
	for _, h := range v.Holdings {
		assert.Zero(t, h.CurrentPrice)
		assert.Zero(t, h.PercentageShare)
	}
	assert.InDelta(t, 0.1, holdingBySymbol(t, v, "BTC").RemainingQuantity, 1e-12)
}
