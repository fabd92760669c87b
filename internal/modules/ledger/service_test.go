package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cryptofolio/cryptofolio/internal/domain"
	"github.com/cryptofolio/cryptofolio/internal/events"
)

// MockEventEmitter is a mock implementation of EventEmitter
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitTyped(module string, data events.EventData) {
	m.Called(module, data)
}

func newTestService(t *testing.T) (*Service, *Repository, *MockEventEmitter) {
	t.Helper()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	emitter := &MockEventEmitter{}
	emitter.On("EmitTyped", "ledger", mock.Anything).Return()
	svc := NewService(repo, emitter, "USDC", zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return svc, repo, emitter
}

func mustAsset(t *testing.T, svc *Service, name, symbol string) *domain.Asset {
	t.Helper()
	asset, err := svc.CreateAsset(context.Background(), domain.Asset{Name: name, Symbol: symbol})
	require.NoError(t, err)
	return asset
}

func TestService_CreateAssetValidates(t *testing.T) {
	svc, _, emitter := newTestService(t)

	_, err := svc.CreateAsset(context.Background(), domain.Asset{Name: " ", Symbol: "btc"})
	assert.ErrorIs(t, err, ErrInvalidAsset)
	_, err = svc.CreateAsset(context.Background(), domain.Asset{Name: "Bitcoin"})
	assert.ErrorIs(t, err, ErrInvalidAsset)
	emitter.AssertNotCalled(t, "EmitTyped", mock.Anything, mock.Anything)

	asset := mustAsset(t, svc, " Bitcoin ", "BTC")
	assert.Equal(t, "Bitcoin", asset.Name)
	assert.NotZero(t, asset.ID)

	emitter.AssertCalled(t, "EmitTyped", "ledger", &events.LedgerChangedData{
		Action: "created", Entity: "asset", ID: asset.ID, AssetID: asset.ID,
	})
}

func TestService_RecordBuyValidates(t *testing.T) {
	svc, _, _ := newTestService(t)
	btc := mustAsset(t, svc, "Bitcoin", "btc")
	ctx := context.Background()

	cases := []BuyRequest{
		{AssetID: btc.ID, UnitPrice: 0, AmountInvested: 100},
		{AssetID: btc.ID, UnitPrice: -1, AmountInvested: 100},
		{AssetID: btc.ID, UnitPrice: 100, AmountInvested: 0},
		{AssetID: btc.ID, UnitPrice: 100, AmountInvested: 10, Date: "15/03/2024"},
	}
	for _, req := range cases {
		_, err := svc.RecordBuy(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	}

	_, err := svc.RecordBuy(ctx, BuyRequest{AssetID: 999, UnitPrice: 1, AmountInvested: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_RecordBuyDefaultsDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	btc := mustAsset(t, svc, "Bitcoin", "btc")

	buy, err := svc.RecordBuy(context.Background(), BuyRequest{AssetID: btc.ID, UnitPrice: 20000, AmountInvested: 2000})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", buy.Date)
	assert.InDelta(t, 0.1, buy.Quantity(), 1e-12)
}

func TestService_SellSettlesToStablecoin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	btc := mustAsset(t, svc, "Bitcoin", "btc")
	usdc := mustAsset(t, svc, "USD Coin", "usdc")

	sell, err := svc.RecordSell(ctx, SellRequest{
		AssetID: btc.ID, UnitPrice: 25000, AmountSold: 500, Date: "2024-02-01", SettleToStablecoin: true,
	})
	require.NoError(t, err)
	assert.NotZero(t, sell.ID)

	buys, err := repo.ListBuys(ctx, usdc.ID)
	require.NoError(t, err)
	require.Len(t, buys, 1)
	assert.Equal(t, 1.0, buys[0].UnitPrice)
	assert.Equal(t, 500.0, buys[0].AmountInvested)
	assert.Equal(t, "2024-02-01", buys[0].Date)

	balance, err := svc.StablecoinBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, balance, 1e-9)
}

func TestService_SettlementWithoutStablecoinRollsBack(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	btc := mustAsset(t, svc, "Bitcoin", "btc")

	_, err := svc.RecordSell(ctx, SellRequest{
		AssetID: btc.ID, UnitPrice: 25000, AmountSold: 500, Date: "2024-02-01", SettleToStablecoin: true,
	})
	assert.ErrorIs(t, err, ErrStablecoinMissing)

	sells, err := repo.ListSells(ctx, btc.ID)
	require.NoError(t, err)
	assert.Empty(t, sells)
}

func TestService_BuyPaidWithStablecoin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	eth := mustAsset(t, svc, "Ethereum", "eth")
	usdc := mustAsset(t, svc, "USD Coin", "USDC")

	_, err := svc.RecordBuy(ctx, BuyRequest{AssetID: usdc.ID, UnitPrice: 1, AmountInvested: 1000, Date: "2024-01-01"})
	require.NoError(t, err)

	_, err = svc.RecordBuy(ctx, BuyRequest{
		AssetID: eth.ID, UnitPrice: 2000, AmountInvested: 600, Date: "2024-01-05", PayWithStablecoin: true,
	})
	require.NoError(t, err)

	sells, err := repo.ListSells(ctx, usdc.ID)
	require.NoError(t, err)
	require.Len(t, sells, 1)
	assert.Equal(t, 600.0, sells[0].AmountSold)
	assert.Equal(t, 1.0, sells[0].UnitPrice)

	balance, err := svc.StablecoinBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, balance, 1e-9)
}

func TestService_BuyPaidWithStablecoinInsufficient(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	eth := mustAsset(t, svc, "Ethereum", "eth")
	usdc := mustAsset(t, svc, "USD Coin", "usdc")

	_, err := svc.RecordBuy(ctx, BuyRequest{AssetID: usdc.ID, UnitPrice: 1, AmountInvested: 100, Date: "2024-01-01"})
	require.NoError(t, err)

	_, err = svc.RecordBuy(ctx, BuyRequest{
		AssetID: eth.ID, UnitPrice: 2000, AmountInvested: 600, Date: "2024-01-05", PayWithStablecoin: true,
	})
	assert.ErrorIs(t, err, ErrInsufficientStablecoin)

	buys, err := repo.ListBuys(ctx, eth.ID)
	require.NoError(t, err)
	assert.Empty(t, buys)
	sells, err := repo.ListSells(ctx, usdc.ID)
	require.NoError(t, err)
	assert.Empty(t, sells)
}

func TestService_StablecoinCannotSettleIntoItself(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	usdc := mustAsset(t, svc, "USD Coin", "usdc")

	_, err := svc.RecordSell(ctx, SellRequest{
		AssetID: usdc.ID, UnitPrice: 1, AmountSold: 10, Date: "2024-01-01", SettleToStablecoin: true,
	})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestService_UpdateAndDeleteEvents(t *testing.T) {
	svc, repo, emitter := newTestService(t)
	ctx := context.Background()
	btc := mustAsset(t, svc, "Bitcoin", "btc")

	buy, err := svc.RecordBuy(ctx, BuyRequest{AssetID: btc.ID, UnitPrice: 20000, AmountInvested: 2000, Date: "2024-01-01"})
	require.NoError(t, err)

	updated, err := svc.UpdateBuy(ctx, domain.BuyEvent{ID: buy.ID, UnitPrice: 21000, AmountInvested: 2100, Date: "2024-01-02"})
	require.NoError(t, err)
	assert.Equal(t, btc.ID, updated.AssetID)

	_, err = svc.UpdateBuy(ctx, domain.BuyEvent{ID: buy.ID, UnitPrice: 0, AmountInvested: 2100, Date: "2024-01-02"})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	sell, err := svc.RecordSell(ctx, SellRequest{AssetID: btc.ID, UnitPrice: 25000, AmountSold: 500, Date: "2024-02-01"})
	require.NoError(t, err)
	_, err = svc.UpdateSell(ctx, domain.SellEvent{ID: sell.ID, UnitPrice: 25000, AmountSold: 250, Date: "2024-02-01"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSell(ctx, sell.ID))
	require.NoError(t, svc.DeleteBuy(ctx, buy.ID))
	assert.ErrorIs(t, svc.DeleteBuy(ctx, buy.ID), ErrNotFound)

	buys, err := repo.ListBuys(ctx, btc.ID)
	require.NoError(t, err)
	assert.Empty(t, buys)

	emitter.AssertCalled(t, "EmitTyped", "ledger", &events.LedgerChangedData{
		Action: "deleted", Entity: "buy", ID: buy.ID, AssetID: btc.ID,
	})
}

func TestService_History(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	btc := mustAsset(t, svc, "Bitcoin", "btc")

	_, err := svc.RecordBuy(ctx, BuyRequest{AssetID: btc.ID, UnitPrice: 20000, AmountInvested: 2000, Date: "2024-01-01"})
	require.NoError(t, err)
	_, err = svc.RecordSell(ctx, SellRequest{AssetID: btc.ID, UnitPrice: 25000, AmountSold: 500, Date: "2024-02-01"})
	require.NoError(t, err)

	history, err := svc.History(ctx, btc.ID)
	require.NoError(t, err)
	assert.Equal(t, "btc", history.Asset.Symbol)
	assert.Len(t, history.Buys, 1)
	assert.Len(t, history.Sells, 1)

	_, err = svc.History(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_NilEmitter(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	svc := NewService(repo, nil, "usdc", zerolog.Nop())

	_, err := svc.CreateAsset(context.Background(), domain.Asset{Name: "Bitcoin", Symbol: "btc"})
	assert.NoError(t, err)
	assert.Equal(t, "usdc", svc.StablecoinSymbol())
}
