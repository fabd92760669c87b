package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuyEvent_Quantity(t *testing.T) {
	assert.InDelta(t, 0.1, BuyEvent{UnitPrice: 20000, AmountInvested: 2000}.Quantity(), 1e-12)
	assert.Equal(t, 0.0, BuyEvent{UnitPrice: 0, AmountInvested: 2000}.Quantity())
	assert.Equal(t, 0.0, BuyEvent{UnitPrice: -5, AmountInvested: 2000}.Quantity())
}

func TestSellEvent_Quantity(t *testing.T) {
	assert.InDelta(t, 0.02, SellEvent{UnitPrice: 25000, AmountSold: 500}.Quantity(), 1e-12)
	assert.Equal(t, 0.0, SellEvent{UnitPrice: 0, AmountSold: 500}.Quantity())
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "btc", NormalizeSymbol(" BTC "))
	assert.Equal(t, "eth", Asset{Symbol: "Eth"}.PriceKey())
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2024-01-31"))
	assert.False(t, ValidDate("2024-02-30"))
	assert.False(t, ValidDate("31/01/2024"))
	assert.False(t, ValidDate(""))
}
