// Package domain provides core domain models and types.
package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for buy and sell events
const DateLayout = "2006-01-02"

// Asset represents a tracked cryptocurrency holding line
type Asset struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"` // Ticker, case-insensitive pricing key
	Logo   string `json:"logo,omitempty"`
}

// PriceKey returns the lowercase symbol used for price lookups
func (a Asset) PriceKey() string {
	return NormalizeSymbol(a.Symbol)
}

// BuyEvent represents a fully-executed purchase
type BuyEvent struct {
	ID             int64   `json:"id"`
	AssetID        int64   `json:"asset_id"`
	UnitPrice      float64 `json:"unit_price"`
	AmountInvested float64 `json:"amount_invested"` // Quote currency spent
	Date           string  `json:"date"`            // YYYY-MM-DD
}

// Quantity returns the number of units purchased.
// A non-positive unit price yields 0.
func (b BuyEvent) Quantity() float64 {
	if b.UnitPrice <= 0 {
		return 0
	}
	return b.AmountInvested / b.UnitPrice
}

// SellEvent represents a fully-executed sale
type SellEvent struct {
	ID         int64   `json:"id"`
	AssetID    int64   `json:"asset_id"`
	UnitPrice  float64 `json:"unit_price"`
	AmountSold float64 `json:"amount_sold"` // Quote currency proceeds
	Date       string  `json:"date"`        // YYYY-MM-DD
}

// Quantity returns the number of units sold.
// A non-positive unit price yields 0.
func (s SellEvent) Quantity() float64 {
	if s.UnitPrice <= 0 {
		return 0
	}
	return s.AmountSold / s.UnitPrice
}

// MarketCoin is one row of the market-data index
type MarketCoin struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Image         string  `json:"image"`
	CurrentPrice  float64 `json:"current_price"`
	MarketCapRank int     `json:"market_cap_rank"`
}

// SearchCoin is a free-text search hit
type SearchCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
	Large         string `json:"large"`
}

// CatalogEntry is a locally stored coin from the top of the index
type CatalogEntry struct {
	CoinID        string    `json:"coin_id"`
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	Logo          string    `json:"logo,omitempty"`
	MarketCapRank int       `json:"market_cap_rank"`
	SyncedAt      time.Time `json:"synced_at"`
}

// NormalizeSymbol lowercases and trims a ticker for use as a price key
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
