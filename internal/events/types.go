// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Ledger mutations
	LedgerChanged EventType = "LEDGER_CHANGED"

	// Market data
	PricesPreloaded EventType = "PRICES_PRELOADED"
	CatalogSynced   EventType = "CATALOG_SYNCED"

	// Valuation
	ValuationCompleted EventType = "VALUATION_COMPLETED"
	ValuationFailed    EventType = "VALUATION_FAILED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, in declaration order
var AllTypes = []EventType{
	LedgerChanged,
	PricesPreloaded,
	CatalogSynced,
	ValuationCompleted,
	ValuationFailed,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}
