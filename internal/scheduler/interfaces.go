package scheduler

import (
	"context"

	"github.com/cryptofolio/cryptofolio/internal/events"
)

// PriceCache is the part of the price cache the preload job drives
type PriceCache interface {
	Preload(ctx context.Context)
	Len() int
}

// CatalogSyncer refreshes the local coin catalog
type CatalogSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// Recomputer requests a fresh portfolio valuation
type Recomputer interface {
	RequestRecompute()
}

// EventEmitter publishes job outcomes
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
	EmitError(module string, err error, context map[string]interface{})
}
