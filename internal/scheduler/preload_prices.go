package scheduler

import (
	"context"
	"time"

	"github.com/cryptofolio/cryptofolio/internal/events"
)

// PreloadPricesJob re-primes the price cache from the market index
// and asks for a fresh valuation afterwards.
type PreloadPricesJob struct {
	JobBase
	cache      PriceCache
	recomputer Recomputer
	events     EventEmitter
	timeout    time.Duration
}

// NewPreloadPricesJob creates a new PreloadPricesJob. recomputer and emitter may be nil.
func NewPreloadPricesJob(cache PriceCache, recomputer Recomputer, emitter EventEmitter) *PreloadPricesJob {
	return &PreloadPricesJob{
		JobBase:    newJobBase(),
		cache:      cache,
		recomputer: recomputer,
		events:     emitter,
		timeout:    defaultJobTimeout,
	}
}

// Name returns the job name
func (j *PreloadPricesJob) Name() string {
	return "preload_prices"
}

// Run executes the preload. Feed failures are absorbed by the cache.
func (j *PreloadPricesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	j.cache.Preload(ctx)
	cached := j.cache.Len()

	j.log.Info().
		Int("cached", cached).
		Dur("duration", time.Since(start)).
		Msg("Price preload finished")

	if j.events != nil {
		j.events.EmitTyped("prices", &events.PricesPreloadedData{Cached: cached})
	}
	if j.recomputer != nil {
		j.recomputer.RequestRecompute()
	}
	return nil
}
