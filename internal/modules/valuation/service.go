package valuation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/events"
)

// DefaultPreloadTimeout bounds the preload that precedes a requested valuation
const DefaultPreloadTimeout = 4 * time.Second

// Preloader re-primes the price cache
type Preloader interface {
	Preload(ctx context.Context)
}

// EventEmitter publishes valuation outcomes
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Subscriber is the part of the event bus the service listens on
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler) uint64
	Unsubscribe(eventType events.EventType, id uint64)
}

// Service runs valuations and remembers the last successful one.
type Service struct {
	engine         *Engine
	preloader      Preloader
	preloadTimeout time.Duration
	events         EventEmitter
	log            zerolog.Logger

	mu   sync.RWMutex
	last *Valuation

	trigger chan struct{}
}

// NewService creates a new valuation service
func NewService(engine *Engine, preloader Preloader, emitter EventEmitter, log zerolog.Logger) *Service {
	return &Service{
		engine:         engine,
		preloader:      preloader,
		preloadTimeout: DefaultPreloadTimeout,
		events:         emitter,
		log:            log.With().Str("service", "valuation").Logger(),
		trigger:        make(chan struct{}, 1),
	}
}

// SetPreloadTimeout changes how long Valuate waits on the preload
func (s *Service) SetPreloadTimeout(d time.Duration) {
	if d > 0 {
		s.preloadTimeout = d
	}
}

// Valuate optionally re-primes the price cache, then runs the engine.
// On failure the last good valuation is left untouched, and a pass that
// started before the remembered one never replaces it.
func (s *Service) Valuate(ctx context.Context, preload bool) (*Valuation, error) {
	if preload && s.preloader != nil {
		preloadCtx, cancel := context.WithTimeout(ctx, s.preloadTimeout)
		s.preloader.Preload(preloadCtx)
		cancel()
	}

	v, err := s.engine.Compute(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Valuation failed")
		s.emit(&events.ValuationFailedData{Error: err.Error()})
		return nil, err
	}

	s.mu.Lock()
	if s.last == nil || v.ComputedAt.After(s.last.ComputedAt) {
		s.last = v
	}
	s.mu.Unlock()

	s.emit(&events.ValuationCompletedData{
		RunID:      v.RunID,
		Assets:     len(v.Holdings),
		TotalValue: v.TotalPortfolioValue,
	})
	return v, nil
}

// Last returns the most recent successful valuation, or nil
func (s *Service) Last() *Valuation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Concentration values the portfolio without a preload and summarises its spread
func (s *Service) Concentration(ctx context.Context) (Concentration, error) {
	v, err := s.Valuate(ctx, false)
	if err != nil {
		return Concentration{}, err
	}
	return ComputeConcentration(v), nil
}

// RequestRecompute asks the background loop for a fresh valuation.
// Requests made while one is pending are coalesced.
func (s *Service) RequestRecompute() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run recomputes on every request until ctx is done.
// Ledger changes published on bus trigger a request.
func (s *Service) Run(ctx context.Context, bus Subscriber) {
	var subID uint64
	if bus != nil {
		subID = bus.Subscribe(events.LedgerChanged, func(*events.Event) {
			s.RequestRecompute()
		})
		defer bus.Unsubscribe(events.LedgerChanged, subID)
	}

	s.log.Info().Msg("Valuation recompute loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Valuation recompute loop stopped")
			return
		case <-s.trigger:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			_, _ = s.Valuate(runCtx, false)
			cancel()
		}
	}
}

func (s *Service) emit(data events.EventData) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped("valuation", data)
}
