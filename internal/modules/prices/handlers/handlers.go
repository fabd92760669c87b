// Package handlers provides HTTP handlers for the price cache.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PriceCache is the subset of prices.Cache the handlers need
type PriceCache interface {
	Get(ctx context.Context, symbol string) float64
	Refresh(ctx context.Context, symbol string) float64
	Peek(symbol string) (float64, bool)
	Preload(ctx context.Context)
	Len() int
	LastPreload() time.Time
}

// Handler handles price HTTP requests
type Handler struct {
	cache PriceCache
	log   zerolog.Logger
}

// NewHandler creates a new price handler
func NewHandler(cache PriceCache, log zerolog.Logger) *Handler {
	return &Handler{
		cache: cache,
		log:   log.With().Str("handler", "prices").Logger(),
	}
}

type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Cached bool    `json:"cached"` // true when served without a feed request
	Known  bool    `json:"known"`  // false when the price is 0 (unknown)
}

// HandleGetPrice returns the cached price, fetching it on a miss
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToLower(chi.URLParam(r, "symbol"))
	if strings.TrimSpace(symbol) == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	_, cached := h.cache.Peek(symbol)
	price := h.cache.Get(r.Context(), symbol)

	h.writeJSON(w, http.StatusOK, priceResponse{
		Symbol: symbol,
		Price:  price,
		Cached: cached,
		Known:  price > 0,
	})
}

// HandleRefreshPrice forces a feed lookup for one symbol
func (h *Handler) HandleRefreshPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToLower(chi.URLParam(r, "symbol"))
	if strings.TrimSpace(symbol) == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	price := h.cache.Refresh(r.Context(), symbol)
	h.writeJSON(w, http.StatusOK, priceResponse{
		Symbol: symbol,
		Price:  price,
		Known:  price > 0,
	})
}

// HandlePreload re-primes the whole cache from the feed
func (h *Handler) HandlePreload(w http.ResponseWriter, r *http.Request) {
	before := h.cache.LastPreload()
	h.cache.Preload(r.Context())
	after := h.cache.LastPreload()

	resp := map[string]interface{}{
		"completed": after.After(before),
		"cached":    h.cache.Len(),
	}
	if !after.IsZero() {
		resp["last_preload"] = after.UTC().Format(time.RFC3339)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetStatus reports cache size and freshness
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"cached": h.cache.Len(),
	}
	if last := h.cache.LastPreload(); !last.IsZero() {
		resp["last_preload"] = last.UTC().Format(time.RFC3339)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
