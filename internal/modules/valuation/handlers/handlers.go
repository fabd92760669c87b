// Package handlers provides HTTP handlers for portfolio valuation.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/modules/valuation"
)

// ValuationService is the subset of valuation.Service the handlers need
type ValuationService interface {
	Valuate(ctx context.Context, preload bool) (*valuation.Valuation, error)
	Last() *valuation.Valuation
	Concentration(ctx context.Context) (valuation.Concentration, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service ValuationService
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service ValuationService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio re-primes prices (unless ?preload=false) and returns a fresh valuation.
// If the ledger cannot be read it answers 503 with the last good valuation as "stale".
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	preload := true
	if raw := r.URL.Query().Get("preload"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "preload must be a boolean")
			return
		}
		preload = parsed
	}

	v, err := h.service.Valuate(r.Context(), preload)
	if err != nil {
		h.writeUnavailable(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

// HandleGetLast returns the last successful valuation without recomputing
func (h *Handler) HandleGetLast(w http.ResponseWriter, r *http.Request) {
	last := h.service.Last()
	if last == nil {
		h.writeError(w, http.StatusNotFound, "No valuation computed yet")
		return
	}
	h.writeJSON(w, http.StatusOK, last)
}

// HandleGetConcentration returns Herfindahl and top-holding metrics
func (h *Handler) HandleGetConcentration(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Concentration(r.Context())
	if err != nil {
		h.writeUnavailable(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) writeUnavailable(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("Valuation unavailable")
	resp := map[string]interface{}{
		"error": err.Error(),
		"retry": true,
	}
	if last := h.service.Last(); last != nil {
		resp["stale"] = last
	}
	h.writeJSON(w, http.StatusServiceUnavailable, resp)
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
