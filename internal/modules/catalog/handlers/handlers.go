// Package handlers provides HTTP handlers for the coin catalog.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/domain"
	"github.com/cryptofolio/cryptofolio/internal/modules/catalog"
	"github.com/cryptofolio/cryptofolio/internal/modules/ledger"
)

// CatalogService is the subset of catalog.Service the handlers need
type CatalogService interface {
	Sync(ctx context.Context) (int, error)
	List(ctx context.Context, query string, limit int) ([]domain.CatalogEntry, error)
	SearchRemote(ctx context.Context, query string) ([]domain.SearchCoin, error)
	AddAsset(ctx context.Context, coinID string) (*domain.Asset, error)
}

// Handler handles catalog HTTP requests
type Handler struct {
	service CatalogService
	log     zerolog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(service CatalogService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "catalog").Logger(),
	}
}

// HandleList handles GET /api/catalog[?q=&limit=]
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.service.List(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list catalog")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// HandleSync handles POST /api/catalog/sync
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Sync(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"coins": n})
}

// HandleAddAsset handles POST /api/catalog/{coinId}/add
func (h *Handler) HandleAddAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.service.AddAsset(r.Context(), chi.URLParam(r, "coinId"))
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ledger.ErrInvalidAsset):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("Failed to add asset from catalog")
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, asset)
}

// HandleSearchRemote handles GET /api/coins/search?q=
func (h *Handler) HandleSearchRemote(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	coins, err := h.service.SearchRemote(r.Context(), q)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, coins)
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
