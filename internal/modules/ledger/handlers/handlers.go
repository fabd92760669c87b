// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/domain"
	"github.com/cryptofolio/cryptofolio/internal/modules/ledger"
)

// Handler handles ledger HTTP requests
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

type assetRequest struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Logo   string `json:"logo"`
}

type buyRequest struct {
	UnitPrice         float64 `json:"unit_price"`
	AmountInvested    float64 `json:"amount_invested"`
	Date              string  `json:"date"`
	PayWithStablecoin bool    `json:"pay_with_stablecoin"`
}

type sellRequest struct {
	UnitPrice          float64 `json:"unit_price"`
	AmountSold         float64 `json:"amount_sold"`
	Date               string  `json:"date"`
	SettleToStablecoin bool    `json:"settle_to_stablecoin"`
}

// HandleListAssets handles GET /api/assets
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, assets)
}

// HandleCreateAsset handles POST /api/assets
func (h *Handler) HandleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	asset, err := h.service.CreateAsset(r.Context(), domain.Asset{Name: req.Name, Symbol: req.Symbol, Logo: req.Logo})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, asset)
}

// HandleGetAsset handles GET /api/assets/{id}
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleUpdateAsset handles PUT /api/assets/{id}
func (h *Handler) HandleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	asset, err := h.service.UpdateAsset(r.Context(), domain.Asset{ID: id, Name: req.Name, Symbol: req.Symbol, Logo: req.Logo})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleDeleteAsset handles DELETE /api/assets/{id}
func (h *Handler) HandleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAsset(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetHistory handles GET /api/assets/{id}/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// HandleRecordBuy handles POST /api/assets/{id}/buys
func (h *Handler) HandleRecordBuy(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	buy, err := h.service.RecordBuy(r.Context(), ledger.BuyRequest{
		AssetID:           assetID,
		UnitPrice:         req.UnitPrice,
		AmountInvested:    req.AmountInvested,
		Date:              req.Date,
		PayWithStablecoin: req.PayWithStablecoin,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, buy)
}

// HandleUpdateBuy handles PUT /api/buys/{id}
func (h *Handler) HandleUpdateBuy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	buy, err := h.service.UpdateBuy(r.Context(), domain.BuyEvent{
		ID:             id,
		UnitPrice:      req.UnitPrice,
		AmountInvested: req.AmountInvested,
		Date:           req.Date,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, buy)
}

// HandleDeleteBuy handles DELETE /api/buys/{id}
func (h *Handler) HandleDeleteBuy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteBuy(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecordSell handles POST /api/assets/{id}/sells
func (h *Handler) HandleRecordSell(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sell, err := h.service.RecordSell(r.Context(), ledger.SellRequest{
		AssetID:            assetID,
		UnitPrice:          req.UnitPrice,
		AmountSold:         req.AmountSold,
		Date:               req.Date,
		SettleToStablecoin: req.SettleToStablecoin,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sell)
}

// HandleUpdateSell handles PUT /api/sells/{id}
func (h *Handler) HandleUpdateSell(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sell, err := h.service.UpdateSell(r.Context(), domain.SellEvent{
		ID:         id,
		UnitPrice:  req.UnitPrice,
		AmountSold: req.AmountSold,
		Date:       req.Date,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sell)
}

// HandleDeleteSell handles DELETE /api/sells/{id}
func (h *Handler) HandleDeleteSell(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSell(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetStablecoinBalance handles GET /api/assets/stablecoin/balance
func (h *Handler) HandleGetStablecoinBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.StablecoinBalance(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  h.service.StablecoinSymbol(),
		"balance": balance,
	})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps ledger errors to HTTP statuses
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidAsset), errors.Is(err, ledger.ErrInvalidEvent):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientStablecoin), errors.Is(err, ledger.ErrStablecoinMissing):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msg("Ledger operation failed")
		h.writeError(w, http.StatusInternalServerError, "Ledger operation failed")
	}
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
