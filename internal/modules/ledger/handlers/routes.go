package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.HandleListAssets)
		r.Post("/", h.HandleCreateAsset)
		r.Get("/stablecoin/balance", h.HandleGetStablecoinBalance)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetAsset)
			r.Put("/", h.HandleUpdateAsset)
			r.Delete("/", h.HandleDeleteAsset)
			r.Get("/history", h.HandleGetHistory) // Buys and sells
			r.Post("/buys", h.HandleRecordBuy)
			r.Post("/sells", h.HandleRecordSell)
		})
	})

	r.Route("/buys/{id}", func(r chi.Router) {
		r.Put("/", h.HandleUpdateBuy)
		r.Delete("/", h.HandleDeleteBuy)
	})

	r.Route("/sells/{id}", func(r chi.Router) {
		r.Put("/", h.HandleUpdateSell)
		r.Delete("/", h.HandleDeleteSell)
	})
}
