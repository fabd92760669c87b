package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all price routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/prices", func(r chi.Router) {
		r.Get("/", h.HandleGetStatus)                     // Cache size and last preload
		r.Post("/preload", h.HandlePreload)               // Re-prime from the feed
		r.Get("/{symbol}", h.HandleGetPrice)              // Cache-first lookup
		r.Post("/{symbol}/refresh", h.HandleRefreshPrice) // Force a feed lookup
	})
}
