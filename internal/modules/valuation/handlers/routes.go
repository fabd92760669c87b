package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)                  // Preload + fresh valuation
		r.Get("/last", h.HandleGetLast)                   // Last good valuation
		r.Get("/concentration", h.HandleGetConcentration) // Concentration metrics
	})
}
