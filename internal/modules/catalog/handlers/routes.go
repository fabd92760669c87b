package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers catalog and remote search routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/sync", h.HandleSync)
		r.Post("/{coinId}/add", h.HandleAddAsset)
	})

	r.Get("/coins/search", h.HandleSearchRemote)
}
