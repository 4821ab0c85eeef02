package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all position routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/positions", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleAdd)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/sell", h.HandleSell)
	})
	r.Get("/transactions", h.HandleTransactions)
}
