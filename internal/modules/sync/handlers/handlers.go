// Package handlers provides HTTP handlers for snapshot ingestion and
// whole-document import/export.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/sync"
)

// Handler handles sync HTTP requests
type Handler struct {
	service *sync.Service
	log     zerolog.Logger
}

// NewHandler creates a new sync handler
func NewHandler(service *sync.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "sync").Logger(),
	}
}

// RegisterRoutes registers sync and document routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sync", h.HandleSync)
	r.Get("/portfolio", h.HandleGetPortfolio)
	r.Route("/db", func(r chi.Router) {
		r.Get("/", h.HandleExport)
		r.Put("/", h.HandleImport)
	})
}

// HandleSync applies a guarded snapshot replacement
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	var incoming domain.PortfolioData
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid snapshot payload")
		return
	}
	res, err := h.service.Sync(incoming)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// HandleGetPortfolio returns the current aggregate plus derived totals
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	state := h.service.Export().State
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions":    state.Positions,
		"accounts":     state.Accounts,
		"transactions": state.Transactions,
		"snapshots":    state.Snapshots,
		"totalValue":   state.TotalValue(),
		"lastRefresh":  state.LastRefresh,
	})
}

// HandleExport returns the document in its on-disk envelope
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Export())
}

// HandleImport replaces the document verbatim, bypassing the guards
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	if !json.Valid(raw) {
		h.writeError(w, http.StatusBadRequest, "body must be valid JSON")
		return
	}
	res, err := h.service.Import(raw)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	}
	h.writeError(w, status, apperr.Message(err))
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
