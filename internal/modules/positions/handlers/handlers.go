// Package handlers provides HTTP handlers for position management.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/modules/positions"
)

// Handler handles position HTTP requests
type Handler struct {
	service *positions.Service
	log     zerolog.Logger
}

// NewHandler creates a new positions handler
func NewHandler(service *positions.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "positions").Logger(),
	}
}

// HandleList returns every position
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleAdd creates a manual position
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req positions.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pos, err := h.service.Add(req)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, pos)
}

// HandleUpdate patches a position by id
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req positions.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pos, err := h.service.Update(chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pos)
}

// HandleDelete removes a position by id
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleSell sells part or all of a position
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	var req positions.SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.service.Sell(chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// HandleTransactions returns the transaction history
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.Transactions()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
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
