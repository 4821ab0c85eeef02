// Package handlers provides HTTP handlers for account management.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/modules/accounts"
)

// Handler handles account HTTP requests
type Handler struct {
	service *accounts.Service
	log     zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(service *accounts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "accounts").Logger(),
	}
}

// HandleList returns every account
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleAdd creates an account
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req accounts.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	acc, err := h.service.Add(req)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, acc)
}

// HandleUpdate patches an account by id
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req accounts.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	acc, err := h.service.Update(chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

// HandleDelete removes an account and its positions
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Delete(chi.URLParam(r, "id"))
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
