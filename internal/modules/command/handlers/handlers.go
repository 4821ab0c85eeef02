// Package handlers provides the HTTP entrypoint for natural-language
// commands.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/modules/command"
)

// Handler handles command HTTP requests
type Handler struct {
	service *command.Service
	log     zerolog.Logger
}

// NewHandler creates a new command handler
func NewHandler(service *command.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "command").Logger(),
	}
}

// RegisterRoutes registers the command route
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/command", h.HandleCommand)
}

type commandRequest struct {
	Text string `json:"text"`
}

// HandleCommand resolves a free-form command into a proposed action
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.service.Resolve(r.Context(), req.Text)
	if err != nil {
		status := apperr.Status(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("command resolution failed")
		}
		h.writeError(w, status, apperr.Message(err))
		return
	}
	h.writeJSON(w, http.StatusOK, res)
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
