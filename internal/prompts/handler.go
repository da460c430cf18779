package prompts

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler is the HTTP API layer for base prompts.
type Handler struct {
	service Service
}

// NewHandler creates a new handler.
func NewHandler(s Service) *Handler {
	return &Handler{
		service: s,
	}
}

// RegisterRoutes attaches the base prompts endpoint to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/base-prompts", h.handleGet)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.GetBasePrompts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Could not fetch base prompts"})
		return
	}
	writeJSON(w, http.StatusOK, basePromptsResponse{Data: data})
}

// --- DTOs ---

type basePromptsResponse struct {
	Data json.RawMessage `json:"data"`
}

// writeJSON is a helper function for sending json responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
