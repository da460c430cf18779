package llm

import (
	"encoding/json"
	"net/http"

	"chatdesk/internal/domain"

	"github.com/go-chi/chi/v5"
)

// ModelLister is what the handler needs from the router.
type ModelLister interface {
	Models() []domain.Model
}

// Handler is the http api layer for model discovery.
type Handler struct {
	models ModelLister
}

// NewHandler creates a new handler.
func NewHandler(m ModelLister) *Handler {
	return &Handler{
		models: m,
	}
}

// RegisterRoutes attaches the llm endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/models", h.handleListModels)
}

// --- DTOs ---

type modelsResponse struct {
	Models []domain.Model `json:"models"`
}

// handleListModels returns the models that can be chatted with.
func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modelsResponse{Models: h.models.Models()})
}

// writeJSON is a helper function for sending json responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
