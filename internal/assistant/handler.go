package assistant

import (
	"encoding/json"
	"net/http"

	"chatdesk/internal/domain"

	"github.com/go-chi/chi/v5"
)

// Handler is the HTTP API layer for assistants.
type Handler struct {
	service Service
}

// NewHandler creates a new handler.
func NewHandler(s Service) *Handler {
	return &Handler{
		service: s,
	}
}

// RegisterRoutes attaches the assistant endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assistants", h.handleList)
	r.Post("/assistants", h.handleCreate)
	r.Delete("/assistants/{assistantId}", h.handleDelete)
	r.Post("/code-interpreter/download", h.handleDownload)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	defs, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Could not list assistants")
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var def domain.AssistantDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	created, err := h.service.Create(r.Context(), def)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Could not create assistant")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "assistantId")
	ok, err := h.service.Delete(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Could not delete assistant")
		return
	}
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Assistant was not deleted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	url, err := h.service.DownloadCodeInterpreterFile(r.Context(), payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not download the code interpreter file(s)")
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{DownloadURL: url})
}

// writeJSON is a helper function for sending json responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for sending a standardized json error.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
