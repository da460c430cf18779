package rating

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatdesk/internal/conversation"
	"chatdesk/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler is the HTTP API layer for ratings.
type Handler struct {
	service Service
}

// NewHandler creates a new handler.
func NewHandler(s Service) *Handler {
	return &Handler{
		service: s,
	}
}

// RegisterRoutes attaches the rating endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ratings", h.handleSubmit)
	r.Get("/ratings", h.handleList)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.ConversationID == uuid.Nil || req.MessageID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "conversationId and messageId are required")
		return
	}

	rating, err := h.service.SubmitRating(r.Context(), SubmitRequest{
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		Score:          req.Score,
		Feedback:       req.Feedback,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidScore):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrMessageNotFound), errors.Is(err, conversation.ErrNotFound):
			writeError(w, http.StatusNotFound, "Message not found")
		default:
			writeError(w, http.StatusInternalServerError, "Could not submit rating")
		}
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	convID, err := uuid.Parse(r.URL.Query().Get("conversationId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}
	ratings, err := h.service.ListRatings(r.Context(), convID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not list ratings")
		return
	}
	if ratings == nil {
		ratings = []*domain.Rating{}
	}
	writeJSON(w, http.StatusOK, ratings)
}

// --- DTOs ---

type submitRatingRequest struct {
	ConversationID uuid.UUID `json:"conversationId"`
	MessageID      uuid.UUID `json:"messageId"`
	Score          int       `json:"score"`
	Feedback       string    `json:"feedback"`
}

// --- Helpers ---

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
