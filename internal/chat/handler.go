package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"chatdesk/internal/conversation"
	"chatdesk/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler is the HTTP API layer for sending messages.
type Handler struct {
	service Service
}

// NewHandler creates a new handler.
func NewHandler(s Service) *Handler {
	return &Handler{
		service: s,
	}
}

// RegisterRoutes attaches the chat endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/send", h.handleSend)
	r.Post("/chat/abort/{conversationID}", h.handleAbort)
}

// --- DTOs ---

type sendRequest struct {
	SendRequest
	// ConfirmCost approves an expensive request up front.
	ConfirmCost bool `json:"confirmCost,omitempty"`
}

type costResponse struct {
	Error    string       `json:"error"`
	Estimate CostEstimate `json:"estimate"`
}

type doneEvent struct {
	Text           string    `json:"text"`
	Aborted        bool      `json:"aborted"`
	ConversationID uuid.UUID `json:"conversationId"`
}

// handleSend streams the send as server-sent events. Errors that happen
// before the first event get a normal JSON error response.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.ConversationID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "Missing conversationId")
		return
	}
	if strings.TrimSpace(req.Message.Content) == "" {
		writeError(w, http.StatusBadRequest, "Message content cannot be empty")
		return
	}

	sink := newSSESink(w, req.ConfirmCost)
	result, err := h.service.Send(r.Context(), req.SendRequest, sink)
	if err != nil {
		if sink.started {
			sink.event("error", map[string]string{"error": err.Error()})
			return
		}
		writeSendError(w, err)
		return
	}
	sink.event("done", doneEvent{
		Text:           result.Text,
		Aborted:        result.Aborted,
		ConversationID: req.ConversationID,
	})
}

func (h *Handler) handleAbort(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}
	if !h.service.Abort(id) {
		writeError(w, http.StatusNotFound, "No message is being sent in this conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "aborted"})
}

func writeSendError(w http.ResponseWriter, err error) {
	var costErr *CostConfirmationError
	var transportErr *TransportError
	switch {
	case errors.As(err, &costErr):
		writeJSON(w, http.StatusConflict, costResponse{Error: costErr.Error(), Estimate: costErr.Estimate})
	case errors.Is(err, ErrSendInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusNotFound, "Conversation not found")
	case errors.As(err, &transportErr):
		writeError(w, http.StatusBadGateway, transportErr.Status)
	default:
		writeError(w, http.StatusInternalServerError, "Could not send message")
	}
}

// sseSink writes send progress as server-sent events. The stream is only
// started by the first event so early failures can still use a status code.
type sseSink struct {
	w        http.ResponseWriter
	flusher  http.Flusher
	confirm  bool
	started  bool
	messages int
}

func newSSESink(w http.ResponseWriter, confirm bool) *sseSink {
	f, _ := w.(http.Flusher)
	return &sseSink{w: w, flusher: f, confirm: confirm}
}

func (s *sseSink) event(name string, data any) {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Warn("chat_sse_encode_failed", "event", name, "error", err)
		return
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *sseSink) Loading(on bool) {
	s.event("loading", on)
}

func (s *sseSink) Streaming(on bool) {
	s.event("streaming", on)
}

func (s *sseSink) Status(st domain.Status) {
	s.event("status", st)
}

func (s *sseSink) ResetStatus() {
	s.event("status_reset", struct{}{})
}

func (s *sseSink) Alert(message string) {
	s.event("alert", map[string]string{"message": message})
}

// Confirm cannot prompt over a one-way stream; the caller approves with confirmCost.
func (s *sseSink) Confirm(CostEstimate) bool { return s.confirm }

// Conversation sends the whole conversation when messages are added and
// only the growing last message otherwise.
func (s *sseSink) Conversation(conv *domain.Conversation) {
	if len(conv.Messages) != s.messages {
		s.messages = len(conv.Messages)
		s.event("conversation", conv)
		return
	}
	if last := conv.LastMessage(); last != nil {
		s.event("message", last)
	}
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
