package chat

//go:generate mockgen -destination=./service_mock_test.go -package=chat -source=service.go Service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"chatdesk/internal/domain"

	"dario.cat/mergo"
	"github.com/google/uuid"
)

// Service sends messages and streams the responses back into conversations.
type Service interface {
	// Send appends req.Message to the conversation and streams the
	// assistant response, reporting progress to sink. An aborted send
	// returns the text received so far with Result.Aborted set.
	Send(ctx context.Context, req SendRequest, sink Sink) (*Result, error)
	// Abort stops the in-flight send for a conversation. It reports
	// whether there was one.
	Abort(conversationID uuid.UUID) bool
}

// CompletionFunc is called with the request and the final text of every finished send.
type CompletionFunc func(ctx context.Context, body *ChatBody, text string)

type Option func(*service)

// WithHooks sets the tag hooks run on finished responses.
func WithHooks(h *Hooks) Option {
	return func(s *service) { s.hooks = h }
}

// WithCompletion registers a post-processing callback.
func WithCompletion(fn CompletionFunc) Option {
	return func(s *service) { s.onComplete = append(s.onComplete, fn) }
}

type service struct {
	conversations ConversationStore
	client        Client
	settings      Settings
	hooks         *Hooks
	onComplete    []CompletionFunc

	mu       sync.Mutex
	inflight map[uuid.UUID]*sendState
}

// NewService creates a new chat send service.
func NewService(conversations ConversationStore, client Client, settings Settings, opts ...Option) Service {
	s := &service{
		conversations: conversations,
		client:        client,
		settings:      settings,
		inflight:      make(map[uuid.UUID]*sendState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sendState tracks one in-flight send so it can be aborted.
type sendState struct {
	aborted atomic.Bool
	cancel  context.CancelFunc
}

func (s *service) begin(ctx context.Context, id uuid.UUID) (context.Context, *sendState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return nil, nil, ErrSendInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	st := &sendState{cancel: cancel}
	s.inflight[id] = st
	return ctx, st, nil
}

func (s *service) end(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.inflight[id]; ok {
		st.cancel()
		delete(s.inflight, id)
	}
}

func (s *service) Abort(conversationID uuid.UUID) bool {
	s.mu.Lock()
	st, ok := s.inflight[conversationID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	st.aborted.Store(true)
	st.cancel()
	return true
}

// metaHandler applies stream control events to the send in progress.
type metaHandler struct {
	sink       Sink
	stopped    func() bool
	mu         sync.Mutex
	outOfOrder bool
	state      map[string]any
}

func (m *metaHandler) Status(status domain.Status) {
	if status.ID == "" {
		status.ID = uuid.NewString()
	}
	m.sink.Status(status)
}

func (m *metaHandler) Mode(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outOfOrder = mode == OutOfOrderMode
}

func (m *metaHandler) State(state map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := mergo.Merge(&m.state, state, mergo.WithOverride); err != nil {
		slog.Warn("chat_state_merge_failed", "error", err)
	}
}

func (m *metaHandler) ShouldAbort() bool {
	return m.stopped()
}

func (m *metaHandler) isOutOfOrder() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outOfOrder
}

// snapshot copies the merged state for storing on a message.
func (m *metaHandler) snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.state))
	for k, v := range m.state {
		out[k] = v
	}
	return out
}

func (s *service) Send(ctx context.Context, req SendRequest, sink Sink) (*Result, error) {
	if sink == nil {
		sink = NopSink{}
	}
	ctx, st, err := s.begin(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	defer s.end(req.ConversationID)

	stored, err := s.conversations.Get(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("could not load conversation: %w", err)
	}
	conv := stored.Clone()

	ragOnly, _ := req.Options["ragOnly"].(bool)
	if !ragOnly && len(req.Documents) > 0 {
		est := EstimateCost(conv.Model, req.Documents)
		if s.settings.needsConfirmation(est) && !sink.Confirm(est) {
			return nil, &CostConfirmationError{Estimate: est}
		}
	}

	msg := req.Message
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Role == "" {
		msg.Role = domain.RoleUser
	}
	// A negative count deletes nothing.
	keep := len(conv.Messages) - max(req.DeleteCount, 0)
	if keep < 0 {
		keep = 0
	}
	conv.Messages = append(conv.Messages[:keep], msg)

	sink.Conversation(conv)
	sink.Loading(true)
	sink.Streaming(true)

	body := s.settings.buildBody(conv, req, msg)
	msgType, content, options := ParseMessageType(msg.Content)
	body.Messages[len(body.Messages)-1].Content = content
	if req.Endpoint != "" {
		body.Endpoint = req.Endpoint
	}

	stopped := func() bool { return st.aborted.Load() || ctx.Err() != nil }
	meta := &metaHandler{sink: sink, stopped: stopped, state: map[string]any{}}

	logger := slog.With("conversation_id", conv.ID, "model", conv.Model.ID, "type", string(msgType))
	logger.Info("chat_send_start", "messages", len(body.Messages), "data_sources", len(body.DataSources))

	stream, err := invoke(ctx, s.client, msgType, body, options, meta)
	if err != nil {
		sink.Loading(false)
		sink.Streaming(false)
		sink.Alert(alertText(err))
		logger.Error("chat_send_failed", "error", err)
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer stream.Close()

	sink.Loading(false)
	sink.ResetStatus()

	conv.Messages = append(conv.Messages, domain.Message{
		ID:   uuid.New(),
		Role: domain.RoleAssistant,
		Data: &domain.MessageData{State: meta.snapshot()},
	})
	sink.Conversation(conv)

	acc := newAccumulator(s.settings.MaxPendingChunks)
	// persistence must outlive an aborted request context
	saveCtx := context.WithoutCancel(ctx)
	aborted := false

	for {
		if stopped() {
			aborted = true
			break
		}
		if !stream.Next() {
			if stopped() {
				aborted = true
				break
			}
			if err := stream.Err(); err != nil {
				return s.failStream(saveCtx, conv, acc.Text(), err, sink, logger)
			}
			break
		}

		chunk := stream.Chunk()
		if meta.isOutOfOrder() {
			if err := acc.AddOutOfOrder(chunk); err != nil {
				return s.failStream(saveCtx, conv, acc.Text(), err, sink, logger)
			}
		} else if acc.AddChunk(chunk) {
			conv.CodeInterpreterAssistantID = acc.assistantID
			sink.Conversation(conv)
			continue
		}

		s.applyText(conv, acc, meta)
		sink.Conversation(conv)
		if err := s.conversations.Save(saveCtx, conv); err != nil {
			logger.Warn("chat_persist_failed", "error", err)
		}
	}

	s.applyText(conv, acc, meta)
	text := acc.Text()
	for _, fn := range s.onComplete {
		fn(saveCtx, body, text)
	}

	if hook := s.hooks.Find(conv.Tags); hook != nil {
		updated := text
		if out, ok := hook.Exec(conv, text); ok && out != "" {
			updated = out
		}
		last := conv.LastMessage()
		if disclaimer, _ := last.Data.State["currentAssistantDisclaimer"].(string); disclaimer != "" {
			updated += "\n\n" + disclaimer
		}
		last.Content = updated
		sink.Conversation(conv)
	}

	if err := s.conversations.Save(saveCtx, conv); err != nil {
		logger.Error("chat_persist_failed", "error", err)
		sink.Streaming(false)
		sink.ResetStatus()
		return &Result{Text: text, Aborted: aborted, Conversation: conv}, fmt.Errorf("could not save conversation: %w", err)
	}
	sink.Streaming(false)
	sink.ResetStatus()

	logger.Info("chat_send_done", "chars", len(text), "aborted", aborted)
	return &Result{Text: text, Aborted: aborted, Conversation: conv}, nil
}

// applyText writes the accumulated response into the trailing assistant message.
func (s *service) applyText(conv *domain.Conversation, acc *accumulator, meta *metaHandler) {
	last := len(conv.Messages) - 1
	msg := &conv.Messages[last]
	msg.Content = acc.Text()
	if msg.Data == nil {
		msg.Data = &domain.MessageData{}
	}
	msg.Data.State = meta.snapshot()
	if len(acc.codeInterpreter) > 0 {
		msg.CodeInterpreterMessageData = acc.codeInterpreter
	}

	if !acc.needsNewThread {
		return
	}
	for i := 0; i < last; i++ {
		if data := conv.Messages[i].CodeInterpreterMessageData; data != nil {
			delete(data, "threadId")
		}
	}
}

// failStream persists what was received before a read error and resets the sink.
func (s *service) failStream(ctx context.Context, conv *domain.Conversation, text string, cause error, sink Sink, logger *slog.Logger) (*Result, error) {
	logger.Error("chat_stream_error", "error", cause, "chars", len(text))
	if err := s.conversations.Save(ctx, conv); err != nil {
		logger.Error("chat_persist_failed", "error", err)
	}
	sink.Streaming(false)
	sink.Loading(false)
	sink.ResetStatus()
	return &Result{Text: text, Conversation: conv}, fmt.Errorf("chat stream failed: %w", cause)
}

func alertText(err error) string {
	var te *TransportError
	if errors.As(err, &te) && te.Status != "" {
		return te.Status
	}
	return err.Error()
}
