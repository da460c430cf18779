package chat

//go:generate mockgen -destination=./clients_mock_test.go -package=chat -source=clients.go

import (
	"context"

	"chatdesk/internal/domain"

	"github.com/google/uuid"
)

// Client defines the contract for a model backend that streams a response.
type Client interface {
	// Stream starts the request. A non-success upstream response is a *TransportError.
	Stream(ctx context.Context, req *Request, meta MetaHandler) (Stream, error)
}

// Stream is a response being read chunk by chunk.
type Stream interface {
	Next() bool
	Chunk() string
	Err() error
	Close() error
}

// MetaHandler receives the in-band control events of a stream.
type MetaHandler interface {
	Status(status domain.Status)
	Mode(mode string)
	State(state map[string]any)
	// ShouldAbort is polled by transports between reads.
	ShouldAbort() bool
}

// ConversationStore defines the contract for loading and persisting conversations.
type ConversationStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	Save(ctx context.Context, conv *domain.Conversation) error
}

// SendChat asks for a plain chat response.
func SendChat(ctx context.Context, c Client, body *ChatBody, meta MetaHandler) (Stream, error) {
	return c.Stream(ctx, &Request{Mode: ModeChat, Body: body}, meta)
}

// SendJSON asks for any JSON object.
func SendJSON(ctx context.Context, c Client, body *ChatBody, meta MetaHandler) (Stream, error) {
	return c.Stream(ctx, &Request{Mode: ModeJSON, Body: body}, meta)
}

// SendJSONWithSchema asks for JSON that must match schema.
func SendJSONWithSchema(ctx context.Context, c Client, body *ChatBody, schema map[string]any, meta MetaHandler) (Stream, error) {
	return c.Stream(ctx, &Request{Mode: ModeJSONSchema, Body: body, Schema: schema}, meta)
}

// SendJSONWithSchemaLoose asks for JSON shaped like schema without enforcing it.
func SendJSONWithSchemaLoose(ctx context.Context, c Client, body *ChatBody, schema map[string]any, meta MetaHandler) (Stream, error) {
	return c.Stream(ctx, &Request{Mode: ModeJSONSchemaLoose, Body: body, Schema: schema}, meta)
}

// SendCSV asks for CSV with the given columns.
func SendCSV(ctx context.Context, c Client, body *ChatBody, columns map[string]any, meta MetaHandler) (Stream, error) {
	return c.Stream(ctx, &Request{Mode: ModeCSV, Body: body, Columns: columns}, meta)
}

// SendFunction asks the model to call one of functions, or call when it is set.
func SendFunction(ctx context.Context, c Client, body *ChatBody, functions []any, call string, meta MetaHandler) (Stream, error) {
	return c.Stream(ctx, &Request{Mode: ModeFunction, Body: body, Functions: functions, Call: call}, meta)
}

// invoke picks the transport call for a parsed message type.
func invoke(ctx context.Context, c Client, msgType MessageType, body *ChatBody, options map[string]any, meta MetaHandler) (Stream, error) {
	switch msgType {
	case MessageTypeJSON:
		if len(options) == 0 {
			return SendJSON(ctx, c, body, meta)
		}
		return SendJSONWithSchemaLoose(ctx, c, body, options, meta)
	case MessageTypeJSONSchema:
		return SendJSONWithSchema(ctx, c, body, options, meta)
	case MessageTypeCSV:
		return SendCSV(ctx, c, body, options, meta)
	case MessageTypeFunction:
		functions, _ := options["functions"].([]any)
		call, _ := options["call"].(string)
		return SendFunction(ctx, c, body, functions, call, meta)
	default:
		return SendChat(ctx, c, body, meta)
	}
}
