package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chatdesk/internal/domain"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

var (
	// ErrSendInProgress is returned when a conversation already has a response streaming.
	ErrSendInProgress = errors.New("a message is already being sent in this conversation")
)

// MessageType is the request mode picked from a message prefix like json(...).
type MessageType string

const (
	MessageTypeChat       MessageType = "chat"
	MessageTypeJSON       MessageType = "json"
	MessageTypeJSONSchema MessageType = "json!"
	MessageTypeCSV        MessageType = "csv"
	MessageTypeFunction   MessageType = "fn"
)

// Mode is the response format a transport is asked for.
type Mode string

const (
	ModeChat            Mode = "chat"
	ModeJSON            Mode = "json"
	ModeJSONSchema      Mode = "json_schema"
	ModeJSONSchemaLoose Mode = "json_schema_loose"
	ModeCSV             Mode = "csv"
	ModeFunction        Mode = "function"
)

// Plugins a user can toggle on a message.
const (
	PluginCodeInterpreter = "code_interpreter"
	PluginNoRAG           = "no_rag"
)

// TagAssistantBuilder marks conversations that build assistants; they only use retrieval.
const TagAssistantBuilder = "assistant-builder"

// OutOfOrderMode is the mode meta value that switches a stream to tagged chunks.
const OutOfOrderMode = "out_of_order"

// ChatBody is the request sent to a model backend.
type ChatBody struct {
	Model                      domain.Model        `json:"model"`
	Messages                   []domain.Message    `json:"messages"`
	Prompt                     string              `json:"prompt"`
	Temperature                float64             `json:"temperature"`
	MaxTokens                  int                 `json:"maxTokens"`
	ConversationID             string              `json:"conversationId"`
	Endpoint                   string              `json:"endpoint,omitempty"`
	CodeInterpreterAssistantID string              `json:"codeInterpreterAssistantId,omitempty"`
	DataSources                []domain.DataSource `json:"dataSources,omitempty"`
	SkipRag                    bool                `json:"skipRag,omitempty"`
	RagOnly                    bool                `json:"ragOnly,omitempty"`
	SkipCodeInterpreter        bool                `json:"skipCodeInterpreter,omitempty"`
	CodeInterpreterOnly        bool                `json:"codeInterpreterOnly,omitempty"`

	// Options are caller supplied fields merged flat into the JSON body.
	Options map[string]any `json:"-"`
}

// MarshalJSON writes the typed fields and then overlays Options on top.
func (b ChatBody) MarshalJSON() ([]byte, error) {
	type plain ChatBody
	raw, err := json.Marshal(plain(b))
	if err != nil {
		return nil, err
	}
	for k, v := range b.Options {
		raw, err = sjson.SetBytes(raw, escapeKey(k), v)
		if err != nil {
			return nil, fmt.Errorf("could not merge option %q: %w", k, err)
		}
	}
	return raw, nil
}

var keyEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`, ":", `\:`)

func escapeKey(k string) string {
	return keyEscaper.Replace(k)
}

// Request is one call to a transport.
type Request struct {
	Mode      Mode
	Body      *ChatBody
	Schema    map[string]any
	Columns   map[string]any
	Functions []any
	Call      string
}

// SendRequest is everything a caller provides to send one message.
type SendRequest struct {
	ConversationID uuid.UUID                 `json:"conversationId"`
	Message        domain.Message            `json:"message"`
	DeleteCount    int                       `json:"deleteCount,omitempty"`
	Plugin         string                    `json:"plugin,omitempty"`
	RootPrompt     string                    `json:"rootPrompt,omitempty"`
	Documents      []domain.AttachedDocument `json:"documents,omitempty"`
	URI            string                    `json:"uri,omitempty"`
	Endpoint       string                    `json:"endpoint,omitempty"`
	Options        map[string]any            `json:"options,omitempty"`
}

// Result is the outcome of a completed or aborted send.
type Result struct {
	Text         string               `json:"text"`
	Aborted      bool                 `json:"aborted"`
	Conversation *domain.Conversation `json:"conversation"`
}

// TransportError is a non-success response from a model backend.
type TransportError struct {
	StatusCode int
	Status     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chat backend returned status %d: %s", e.StatusCode, e.Status)
}

// CostConfirmationError is returned when a send needed a cost confirmation that was refused.
type CostConfirmationError struct {
	Estimate CostEstimate
}

func (e *CostConfirmationError) Error() string {
	return "send cancelled: cost not confirmed (" + e.Estimate.Message() + ")"
}
