package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Conversation is an ordered list of messages plus the settings they are sent with.
type Conversation struct {
	ID                         uuid.UUID `json:"id" db:"conversation_id"`
	Name                       string    `json:"name" db:"name"`
	Messages                   []Message `json:"messages" db:"-"`
	Model                      Model     `json:"model" db:"-"`
	Prompt                     string    `json:"prompt,omitempty" db:"-"`
	Temperature                float64   `json:"temperature,omitempty" db:"-"`
	MaxTokens                  int       `json:"maxTokens,omitempty" db:"-"`
	FolderID                   string    `json:"folderId,omitempty" db:"-"`
	Tags                       []string  `json:"tags,omitempty" db:"-"`
	IsLocal                    bool      `json:"isLocal" db:"is_local"`
	CodeInterpreterAssistantID string    `json:"codeInterpreterAssistantId,omitempty" db:"-"`
	CreatedAt                  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt                  time.Time `json:"updatedAt" db:"updated_at"`
}

// LastMessage returns a pointer into Messages, or nil when there are none.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// HasTag reports whether the conversation carries tag.
func (c *Conversation) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone deep-copies the message slice so a send can mutate its own copy.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	out.Tags = append([]string(nil), c.Tags...)
	return &out
}

type Message struct {
	ID                         uuid.UUID      `json:"id"`
	Role                       Role           `json:"role"`
	Content                    string         `json:"content"`
	Label                      string         `json:"label,omitempty"`
	Type                       string         `json:"type,omitempty"`
	Data                       *MessageData   `json:"data,omitempty"`
	CodeInterpreterMessageData map[string]any `json:"codeInterpreterMessageData,omitempty"`
}

// NewMessage builds a message with a fresh id.
func NewMessage(role Role, content string) Message {
	return Message{ID: uuid.New(), Role: role, Content: content}
}

type MessageData struct {
	State       map[string]any `json:"state,omitempty"`
	Rating      *int           `json:"rating,omitempty"`
	DataSources []DataSource   `json:"dataSources,omitempty"`
	Assistant   *AssistantRef  `json:"assistant,omitempty"`
	IsError     bool           `json:"isError,omitempty"`
}

// AssistantRef is the assistant a user message was addressed to.
type AssistantRef struct {
	Definition AssistantDefinition `json:"definition"`
}

type FeatureOptions struct {
	IncludeArtifactsInstr *bool `json:"IncludeArtifactsInstr,omitempty"`
}

type AssistantDefinition struct {
	ID             string          `json:"id,omitempty"`
	AssistantID    string          `json:"assistantId,omitempty"`
	Provider       string          `json:"provider,omitempty"`
	Name           string          `json:"name,omitempty"`
	Description    string          `json:"description,omitempty"`
	Instructions   string          `json:"instructions,omitempty"`
	Disclaimer     string          `json:"disclaimer,omitempty"`
	DataSources    []DataSource    `json:"dataSources,omitempty"`
	FileKeys       []string        `json:"fileKeys,omitempty"`
	Tools          []any           `json:"tools,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	FeatureOptions *FeatureOptions `json:"featureOptions,omitempty"`
}

// DataSource is a document reference handed to the chat API for retrieval.
type DataSource struct {
	ID       string         `json:"id"`
	Type     string         `json:"type,omitempty"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AttachedDocument is a file the user attached to a message.
type AttachedDocument struct {
	ID       string         `json:"id"`
	Key      string         `json:"key,omitempty"`
	Type     string         `json:"type,omitempty"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TotalTokens reads metadata.totalTokens, which arrives as a JSON number.
func (d AttachedDocument) TotalTokens() int {
	switch v := d.Metadata["totalTokens"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Status is a progress notice shown while a response streams.
type Status struct {
	ID         string `json:"id"`
	Summary    string `json:"summary,omitempty"`
	Message    string `json:"message,omitempty"`
	Type       string `json:"type,omitempty"`
	Icon       string `json:"icon,omitempty"`
	InProgress bool   `json:"inProgress"`
	Sticky     bool   `json:"sticky,omitempty"`
}

type Rating struct {
	RatingID       uuid.UUID `json:"rating_id" db:"rating_id"`
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id" db:"message_id"`
	Score          int       `json:"score" db:"score"`
	Feedback       string    `json:"feedback,omitempty" db:"feedback"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
