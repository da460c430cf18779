package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatdesk/internal/chat"
	"chatdesk/internal/domain"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

const (
	openAIDefaultAPIURL  = "https://api.openai.com/v1"
	openAIDefaultTimeout = 60
)

// OpenAIClient streams chat completions from an OpenAI compatible API.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a client for apiURL. An empty apiURL uses the public API.
func NewOpenAIClient(apiKey, apiURL string, timeoutSeconds int) (*OpenAIClient, error) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = openAIDefaultTimeout
	}
	return newOpenAIClientWithHTTPClient(apiKey, apiURL, &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second})
}

func newOpenAIClientWithHTTPClient(apiKey, apiURL string, httpClient *http.Client) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai api_key is required")
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = openAIDefaultAPIURL
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(apiURL),
		option.WithHTTPClient(httpClient),
	)
	return &OpenAIClient{client: client}, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, req *chat.Request, meta chat.MetaHandler) (chat.Stream, error) {
	params, err := buildOpenAIParams(req)
	if err != nil {
		return nil, err
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, openAIError(err)
	}
	return &openAIStream{stream: stream, meta: meta}, nil
}

func buildOpenAIParams(req *chat.Request) (openai.ChatCompletionNewParams, error) {
	model := strings.TrimSpace(req.Body.Model.ID)
	if model == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("model is required")
	}

	turns := history(req.Body.Messages)
	if len(turns) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("messages are required")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system := systemPrompt(req); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, m := range turns {
		switch m.Role {
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Body.Temperature > 0 {
		params.Temperature = openai.Float(req.Body.Temperature)
	}
	if req.Body.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.Body.MaxTokens))
	}

	switch req.Mode {
	case chat.ModeJSON, chat.ModeJSONSchemaLoose, chat.ModeFunction:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	case chat.ModeJSONSchema:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "response",
					Schema: objectSchema(req.Schema),
				},
			},
		}
	}
	return params, nil
}

// objectSchema turns a {field: "type"} example into a JSON schema. A value
// that already is a schema is passed through.
func objectSchema(fields map[string]any) map[string]any {
	if t, ok := fields["type"].(string); ok && t == "object" {
		return fields
	}
	props := make(map[string]any, len(fields))
	for name, v := range fields {
		switch t := v.(type) {
		case string:
			props[name] = map[string]any{"type": t}
		case map[string]any:
			props[name] = objectSchema(t)
		default:
			props[name] = map[string]any{}
		}
	}
	return map[string]any{"type": "object", "properties": props}
}

func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &chat.TransportError{StatusCode: apiErr.StatusCode, Status: http.StatusText(apiErr.StatusCode)}
	}
	return fmt.Errorf("openai request failed: %w", err)
}

type openAIStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	meta   chat.MetaHandler
	chunk  string
}

func (s *openAIStream) Next() bool {
	for {
		if s.meta.ShouldAbort() {
			return false
		}
		if !s.stream.Next() {
			return false
		}
		current := s.stream.Current()
		if len(current.Choices) == 0 || current.Choices[0].Delta.Content == "" {
			continue
		}
		s.chunk = current.Choices[0].Delta.Content
		return true
	}
}

func (s *openAIStream) Chunk() string {
	return s.chunk
}

func (s *openAIStream) Err() error {
	return s.stream.Err()
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
