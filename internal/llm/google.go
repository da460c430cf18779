package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chatdesk/internal/chat"
	"chatdesk/internal/domain"

	"google.golang.org/genai"
)

const googleDefaultTimeout = 60

type googleModelsClient interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

var newGoogleClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

// GoogleClient streams responses from the Gemini API.
type GoogleClient struct {
	models  googleModelsClient
	timeout time.Duration
}

// NewGoogleClient creates a Gemini client.
func NewGoogleClient(ctx context.Context, apiKey string, timeoutSeconds int) (*GoogleClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("google api_key is required")
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = googleDefaultTimeout
	}

	client, err := newGoogleClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}

	slog.Debug("google_client_ready", "timeout_seconds", timeoutSeconds)
	return &GoogleClient{
		models:  client.Models,
		timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

func (c *GoogleClient) Stream(ctx context.Context, req *chat.Request, meta chat.MetaHandler) (chat.Stream, error) {
	model, contents, cfg, err := buildGoogleRequest(req)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.withTimeout(ctx)
	next, stop := iter.Pull2(c.models.GenerateContentStream(callCtx, model, contents, cfg))

	// The first response surfaces request errors before any text is shown.
	first, err, ok := next()
	if err != nil {
		stop()
		cancel()
		return nil, googleError(err)
	}

	return &googleStream{
		next:    next,
		stop:    stop,
		cancel:  cancel,
		meta:    meta,
		pending: first,
		done:    !ok,
	}, nil
}

func buildGoogleRequest(req *chat.Request) (string, []*genai.Content, *genai.GenerateContentConfig, error) {
	model := strings.TrimSpace(req.Body.Model.ID)
	if model == "" {
		return "", nil, nil, fmt.Errorf("model is required")
	}

	turns := history(req.Body.Messages)
	if len(turns) == 0 {
		return "", nil, nil, fmt.Errorf("at least one user or assistant message is required")
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		content := &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: m.Content}},
		}
		if m.Role == domain.RoleAssistant {
			content.Role = genai.RoleModel
		}
		contents = append(contents, content)
	}

	config := &genai.GenerateContentConfig{}
	if system := systemPrompt(req); system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if req.Body.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Body.Temperature))
	}
	if req.Body.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.Body.MaxTokens)
	}
	switch req.Mode {
	case chat.ModeJSON, chat.ModeJSONSchema, chat.ModeJSONSchemaLoose, chat.ModeFunction:
		config.ResponseMIMEType = "application/json"
	}

	return model, contents, config, nil
}

func (c *GoogleClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func googleError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if code > 0 {
		return &chat.TransportError{StatusCode: code, Status: http.StatusText(code)}
	}
	return fmt.Errorf("google request failed: %w", err)
}

type googleStream struct {
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel context.CancelFunc
	meta   chat.MetaHandler

	pending *genai.GenerateContentResponse
	chunk   string
	err     error
	done    bool
}

func (s *googleStream) Next() bool {
	for !s.done && s.err == nil {
		if s.meta.ShouldAbort() {
			return false
		}

		resp := s.pending
		s.pending = nil
		if resp == nil {
			var err error
			var ok bool
			resp, err, ok = s.next()
			if err != nil {
				s.err = googleError(err)
				return false
			}
			if !ok {
				s.done = true
				return false
			}
		}

		if text := visibleText(resp); text != "" {
			s.chunk = text
			return true
		}
	}
	return false
}

func (s *googleStream) Chunk() string {
	return s.chunk
}

func (s *googleStream) Err() error {
	return s.err
}

func (s *googleStream) Close() error {
	s.stop()
	s.cancel()
	s.done = true
	return nil
}

func visibleText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
