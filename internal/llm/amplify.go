package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chatdesk/internal/auth"
	"chatdesk/internal/chat"
	"chatdesk/internal/domain"

	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Meta event names on the upstream stream. Every other event is text.
const (
	eventStatus = "status"
	eventMode   = "mode"
	eventState  = "state"
	eventError  = "error"
)

// AmplifyClient streams responses from the upstream chat API.
type AmplifyClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewAmplifyClient creates a client for the chat endpoint. apiKey is used
// when the request context carries no caller token and the body does not
// override the endpoint.
func NewAmplifyClient(endpoint, apiKey string, timeout time.Duration) *AmplifyClient {
	return newAmplifyClientWithHTTPClient(endpoint, apiKey, &http.Client{Timeout: timeout})
}

func newAmplifyClientWithHTTPClient(endpoint, apiKey string, httpClient *http.Client) *AmplifyClient {
	return &AmplifyClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     httpClient,
	}
}

func (c *AmplifyClient) Stream(ctx context.Context, req *chat.Request, meta chat.MetaHandler) (chat.Stream, error) {
	payload, err := requestPayload(req)
	if err != nil {
		return nil, err
	}

	// The service key only goes to the configured endpoint. An override
	// receives the caller's own token or nothing.
	endpoint, fallbackKey := c.endpoint, c.apiKey
	if req.Body.Endpoint != "" {
		endpoint, fallbackKey = req.Body.Endpoint, ""
	}
	if endpoint == "" {
		return nil, fmt.Errorf("chat endpoint is not configured")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("could not build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	auth.Authorize(httpReq, fallbackKey)

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		res.Body.Close()
		slog.Warn("amplify_request_rejected", "status", res.StatusCode, "body", strings.TrimSpace(string(body)))
		return nil, &chat.TransportError{StatusCode: res.StatusCode, Status: http.StatusText(res.StatusCode)}
	}

	return &amplifyStream{decoder: ssestream.NewDecoder(res), meta: meta}, nil
}

// requestPayload is the chat body with the requested response format under "options".
func requestPayload(req *chat.Request) ([]byte, error) {
	raw, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("could not encode chat body: %w", err)
	}

	set := func(path string, v any) {
		if err == nil {
			raw, err = sjson.SetBytes(raw, path, v)
		}
	}
	set("options.responseFormat", string(req.Mode))
	if req.Schema != nil {
		set("options.schema", req.Schema)
	}
	if req.Columns != nil {
		set("options.columns", req.Columns)
	}
	if req.Functions != nil {
		set("options.functions", req.Functions)
	}
	if req.Call != "" {
		set("options.functionCall", req.Call)
	}
	set("options.model", req.Body.Model)
	set("options.conversationId", req.Body.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("could not encode chat options: %w", err)
	}
	return raw, nil
}

// amplifyStream reads text events and hands meta events to the send in progress.
type amplifyStream struct {
	decoder ssestream.Decoder
	meta    chat.MetaHandler
	chunk   string
	err     error
}

func (s *amplifyStream) Next() bool {
	if s.decoder == nil || s.err != nil {
		return false
	}
	for {
		if s.meta.ShouldAbort() {
			return false
		}
		if !s.decoder.Next() {
			s.err = s.decoder.Err()
			return false
		}
		ev := s.decoder.Event()
		data := strings.TrimSuffix(string(ev.Data), "\n")

		switch ev.Type {
		case eventStatus:
			var st domain.Status
			if err := json.Unmarshal([]byte(data), &st); err != nil {
				slog.Warn("amplify_meta_decode_failed", "event", ev.Type, "error", err)
				continue
			}
			s.meta.Status(st)
		case eventMode:
			s.meta.Mode(metaString(data))
		case eventState:
			var state map[string]any
			if err := json.Unmarshal([]byte(data), &state); err != nil {
				slog.Warn("amplify_meta_decode_failed", "event", ev.Type, "error", err)
				continue
			}
			s.meta.State(state)
		case eventError:
			s.err = fmt.Errorf("upstream error: %s", metaString(data))
			return false
		default:
			if data == "" {
				continue
			}
			s.chunk = data
			return true
		}
	}
}

func (s *amplifyStream) Chunk() string {
	return s.chunk
}

func (s *amplifyStream) Err() error {
	return s.err
}

func (s *amplifyStream) Close() error {
	if s.decoder == nil {
		return nil
	}
	return s.decoder.Close()
}

// metaString accepts both a bare value and a JSON string.
func metaString(data string) string {
	if r := gjson.Parse(data); r.Type == gjson.String {
		return r.Str
	}
	return strings.TrimSpace(data)
}
