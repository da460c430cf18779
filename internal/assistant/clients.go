package assistant

//go:generate mockgen -destination=./clients_mock_test.go -package=assistant -source=clients.go OpsClient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatdesk/internal/auth"
)

// ErrOpFailed is returned when the assistant API answers with success=false.
var ErrOpFailed = errors.New("assistant op failed")

// OpsClient is the contract for talking to the assistant API.
type OpsClient interface {
	// Op posts {op, data} to /assistant/op and returns the data field.
	Op(ctx context.Context, op string, data any) (json.RawMessage, error)
	// List returns the data field of /assistant/list.
	List(ctx context.Context) (json.RawMessage, error)
	// DownloadURL asks for a presigned link to code interpreter output.
	DownloadURL(ctx context.Context, payload map[string]any) (string, error)
}

type httpOpsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewHTTPOpsClient is the constructor. apiKey is used when the request
// context carries no caller token.
func NewHTTPOpsClient(baseURL, apiKey string) OpsClient {
	return &httpOpsClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type opRequest struct {
	Op   string `json:"op"`
	Data any    `json:"data"`
}

// opResponse is the envelope every assistant endpoint answers with.
type opResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *httpOpsClient) Op(ctx context.Context, op string, data any) (json.RawMessage, error) {
	reqBody, err := json.Marshal(opRequest{Op: op, Data: data})
	if err != nil {
		return nil, fmt.Errorf("could not marshal assistant op: %w", err)
	}
	var resp opResponse
	if err := c.do(ctx, "POST", "/assistant/op", reqBody, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s %s", ErrOpFailed, op, resp.Message)
	}
	return resp.Data, nil
}

func (c *httpOpsClient) List(ctx context.Context) (json.RawMessage, error) {
	var resp opResponse
	if err := c.do(ctx, "GET", "/assistant/list", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: list %s", ErrOpFailed, resp.Message)
	}
	return resp.Data, nil
}

type downloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

func (c *httpOpsClient) DownloadURL(ctx context.Context, payload map[string]any) (string, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("could not marshal download request: %w", err)
	}
	var resp downloadResponse
	if err := c.do(ctx, "POST", "/assistant/files/download/codeinterpreter", reqBody, &resp); err != nil {
		return "", err
	}
	if resp.DownloadURL == "" {
		return "", fmt.Errorf("assistant service returned no download url")
	}
	return resp.DownloadURL, nil
}

func (c *httpOpsClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("assistant api base url is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create assistant http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	auth.Authorize(req, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("assistant service returned non-200 status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode assistant response: %w", err)
	}
	return nil
}
