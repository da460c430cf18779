package prompts

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

// ErrOpFailed is returned when the base prompts API answers with success=false.
var ErrOpFailed = errors.New("base prompts op failed")

type httpOpsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func newHTTPOpsClient(baseURL, apiKey string) *httpOpsClient {
	return &httpOpsClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type opRequest struct {
	Op   string `json:"op"`
	Data any    `json:"data"`
}

type opResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// op posts {op, data} to /baseprompts/op and returns the data field.
func (c *httpOpsClient) op(ctx context.Context, name string, data any) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("base prompts api base url is not configured")
	}
	reqBody, err := json.Marshal(opRequest{Op: name, Data: data})
	if err != nil {
		return nil, fmt.Errorf("could not marshal base prompts op: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/baseprompts/op", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("could not create base prompts http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	auth.Authorize(req, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("base prompts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error calling base prompts: %s", http.StatusText(resp.StatusCode))
	}
	var out opResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("could not decode base prompts response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: %s", ErrOpFailed, out.Message)
	}
	return out.Data, nil
}
