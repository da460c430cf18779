package prompts

//go:generate mockgen -destination=./service_mock_test.go -package=prompts -source=service.go Service

import (
	"context"
	"encoding/json"
	"fmt"
)

// Service reads the organisation's base prompts.
type Service interface {
	GetBasePrompts(ctx context.Context) (json.RawMessage, error)
}

type service struct {
	client *httpOpsClient
}

// NewService creates a service backed by the base prompts API at baseURL.
func NewService(baseURL, apiKey string) Service {
	return &service{
		client: newHTTPOpsClient(baseURL, apiKey),
	}
}

func (s *service) GetBasePrompts(ctx context.Context) (json.RawMessage, error) {
	data, err := s.client.op(ctx, "/base-prompts/get", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("could not fetch base prompts: %w", err)
	}
	if len(data) == 0 {
		return json.RawMessage("null"), nil
	}
	return data, nil
}
