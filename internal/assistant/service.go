package assistant

//go:generate mockgen -destination=./service_mock_test.go -package=assistant -source=service.go Service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"chatdesk/internal/domain"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	providerOpenAI  = "openai"
	providerAmplify = "amplify"

	defaultName        = "Unnamed Assistant"
	defaultDescription = "No description provided"
)

// Service defines the assistant operations.
type Service interface {
	Create(ctx context.Context, def domain.AssistantDefinition) (*domain.AssistantDefinition, error)
	List(ctx context.Context) ([]domain.AssistantDefinition, error)
	Delete(ctx context.Context, assistantID string) (bool, error)
	DownloadCodeInterpreterFile(ctx context.Context, payload map[string]any) (string, error)
}

type service struct {
	ops OpsClient
}

// NewService is the constructor.
func NewService(ops OpsClient) Service {
	return &service{
		ops: ops,
	}
}

// Create registers an assistant. OpenAI and amplify assistants are created
// remotely; any other provider gets a local id.
func (s *service) Create(ctx context.Context, def domain.AssistantDefinition) (*domain.AssistantDefinition, error) {
	switch def.Provider {
	case providerOpenAI:
		if len(def.DataSources) > 0 {
			def.FileKeys = make([]string, 0, len(def.DataSources))
			for _, ds := range def.DataSources {
				def.FileKeys = append(def.FileKeys, ds.ID)
			}
		}
		data, err := s.ops.Op(ctx, "/create", def)
		if err != nil {
			return nil, fmt.Errorf("could not create assistant: %w", err)
		}
		id := gjson.GetBytes(data, "assistantId").String()
		if id == "" {
			return nil, fmt.Errorf("assistant service returned no assistant id")
		}
		return &domain.AssistantDefinition{ID: id, AssistantID: id, Provider: providerOpenAI}, nil

	case providerAmplify:
		data, err := s.ops.Op(ctx, "/create", def)
		if err != nil {
			return nil, fmt.Errorf("could not create assistant: %w", err)
		}
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("could not parse created assistant")
		}
		created := withDefaults(def)
		created.ID = gjson.GetBytes(data, "id").String()
		created.AssistantID = gjson.GetBytes(data, "assistantId").String()
		created.Provider = providerAmplify
		return &created, nil
	}

	local := withDefaults(def)
	local.ID = ""
	local.AssistantID = uuid.NewString()
	local.Provider = providerAmplify
	local.Disclaimer = ""
	return &local, nil
}

// withDefaults fills the display fields an assistant must always have.
func withDefaults(def domain.AssistantDefinition) domain.AssistantDefinition {
	if def.Name == "" {
		def.Name = defaultName
	}
	if def.Instructions == "" {
		def.Instructions = def.Description
	}
	if def.Description == "" {
		def.Description = defaultDescription
	}
	return def
}

// List returns the caller's assistants. A failed listing is logged and
// reads as empty.
func (s *service) List(ctx context.Context) ([]domain.AssistantDefinition, error) {
	data, err := s.ops.List(ctx)
	if err != nil {
		slog.Warn("assistant_list_failed", "error", err)
		return []domain.AssistantDefinition{}, nil
	}
	var defs []domain.AssistantDefinition
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("could not decode assistants: %w", err)
		}
	}
	if defs == nil {
		defs = []domain.AssistantDefinition{}
	}
	return defs, nil
}

// Delete removes an assistant. It reports false when the API refused.
func (s *service) Delete(ctx context.Context, assistantID string) (bool, error) {
	if assistantID == "" {
		return false, fmt.Errorf("assistant id is required")
	}
	if _, err := s.ops.Op(ctx, "/delete", map[string]string{"assistantId": assistantID}); err != nil {
		if errors.Is(err, ErrOpFailed) {
			slog.Warn("assistant_delete_failed", "assistant_id", assistantID, "error", err)
			return false, nil
		}
		return false, fmt.Errorf("could not delete assistant: %w", err)
	}
	return true, nil
}

func (s *service) DownloadCodeInterpreterFile(ctx context.Context, payload map[string]any) (string, error) {
	url, err := s.ops.DownloadURL(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("could not download the code interpreter file(s): %w", err)
	}
	return url, nil
}
