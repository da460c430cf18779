package conversation

//go:generate mockgen -destination=./service_mock_test.go -package=conversation -source=service.go Service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"chatdesk/internal/domain"

	"github.com/google/uuid"
)

// ErrRemoteUnavailable is returned when a cloud conversation is used without a remote store.
var ErrRemoteUnavailable = errors.New("remote conversation store is not configured")

// Service routes conversations to the local or remote store by their IsLocal flag.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*domain.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// List merges both stores; when an id is in both the newer copy wins.
	List(ctx context.Context) ([]*domain.Conversation, error)
	Save(ctx context.Context, conv *domain.Conversation) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CreateRequest struct {
	Name        string   `json:"name"`
	ModelID     string   `json:"modelId"`
	Prompt      string   `json:"prompt,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	FolderID    string   `json:"folderId,omitempty"`
	// IsLocal overrides the configured storage selection when set.
	IsLocal *bool `json:"isLocal,omitempty"`
}

type service struct {
	local        Repository
	remote       Repository
	localDefault bool
	defaultModel string
	now          func() time.Time
}

// NewService builds the routing service. remote may be nil when no cloud store is configured.
func NewService(local, remote Repository, localDefault bool, defaultModel string) Service {
	return &service{
		local:        local,
		remote:       remote,
		localDefault: localDefault,
		defaultModel: defaultModel,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*domain.Conversation, error) {
	modelID := strings.TrimSpace(req.ModelID)
	if modelID == "" {
		modelID = s.defaultModel
	}
	model, ok := domain.LookupModel(modelID)
	if !ok {
		model = domain.Model{ID: modelID, Name: modelID, Provider: domain.ProviderAmplify}
	}

	isLocal := s.localDefault
	if req.IsLocal != nil {
		isLocal = *req.IsLocal
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "New Conversation"
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:          uuid.New(),
		Name:        name,
		Messages:    []domain.Message{},
		Model:       model,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Tags:        req.Tags,
		FolderID:    req.FolderID,
		IsLocal:     isLocal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Save(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.local.Get(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrNotFound) || s.remote == nil {
		return nil, err
	}
	return s.remote.Get(ctx, id)
}

func (s *service) List(ctx context.Context) ([]*domain.Conversation, error) {
	local, err := s.local.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.remote == nil {
		return local, nil
	}
	remote, err := s.remote.List(ctx)
	if err != nil {
		// local conversations are still usable when the cloud is down
		slog.Warn("conversation_remote_list_failed", "error", err)
		return local, nil
	}

	byID := make(map[uuid.UUID]*domain.Conversation, len(local)+len(remote))
	for _, c := range append(local, remote...) {
		if prev, ok := byID[c.ID]; ok && !c.UpdatedAt.After(prev.UpdatedAt) {
			continue
		}
		byID[c.ID] = c
	}
	out := make([]*domain.Conversation, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *service) Save(ctx context.Context, conv *domain.Conversation) error {
	conv.UpdatedAt = s.now()
	if conv.IsLocal {
		if err := s.local.Save(ctx, conv); err != nil {
			return fmt.Errorf("could not save local conversation: %w", err)
		}
		return nil
	}
	if s.remote == nil {
		return ErrRemoteUnavailable
	}
	if err := s.remote.Save(ctx, conv); err != nil {
		return fmt.Errorf("could not upload conversation: %w", err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	found := false
	for _, repo := range []Repository{s.local, s.remote} {
		if repo == nil {
			continue
		}
		err := repo.Delete(ctx, id)
		switch {
		case err == nil:
			found = true
		case errors.Is(err, ErrNotFound):
		default:
			return fmt.Errorf("could not delete conversation: %w", err)
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}
