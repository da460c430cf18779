package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"chatdesk/internal/chat"
	"chatdesk/internal/config"
	"chatdesk/internal/domain"
)

// ErrNoBackend is returned when no client serves a model's provider.
var ErrNoBackend = errors.New("no backend configured for model")

// Router sends each request to the client registered for its model's
// provider. Models without a dedicated client go to the fallback, which is
// normally the upstream chat API.
type Router struct {
	clients  map[domain.Provider]chat.Client
	fallback chat.Client
}

// NewRouter creates a router. fallback may be nil.
func NewRouter(fallback chat.Client) *Router {
	return &Router{
		clients:  make(map[domain.Provider]chat.Client),
		fallback: fallback,
	}
}

// NewRouterFromConfig builds the upstream fallback and registers the SDK
// backends whose API keys are configured.
func NewRouterFromConfig(ctx context.Context, cfg config.Config) (*Router, error) {
	timeout := time.Duration(cfg.Chat.RequestTimeoutSeconds) * time.Second
	r := NewRouter(NewAmplifyClient(cfg.ChatEndpoint, cfg.APIKey, timeout))
	if cfg.OpenAI.APIKey != "" {
		c, err := NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.APIURL, cfg.OpenAI.APITimeoutSeconds)
		if err != nil {
			return nil, err
		}
		r.Register(domain.ProviderOpenAI, c)
	}
	if cfg.Google.APIKey != "" {
		c, err := NewGoogleClient(ctx, cfg.Google.APIKey, cfg.Google.APITimeoutSeconds)
		if err != nil {
			return nil, err
		}
		r.Register(domain.ProviderGoogle, c)
	}
	return r, nil
}

// Register serves provider with c.
func (r *Router) Register(provider domain.Provider, c chat.Client) {
	r.clients[provider] = c
}

func (r *Router) clientFor(model domain.Model) (chat.Client, error) {
	if c, ok := r.clients[model.Provider]; ok {
		return c, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w %q (provider %q)", ErrNoBackend, model.ID, model.Provider)
}

func (r *Router) Stream(ctx context.Context, req *chat.Request, meta chat.MetaHandler) (chat.Stream, error) {
	c, err := r.clientFor(req.Body.Model)
	if err != nil {
		return nil, err
	}
	return c.Stream(ctx, req, meta)
}

// Models lists the catalog models that some client can serve, sorted by id.
func (r *Router) Models() []domain.Model {
	out := make([]domain.Model, 0, len(domain.Models))
	for _, m := range domain.Models {
		if _, err := r.clientFor(m); err == nil {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
