package chat

import (
	"strings"

	"chatdesk/internal/config"
	"chatdesk/internal/domain"
)

// ArtifactsPrompt tells the model how to return standalone artifacts.
const ArtifactsPrompt = `When your answer contains a self-contained piece of content the user is likely to reuse or edit, such as a document, a program, a diagram or a data table, wrap it in an artifact block:
<artifact type="TYPE" title="TITLE">
CONTENT
</artifact>
Use one block per artifact and keep short snippets and explanations outside of artifact blocks.`

// Settings are the send defaults and feature switches.
type Settings struct {
	DefaultTemperature       float64
	DefaultMaxTokens         int
	MaxPendingChunks         int
	ConfirmCostOver          float64
	ConfirmUnknownTokensOver int
	RAGEnabled               bool
	CodeInterpreterEnabled   bool
	ArtifactsEnabled         bool
	IncludeArtifacts         bool
}

// SettingsFromConfig reads Settings out of the service configuration.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		DefaultTemperature:       cfg.Chat.DefaultTemperature,
		DefaultMaxTokens:         cfg.Chat.DefaultMaxTokens,
		MaxPendingChunks:         cfg.Chat.MaxPendingChunks,
		ConfirmCostOver:          cfg.Chat.ConfirmCostOver,
		ConfirmUnknownTokensOver: cfg.Chat.ConfirmUnknownTokensOver,
		RAGEnabled:               cfg.Flag(config.FlagRAGEnabled),
		CodeInterpreterEnabled:   cfg.Flag(config.FlagCodeInterpreterEnabled),
		ArtifactsEnabled:         cfg.Flag(config.FlagArtifacts),
		IncludeArtifacts:         cfg.FeatureOptions.IncludeArtifacts,
	}
}

// needsConfirmation reports whether est is expensive enough to ask first.
func (s Settings) needsConfirmation(est CostEstimate) bool {
	if !est.Known {
		return est.InputTokens > s.ConfirmUnknownTokensOver
	}
	return est.TotalCost > s.ConfirmCostOver
}

// buildBody assembles the backend request for conv, whose last message is msg.
func (s Settings) buildBody(conv *domain.Conversation, req SendRequest, msg domain.Message) *ChatBody {
	messages := make([]domain.Message, len(conv.Messages))
	copy(messages, conv.Messages)

	body := &ChatBody{
		Model:          conv.Model,
		Messages:       messages,
		Prompt:         req.RootPrompt,
		Temperature:    conv.Temperature,
		MaxTokens:      conv.MaxTokens,
		ConversationID: conv.ID.String(),
		Endpoint:       req.URI,
		SkipRag:        !s.RAGEnabled,
	}
	if body.Prompt == "" {
		body.Prompt = conv.Prompt
	}
	if body.Temperature == 0 {
		body.Temperature = s.DefaultTemperature
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = s.DefaultMaxTokens
	}

	if s.ArtifactsEnabled && s.wantsArtifacts(msg) {
		body.Prompt += "\n\n" + ArtifactsPrompt
	}

	if !s.CodeInterpreterEnabled {
		body.SkipCodeInterpreter = true
	} else if conv.CodeInterpreterAssistantID != "" {
		body.CodeInterpreterAssistantID = conv.CodeInterpreterAssistantID
		body.SkipRag = true
	}

	body.DataSources = dataSources(req.Documents, msg)

	if conv.HasTag(TagAssistantBuilder) {
		body.SkipRag = true
		body.RagOnly = true
	}

	switch req.Plugin {
	case PluginCodeInterpreter:
		body.CodeInterpreterOnly = true
	case PluginNoRAG:
		body.SkipRag = true
		body.RagOnly = false
	}

	if len(req.Options) > 0 {
		body.Options = make(map[string]any, len(req.Options))
		for k, v := range req.Options {
			body.Options[k] = v
		}
	}
	return body
}

// wantsArtifacts prefers the addressed assistant's feature options over the user setting.
func (s Settings) wantsArtifacts(msg domain.Message) bool {
	if msg.Data != nil && msg.Data.Assistant != nil {
		if fo := msg.Data.Assistant.Definition.FeatureOptions; fo != nil && fo.IncludeArtifactsInstr != nil {
			return *fo.IncludeArtifactsInstr
		}
	}
	return s.IncludeArtifacts
}

// dataSources maps attached documents to data sources. Bare storage keys
// are addressed as s3 objects. Without documents the message's own data
// sources are forwarded.
func dataSources(docs []domain.AttachedDocument, msg domain.Message) []domain.DataSource {
	if len(docs) == 0 {
		if msg.Data != nil {
			return msg.Data.DataSources
		}
		return nil
	}
	out := make([]domain.DataSource, 0, len(docs))
	for _, d := range docs {
		id := d.ID
		if d.Key != "" {
			id = d.Key
			if !strings.Contains(id, "://") {
				id = "s3://" + id
			}
		}
		out = append(out, domain.DataSource{
			ID:       id,
			Type:     d.Type,
			Name:     d.Name,
			Metadata: d.Metadata,
		})
	}
	return out
}
