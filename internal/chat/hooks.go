package chat

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"chatdesk/internal/domain"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Hook rewrites a finished response for conversations carrying a given tag.
type Hook interface {
	// Exec returns the replacement content, or ok=false to keep text as is.
	Exec(conv *domain.Conversation, text string) (updated string, ok bool)
}

// HookFunc adapts a function to Hook.
type HookFunc func(conv *domain.Conversation, text string) (string, bool)

func (f HookFunc) Exec(conv *domain.Conversation, text string) (string, bool) {
	return f(conv, text)
}

// Hooks maps conversation tags to post-processing hooks.
type Hooks struct {
	mu    sync.RWMutex
	byTag map[string]Hook
	order []string
}

func NewHooks() *Hooks {
	return &Hooks{byTag: make(map[string]Hook)}
}

// DefaultHooks returns the hooks the service runs in production.
func DefaultHooks() *Hooks {
	h := NewHooks()
	h.Register(TagAssistantBuilder, HookFunc(AssistantBuilderHook))
	return h
}

// Register adds a hook for tag. Tags registered first take precedence.
func (h *Hooks) Register(tag string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byTag[tag]; !ok {
		h.order = append(h.order, tag)
	}
	h.byTag[tag] = hook
}

// Find returns the first registered hook whose tag is in tags.
func (h *Hooks) Find(tags []string) Hook {
	if h == nil || len(tags) == 0 {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, tag := range h.order {
		for _, t := range tags {
			if t == tag {
				return h.byTag[tag]
			}
		}
	}
	return nil
}

const assistantFence = "```assistant"

var (
	prefixedLine    = regexp.MustCompile(`^(\s*"?(\w+)"?\s*):(.*)$`)
	assistantNameRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// AssistantBuilderHook turns a drafted assistant definition into an
// assistant block the client can offer to create. The draft may be JSON5 or
// "key: value" lines. Responses without a name, or already fenced, are kept.
func AssistantBuilderHook(_ *domain.Conversation, text string) (string, bool) {
	if strings.Contains(text, assistantFence) {
		return "", false
	}
	def := parseAssistantDraft(text)
	name, _ := def["name"].(string)
	name = assistantNameRe.ReplaceAllString(name, "")
	if name == "" {
		return "", false
	}
	def["name"] = name

	switch instructions := def["instructions"].(type) {
	case string:
		if instructions == "" {
			def["instructions"] = fallbackInstructions(def, text)
		}
	case nil:
		def["instructions"] = fallbackInstructions(def, text)
	default:
		raw, err := json.Marshal(instructions)
		if err != nil {
			return "", false
		}
		def["instructions"] = string(raw)
	}

	raw, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return "", false
	}
	return assistantFence + "\n" + string(raw) + "\n```", true
}

func fallbackInstructions(def map[string]any, text string) string {
	if desc, _ := def["description"].(string); desc != "" {
		return desc
	}
	return strings.TrimSpace(text)
}

func parseAssistantDraft(text string) map[string]any {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")

	var def map[string]any
	if err := json5.Unmarshal([]byte(strings.TrimSpace(trimmed)), &def); err == nil && def != nil {
		return def
	}
	return parsePrefixedLines(text)
}

// parsePrefixedLines reads "key: value" lines. Unprefixed lines continue the
// previous key's value.
func parsePrefixedLines(text string) map[string]any {
	out := map[string]any{}
	var key string
	var buf []string
	flush := func() {
		if key != "" {
			out[key] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if m := prefixedLine.FindStringSubmatch(line); m != nil {
			flush()
			key, buf = m[2], []string{m[3]}
			continue
		}
		if key != "" {
			buf = append(buf, line)
		}
	}
	flush()
	return out
}
