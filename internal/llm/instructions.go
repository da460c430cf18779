package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"chatdesk/internal/chat"
	"chatdesk/internal/domain"
)

// modeInstructions tells a general purpose model how to format its answer.
// The upstream chat API handles formats natively; SDK backends get them
// as extra system instructions.
func modeInstructions(req *chat.Request) string {
	switch req.Mode {
	case chat.ModeJSON:
		return "Respond only with a single valid JSON object and no surrounding text."
	case chat.ModeJSONSchema:
		return "Respond only with a single valid JSON object that matches this schema exactly, with no surrounding text:\n" + compactJSON(req.Schema)
	case chat.ModeJSONSchemaLoose:
		return "Respond only with a single valid JSON object shaped like this example, with no surrounding text:\n" + compactJSON(req.Schema)
	case chat.ModeCSV:
		return "Respond only with CSV data, including a header row, with these columns:\n" + compactJSON(req.Columns)
	case chat.ModeFunction:
		var b strings.Builder
		b.WriteString("Respond only with a JSON object of the form {\"name\": <function name>, \"arguments\": {...}} calling one of these functions:\n")
		b.WriteString(compactJSON(req.Functions))
		if req.Call != "" {
			fmt.Fprintf(&b, "\nYou must call the function %q.", req.Call)
		}
		return b.String()
	default:
		return ""
	}
}

// systemPrompt joins the conversation prompt, any system messages and the
// mode instructions.
func systemPrompt(req *chat.Request) string {
	var parts []string
	if p := strings.TrimSpace(req.Body.Prompt); p != "" {
		parts = append(parts, p)
	}
	for _, m := range req.Body.Messages {
		if c := strings.TrimSpace(m.Content); m.Role == domain.RoleSystem && c != "" {
			parts = append(parts, c)
		}
	}
	if m := modeInstructions(req); m != "" {
		parts = append(parts, m)
	}
	return strings.Join(parts, "\n\n")
}

// history returns the user and assistant turns an SDK backend should see.
func history(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
