package chat

import (
	"regexp"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

var prefixPattern = regexp.MustCompile(`^(\w+[\!]?)\(([^)]*)\).*`)

// ParseMessageType reads an optional mode prefix such as
//
//	json!({name: "string", age: "number"}) describe the user
//
// The parenthesised options are JSON5. Anything that is not a recognised
// prefix with parsable, non-empty options is a plain chat message and is
// returned unchanged. For a recognised prefix the body is the trimmed text
// with the prefix word removed.
func ParseMessageType(text string) (MessageType, string, map[string]any) {
	trimmed := strings.TrimSpace(text)
	m := prefixPattern.FindStringSubmatch(trimmed)
	if m == nil || m[2] == "" {
		return MessageTypeChat, text, map[string]any{}
	}

	prefix := MessageType(m[1])
	switch prefix {
	case MessageTypeJSON, MessageTypeJSONSchema, MessageTypeCSV, MessageTypeFunction:
	default:
		return MessageTypeChat, text, map[string]any{}
	}

	var options map[string]any
	if err := json5.Unmarshal([]byte(m[2]), &options); err != nil || options == nil {
		return MessageTypeChat, text, map[string]any{}
	}
	return prefix, trimmed[len(m[1]):], options
}
