package agent

import (
	"encoding/json"
	"strings"

	"github.com/agentoven/quant-go/internal/models"
)

// toolCallJSON is the shape a model emits in content when it doesn't
// use native tool calling: {"name": ..., "arguments": {...}}.
type toolCallJSON struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ParseToolCalls extracts tool calls from assistant content for models
// that emit them as JSON in the content body rather than via a native
// tool_calls field. It tries, in order: a fenced markdown code block,
// a single JSON object, a JSON array, then a brace-balanced scan of the
// raw text for embedded objects. Returns nil when none are found.
func ParseToolCalls(content string) []models.ToolCall {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	jsonContent := content
	if extracted, ok := extractJSONFromMarkdown(content); ok {
		jsonContent = extracted
	}

	if call, ok := tryParseSingle(jsonContent); ok {
		return []models.ToolCall{call}
	}

	if calls, ok := tryParseArray(jsonContent); ok {
		return calls
	}

	if calls := extractJSONObjects(content); len(calls) > 0 {
		return calls
	}

	return nil
}

func extractJSONFromMarkdown(content string) (string, bool) {
	patterns := []string{"```json\n", "```JSON\n", "```\n"}
	for _, pattern := range patterns {
		start := strings.Index(content, pattern)
		if start < 0 {
			continue
		}
		jsonStart := start + len(pattern)
		end := strings.Index(content[jsonStart:], "```")
		if end < 0 {
			continue
		}
		return strings.TrimSpace(content[jsonStart : jsonStart+end]), true
	}
	return "", false
}

func tryParseSingle(content string) (models.ToolCall, bool) {
	var parsed toolCallJSON
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return models.ToolCall{}, false
	}
	if parsed.Name == "" {
		return models.ToolCall{}, false
	}
	return models.ToolCall{ID: models.NewToolCallID(), Name: parsed.Name, Arguments: parsed.Arguments}, true
}

func tryParseArray(content string) ([]models.ToolCall, bool) {
	var parsed []toolCallJSON
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, false
	}
	if len(parsed) == 0 {
		return nil, false
	}

	var calls []models.ToolCall
	for _, p := range parsed {
		if p.Name == "" {
			continue
		}
		calls = append(calls, models.ToolCall{ID: models.NewToolCallID(), Name: p.Name, Arguments: p.Arguments})
	}
	if len(calls) == 0 {
		return nil, false
	}
	return calls, true
}

// extractJSONObjects scans content for brace-balanced top-level JSON
// objects and tries to parse each one as a single tool call, skipping
// any that don't parse.
func extractJSONObjects(content string) []models.ToolCall {
	var calls []models.ToolCall
	depth := 0
	start := -1

	for i, r := range content {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				candidate := content[start : i+1]
				if call, ok := tryParseSingle(candidate); ok {
					calls = append(calls, call)
				}
				start = -1
			}
		}
	}
	return calls
}
