package agent

import "testing"

func TestParseToolCallsRawJSON(t *testing.T) {
	content := `{"name": "file_read", "arguments": {"path": "main.go"}}`
	calls := ParseToolCalls(content)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "file_read" {
		t.Fatalf("expected file_read, got %s", calls[0].Name)
	}
}

func TestParseToolCallsMarkdownFenced(t *testing.T) {
	content := "Sure, let me do that.\n```json\n" +
		`{"name": "glob", "arguments": {"pattern": "*.go"}}` +
		"\n```"
	calls := ParseToolCalls(content)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "glob" {
		t.Fatalf("expected glob, got %s", calls[0].Name)
	}
}

func TestParseToolCallsEmbeddedInText(t *testing.T) {
	content := `I'll read the file now. {"name": "file_read", "arguments": {"path": "a.go"}} Let's see what's in it.`
	calls := ParseToolCalls(content)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "file_read" {
		t.Fatalf("expected file_read, got %s", calls[0].Name)
	}
}

func TestParseToolCallsArray(t *testing.T) {
	content := `[{"name": "file_read", "arguments": {"path": "a.go"}}, {"name": "file_read", "arguments": {"path": "b.go"}}]`
	calls := ParseToolCalls(content)
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
}

func TestParseToolCallsNoMatch(t *testing.T) {
	content := "The task is complete, no further action is needed."
	calls := ParseToolCalls(content)
	if calls != nil {
		t.Fatalf("expected no calls, got %d", len(calls))
	}
}

func TestParseToolCallsEmptyContent(t *testing.T) {
	if calls := ParseToolCalls("   "); calls != nil {
		t.Fatalf("expected nil for blank content, got %v", calls)
	}
}

func TestExtractJSONFromMarkdownPlainFence(t *testing.T) {
	content := "```\n{\"name\": \"grep\", \"arguments\": {}}\n```"
	extracted, ok := extractJSONFromMarkdown(content)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if extracted != `{"name": "grep", "arguments": {}}` {
		t.Fatalf("unexpected extraction: %q", extracted)
	}
}

func TestExtractJSONFromMarkdownNoFence(t *testing.T) {
	if _, ok := extractJSONFromMarkdown("just plain text"); ok {
		t.Fatal("expected no fence to be found")
	}
}
