package context

import "testing"

func TestTypeFromModelName(t *testing.T) {
	cases := map[string]Type{
		"gpt-4":          Cl100kBase,
		"gpt-3.5-turbo":  Cl100kBase,
		"claude-3":       Cl100kBase,
		"llama3.2":       Cl100kBase,
		"unknown-model":  Fallback,
	}
	for model, want := range cases {
		if got := TypeFromModelName(model); got != want {
			t.Errorf("TypeFromModelName(%q) = %v, want %v", model, got, want)
		}
	}
}

func TestCountTokensReasonable(t *testing.T) {
	tok := DefaultTokenizer()
	count := tok.CountTokens("Hello, world! This is a test.")
	if count <= 0 || count >= 20 {
		t.Fatalf("unexpected token count: %d", count)
	}
}

func TestTruncateToTokens(t *testing.T) {
	tok := DefaultTokenizer()
	text := "This is a long text that should be truncated to fit within the token limit."
	truncated := tok.TruncateToTokens(text, 5)
	if tok.CountTokens(truncated) > 5 {
		t.Fatalf("expected truncated text to fit in 5 tokens, got %d", tok.CountTokens(truncated))
	}
}

func TestFallbackTokenizer(t *testing.T) {
	tok := WithType(Fallback)
	count := tok.CountTokens("Hello world") // 11 chars
	if count != 2 {
		t.Fatalf("expected 11/4=2 tokens, got %d", count)
	}
}

func TestGlobalTokenHelpers(t *testing.T) {
	count := CountTokens("Test text")
	if count <= 0 {
		t.Fatal("expected positive token count")
	}
	truncated := TruncateToTokens("Test text", 2)
	if CountTokens(truncated) > 2 {
		t.Fatalf("expected truncated text to fit in 2 tokens")
	}
}
