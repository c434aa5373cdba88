// Package context implements smart, query-driven file selection for
// building the agent's working context: keyword and content matching,
// optional semantic search, token-aware packing, and a cached file
// index to keep repeated scans cheap.
package context

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackCharsPerToken is the rough estimate used when the cl100k
// encoding table can't be loaded.
const fallbackCharsPerToken = 4

// Type selects which counting strategy a Tokenizer uses.
type Type int

const (
	Cl100kBase Type = iota
	Fallback
)

var (
	cl100kOnce sync.Once
	cl100kEnc  *tiktoken.Tiktoken
)

func cl100kEncoding() *tiktoken.Tiktoken {
	cl100kOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			cl100kEnc = enc
		}
	})
	return cl100kEnc
}

// TypeFromModelName picks Cl100kBase for every model family the agent
// is expected to talk to (OpenAI-style and local open-weight models
// alike); everything else falls back to the character estimate.
func TypeFromModelName(model string) Type {
	m := strings.ToLower(model)
	families := []string{
		"gpt-4", "gpt-3.5", "claude", "text-embedding",
		"llama", "mistral", "qwen", "codellama", "deepseek", "phi",
	}
	for _, f := range families {
		if strings.Contains(m, f) {
			return Cl100kBase
		}
	}
	return Fallback
}

// Tokenizer counts and truncates text by (approximate) model tokens.
type Tokenizer struct {
	typ Type
}

// NewTokenizer builds a tokenizer matched to model's family.
func NewTokenizer(model string) Tokenizer {
	return Tokenizer{typ: TypeFromModelName(model)}
}

// WithType builds a tokenizer with an explicit strategy.
func WithType(t Type) Tokenizer { return Tokenizer{typ: t} }

// DefaultTokenizer assumes cl100k_base, the common case for this agent's
// target models.
func DefaultTokenizer() Tokenizer { return WithType(Cl100kBase) }

// CountTokens counts tokens in text, falling back to a char/4 estimate
// if the real encoder is unavailable or the tokenizer is Fallback.
func (t Tokenizer) CountTokens(text string) int {
	if t.typ == Cl100kBase {
		if enc := cl100kEncoding(); enc != nil {
			return len(enc.Encode(text, nil, nil))
		}
	}
	return len(text) / fallbackCharsPerToken
}

// TruncateToTokens truncates text so it encodes to at most maxTokens
// tokens, falling back to character truncation when the real encoder
// can't decode the truncated token slice.
func (t Tokenizer) TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if t.typ == Cl100kBase {
		if enc := cl100kEncoding(); enc != nil {
			tokens := enc.Encode(text, nil, nil)
			if len(tokens) <= maxTokens {
				return text
			}
			decoded, err := enc.Decode(tokens[:maxTokens])
			if err == nil {
				return decoded
			}
		}
	}
	charLimit := maxTokens * fallbackCharsPerToken
	runes := []rune(text)
	if charLimit > len(runes) {
		charLimit = len(runes)
	}
	return string(runes[:charLimit])
}

// AvgCharsPerToken is a rough estimate used for sizing decisions before
// a full encode is worth the cost.
func (t Tokenizer) AvgCharsPerToken() float64 {
	if t.typ == Cl100kBase {
		return 4.0
	}
	return float64(fallbackCharsPerToken)
}

// CountTokens counts tokens in text using the default tokenizer.
func CountTokens(text string) int { return DefaultTokenizer().CountTokens(text) }

// TruncateToTokens truncates text using the default tokenizer.
func TruncateToTokens(text string, maxTokens int) string {
	return DefaultTokenizer().TruncateToTokens(text, maxTokens)
}

// CountTokensForModel counts tokens using the tokenizer matched to model.
func CountTokensForModel(text, model string) int {
	return NewTokenizer(model).CountTokens(text)
}
