package context

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func readFileString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Config bounds how much context a selection pass can accumulate.
type Config struct {
	MaxTokens int
}

// DefaultConfig mirrors the original's default context budget.
func DefaultConfig() Config { return Config{MaxTokens: 8000} }

var stopWords = buildStopWords()

func buildStopWords() map[string]bool {
	words := []string{
		"a", "an", "the", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did", "will", "would", "could",
		"should", "may", "might", "must", "shall", "can", "need", "dare",
		"to", "of", "in", "for", "on", "with", "at", "by", "from", "as",
		"into", "through", "during", "before", "after", "above", "below",
		"between", "under", "again", "further", "then", "once", "here",
		"there", "when", "where", "why", "how", "all", "each", "few", "more",
		"most", "other", "some", "such", "no", "nor", "not", "only", "own",
		"same", "so", "than", "too", "very", "just", "and", "but", "if",
		"or", "because", "until", "while", "this", "that", "these", "those",
		"i", "me", "my", "we", "our", "you", "your", "he", "him", "his",
		"she", "her", "it", "its", "they", "them", "their", "what", "which",
		"who", "whom", "file", "files", "code", "function", "functions",
		"find", "search", "look", "show", "list", "create", "add", "remove",
		"delete", "update", "change", "modify", "help", "please", "want",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var excludedDirs = []string{
	"/target/", "/node_modules/", "/.git/", "/dist/", "/build/",
	"/__pycache__/", "/venv/", "/.venv/", "/vendor/", "/.idea/", "/.vscode/",
}

func isExcluded(path string) bool {
	for _, e := range excludedDirs {
		if strings.Contains(path, e) {
			return true
		}
	}
	return false
}

var nameMatchExtensions = []string{
	"go", "rs", "py", "ts", "tsx", "js", "jsx", "java", "toml", "yaml", "yml", "md",
}

var contentMatchExtensions = []string{
	"go", "rs", "py", "ts", "js", "java", "c", "cpp", "h",
}

var defPatternKeywords = []string{
	"fn ", "def ", "function ", "class ", "struct ", "enum ", "trait ", "impl ", "type ", "const ", "func ",
}

// Selector picks a relevant working set of files for a query, combining
// name matching, content matching, and optional embedding similarity
// into a single ranked, token-budgeted bundle.
type Selector struct {
	projectRoot string
	config      Config
	fileIndex   *FileIndex
	embeddings  EmbeddingEngine // nil disables semantic search entirely
	tokenizer   Tokenizer

	keywords []string
}

// NewSelector builds a selector rooted at projectRoot. A missing or
// unopenable file index is tolerated; the selector just re-reads files
// on every pass instead of caching metadata.
func NewSelector(projectRoot string) *Selector {
	idx, _ := NewFileIndex(projectRoot)
	return &Selector{
		projectRoot: projectRoot,
		config:      DefaultConfig(),
		fileIndex:   idx,
		tokenizer:   DefaultTokenizer(),
	}
}

// WithMaxTokens overrides the context token budget.
func (s *Selector) WithMaxTokens(tokens int) *Selector {
	s.config.MaxTokens = tokens
	return s
}

// WithModel picks the tokenizer matched to model.
func (s *Selector) WithModel(model string) *Selector {
	s.tokenizer = NewTokenizer(model)
	return s
}

// WithEmbeddings enables semantic search using engine. Passing nil
// disables it again.
func (s *Selector) WithEmbeddings(engine EmbeddingEngine) *Selector {
	s.embeddings = engine
	return s
}

// ExtractKeywords lowercases query, splits on everything but
// alphanumerics/underscore/hyphen, drops stop words and anything
// shorter than 3 characters, deduplicates preserving order, and caps
// the result at 15 keywords.
func ExtractKeywords(query string) []string {
	lower := strings.ToLower(query)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-')
	})

	seen := make(map[string]bool)
	var keywords []string
	for _, f := range fields {
		if len(f) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
		if len(keywords) >= 15 {
			break
		}
	}
	return keywords
}

// scoredFile is an accumulator for per-path match scores.
type scoredFile map[string]float32

func (s *Selector) findFilesByName() scoredFile {
	matches := make(scoredFile)
	for _, keyword := range s.keywords {
		for _, ext := range nameMatchExtensions {
			s.walkMatchingName(keyword, ext, matches)
		}
	}
	return matches
}

func (s *Selector) walkMatchingName(keyword, ext string, matches scoredFile) {
	_ = filepath.WalkDir(s.projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if isExcluded(path) {
			return nil
		}
		if filepath.Ext(path) != "."+ext {
			return nil
		}
		filename := strings.ToLower(d.Name())
		if !strings.Contains(filename, keyword) {
			return nil
		}

		var score float32
		switch {
		case filename == keyword+"."+ext:
			score = 10.0
		case strings.HasPrefix(filename, keyword):
			score = 8.0
		case strings.HasSuffix(filename, keyword+"."+ext):
			score = 7.0
		default:
			score = 5.0
		}
		matches[path] += score
		return nil
	})
}

func (s *Selector) findFilesByContent() scoredFile {
	matches := make(scoredFile)
	seenExt := make(map[string]bool, len(contentMatchExtensions))
	for _, e := range contentMatchExtensions {
		seenExt["."+e] = true
	}

	_ = filepath.WalkDir(s.projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if isExcluded(path) || !seenExt[filepath.Ext(path)] {
			return nil
		}
		content, err := readFileString(path)
		if err != nil {
			return nil
		}
		contentLower := strings.ToLower(content)

		for _, keyword := range s.keywords {
			count := strings.Count(contentLower, keyword)
			if count == 0 {
				continue
			}
			baseScore := float32(sqrtApprox(count))

			var defBonus float32
			for _, pattern := range defPatternKeywords {
				if strings.Contains(contentLower, pattern+keyword) {
					defBonus += 3.0
				}
			}
			matches[path] += baseScore + defBonus
		}
		return nil
	})
	return matches
}

func sqrtApprox(n int) float64 {
	if n <= 0 {
		return 0
	}
	x := float64(n)
	guess := x
	for i := 0; i < 20; i++ {
		guess = 0.5 * (guess + x/guess)
	}
	return guess
}

func (s *Selector) findFilesBySemantics(ctx context.Context, query string) scoredFile {
	matches := make(scoredFile)
	if s.embeddings == nil {
		return matches
	}
	queryVec, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		return matches
	}
	for _, m := range s.embeddings.Search(queryVec, 10) {
		if m.Similarity > 0.3 {
			matches[m.Path] += m.Similarity * 5.0
		}
	}
	return matches
}

type rankedFile struct {
	Path  string
	Score float32
}

func rankFiles(name, content, semantic scoredFile) []rankedFile {
	combined := make(scoredFile)
	for path, score := range name {
		combined[path] += score * 1.5
	}
	for path, score := range content {
		combined[path] += score
	}
	for path, score := range semantic {
		combined[path] += score
	}

	ranked := make([]rankedFile, 0, len(combined))
	for path, score := range combined {
		ranked = append(ranked, rankedFile{Path: path, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > 20 {
		ranked = ranked[:20]
	}
	return ranked
}

// SelectContext runs the full selection pipeline for query: extract
// keywords, gather name/content/semantic matches, rank them, and pack
// file contents into the token budget (truncating high-scoring files
// that would otherwise not fit rather than dropping them outright).
func (s *Selector) SelectContext(ctx context.Context, query string) (*SmartContext, error) {
	s.keywords = ExtractKeywords(query)

	nameMatches := s.findFilesByName()
	contentMatches := s.findFilesByContent()
	semanticMatches := s.findFilesBySemantics(ctx, query)

	ranked := rankFiles(nameMatches, contentMatches, semanticMatches)

	result := NewSmartContext()
	currentTokens := 0
	maxTokens := s.config.MaxTokens

	for _, rf := range ranked {
		if currentTokens >= maxTokens {
			break
		}

		size := s.fileSize(rf.Path)
		if size > 50_000 {
			continue
		}

		content, err := readFileString(rf.Path)
		if err != nil {
			continue
		}
		fileTokens := s.tokenizer.CountTokens(content)

		if currentTokens+fileTokens+50 > maxTokens {
			if rf.Score > 5.0 && currentTokens+500 < maxTokens {
				available := maxTokens - currentTokens - 100
				if available > 500 {
					available = 500
				}
				truncated := s.tokenizer.TruncateToTokens(content, available)
				result.AddFile(rf.Path, truncated, true)
				currentTokens += s.tokenizer.CountTokens(truncated)
			}
			continue
		}

		result.AddFile(rf.Path, content, false)
		currentTokens += fileTokens + 50
	}

	return result, nil
}

func (s *Selector) fileSize(path string) int64 {
	if s.fileIndex != nil {
		if meta, ok := s.fileIndex.Get(path); ok {
			return meta.Size
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// IndexFiles scans the project for indexable source/doc files and
// records their metadata in the file index, persisting the result.
func (s *Selector) IndexFiles() (int, error) {
	if s.fileIndex == nil {
		return 0, nil
	}
	extensions := map[string]bool{".go": true, ".rs": true, ".py": true, ".ts": true, ".js": true,
		".java": true, ".c": true, ".cpp": true, ".h": true, ".md": true}

	count := 0
	err := filepath.WalkDir(s.projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if isExcluded(path) || !extensions[filepath.Ext(path)] {
			return nil
		}
		if _, ok := s.fileIndex.Get(path); ok {
			count++
		}
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("index project files: %w", err)
	}
	return count, s.fileIndex.Save()
}

// SmartContextFile is a single file selected into the context bundle.
type SmartContextFile struct {
	Path      string
	Content   string
	Truncated bool
}

// SmartContext is the result of a selection pass.
type SmartContext struct {
	Files []SmartContextFile
}

// NewSmartContext returns an empty context.
func NewSmartContext() *SmartContext { return &SmartContext{} }

// AddFile appends a selected file.
func (c *SmartContext) AddFile(path, content string, truncated bool) {
	c.Files = append(c.Files, SmartContextFile{Path: path, Content: content, Truncated: truncated})
}

// IsEmpty reports whether no files were selected.
func (c *SmartContext) IsEmpty() bool { return len(c.Files) == 0 }

// CharCount sums the selected files' content length in bytes.
func (c *SmartContext) CharCount() int {
	total := 0
	for _, f := range c.Files {
		total += len(f.Content)
	}
	return total
}

// TokenCount sums the selected files' token counts under the default
// tokenizer.
func (c *SmartContext) TokenCount() int {
	total := 0
	for _, f := range c.Files {
		total += CountTokens(f.Content)
	}
	return total
}

// ToContextString renders the selection as a Markdown block suitable
// for splicing into a system prompt.
func (c *SmartContext) ToContextString() string {
	if len(c.Files) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Relevant Files (Auto-selected)\n\n")
	for _, f := range c.Files {
		fmt.Fprintf(&sb, "### %s\n\n```\n%s", f.Path, f.Content)
		if f.Truncated {
			sb.WriteString("\n... (truncated)")
		}
		sb.WriteString("\n```\n\n")
	}
	return sb.String()
}
