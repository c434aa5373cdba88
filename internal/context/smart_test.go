package context

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractKeywords(t *testing.T) {
	keywords := ExtractKeywords("Find all functions related to session persistence")
	assertContains(t, keywords, "session")
	assertContains(t, keywords, "persistence")
	assertNotContains(t, keywords, "find")
	assertNotContains(t, keywords, "all")
}

func TestExtractKeywordsCodeTerms(t *testing.T) {
	keywords := ExtractKeywords("implement the agent_loop with tool-router")
	assertContains(t, keywords, "implement")
	assertContains(t, keywords, "agent_loop")
	assertContains(t, keywords, "tool-router")
}

func TestExtractKeywordsCapsAtFifteen(t *testing.T) {
	keywords := ExtractKeywords("alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu xi omicron pi rho")
	if len(keywords) > 15 {
		t.Fatalf("expected at most 15 keywords, got %d", len(keywords))
	}
}

func assertContains(t *testing.T, haystack []string, needle string) {
	t.Helper()
	for _, s := range haystack {
		if s == needle {
			return
		}
	}
	t.Fatalf("expected %v to contain %q", haystack, needle)
}

func assertNotContains(t *testing.T, haystack []string, needle string) {
	t.Helper()
	for _, s := range haystack {
		if s == needle {
			t.Fatalf("expected %v not to contain %q", haystack, needle)
		}
	}
}

func TestSmartContextEmpty(t *testing.T) {
	ctx := NewSmartContext()
	if !ctx.IsEmpty() {
		t.Fatal("expected new context to be empty")
	}
	if ctx.CharCount() != 0 {
		t.Fatal("expected zero char count")
	}
	if ctx.ToContextString() != "" {
		t.Fatal("expected empty render for empty context")
	}
}

func TestSmartContextWithFile(t *testing.T) {
	ctx := NewSmartContext()
	ctx.AddFile("main.go", "func main() {}", false)

	if ctx.IsEmpty() {
		t.Fatal("expected non-empty context")
	}
	if len(ctx.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(ctx.Files))
	}
	out := ctx.ToContextString()
	if !contains(out, "main.go") || !contains(out, "func main()") {
		t.Fatalf("unexpected render: %s", out)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func TestSelectorFindsFilesByName(t *testing.T) {
	dir := t.TempDir()
	sessionFile := filepath.Join(dir, "session_manager.go")
	if err := os.WriteFile(sessionFile, []byte("package main\n\nfunc run() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "unrelated.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	selector := NewSelector(dir).WithMaxTokens(4000)
	result, err := selector.SelectContext(context.Background(), "fix the session manager")
	if err != nil {
		t.Fatal(err)
	}
	if result.IsEmpty() {
		t.Fatal("expected at least one file selected")
	}

	found := false
	for _, f := range result.Files {
		if filepath.Base(f.Path) == "session_manager.go" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session_manager.go among selected files, got %+v", result.Files)
	}
}

func TestSelectorRespectsExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	nodeModules := filepath.Join(dir, "node_modules")
	if err := os.MkdirAll(nodeModules, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nodeModules, "widget.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	selector := NewSelector(dir)
	result, err := selector.SelectContext(context.Background(), "widget")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range result.Files {
		if contains(f.Path, "node_modules") {
			t.Fatalf("expected node_modules to be excluded, got %q", f.Path)
		}
	}
}

func TestIsExcluded(t *testing.T) {
	if !isExcluded("/project/node_modules/pkg/index.js") {
		t.Fatal("expected node_modules path to be excluded")
	}
	if isExcluded("/project/src/main.go") {
		t.Fatal("expected src path to not be excluded")
	}
}
