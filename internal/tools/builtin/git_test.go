package builtin

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentoven/quant-go/internal/models"
)

func setupGitFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	run("add", "README.md")
	run("commit", "-q", "-m", "initial commit")
	return dir
}

func runGit(t *testing.T, dir string, args map[string]any) *models.ToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	result, err := GitTool{}.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: dir})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return result
}

func TestGitToolRejectsNonRepo(t *testing.T) {
	result := runGit(t, t.TempDir(), map[string]any{"operation": "status"})
	if result.Success {
		t.Fatal("expected failure outside a git repository")
	}
}

func TestGitToolStatusCleanTree(t *testing.T) {
	dir := setupGitFixture(t)
	result := runGit(t, dir, map[string]any{"operation": "status"})
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}
	if !strings.Contains(result.Output, "clean") {
		t.Fatalf("expected clean working tree, got: %s", result.Output)
	}
}

func TestGitToolStatusShowsChanges(t *testing.T) {
	dir := setupGitFixture(t)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello again\n"), 0o644); err != nil {
		t.Fatalf("modify fixture: %v", err)
	}
	result := runGit(t, dir, map[string]any{"operation": "status"})
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}
	if !strings.Contains(result.Output, "README.md") {
		t.Fatalf("expected modified file listed, got: %s", result.Output)
	}
}

func TestGitToolLog(t *testing.T) {
	dir := setupGitFixture(t)
	result := runGit(t, dir, map[string]any{"operation": "log", "count": 5})
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}
	if !strings.Contains(result.Output, "initial commit") {
		t.Fatalf("expected log to mention commit message, got: %s", result.Output)
	}
}

func TestGitToolAddAndCommit(t *testing.T) {
	dir := setupGitFixture(t)
	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("content\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	addResult := runGit(t, dir, map[string]any{"operation": "add", "files": "new.txt"})
	if !addResult.Success {
		t.Fatalf("expected add to succeed, got: %s", addResult.Error)
	}
	commitResult := runGit(t, dir, map[string]any{"operation": "commit", "message": "add new file"})
	if !commitResult.Success {
		t.Fatalf("expected commit to succeed, got: %s", commitResult.Error)
	}
}

func TestGitToolUnknownOperation(t *testing.T) {
	dir := setupGitFixture(t)
	result := runGit(t, dir, map[string]any{"operation": "bogus"})
	if result.Success {
		t.Fatal("expected failure for unknown operation")
	}
}

func TestGitToolBranches(t *testing.T) {
	dir := setupGitFixture(t)
	result := runGit(t, dir, map[string]any{"operation": "branches"})
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}
}
