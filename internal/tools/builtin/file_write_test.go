package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentoven/quant-go/internal/models"
)

func TestFileWriteToolCreatesFile(t *testing.T) {
	dir := t.TempDir()
	raw, _ := json.Marshal(map[string]any{"path": "out.txt", "content": "hello world"})
	result, err := FileWriteTool{}.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: dir})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}

	content, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(content) != "hello world" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestFileWriteToolCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	raw, _ := json.Marshal(map[string]any{"path": "nested/dir/out.txt", "content": "x"})
	result, err := FileWriteTool{}.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: dir})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested", "dir", "out.txt")); err != nil {
		t.Fatalf("expected nested file to exist: %v", err)
	}
}

func TestFileWriteToolAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	raw, _ := json.Marshal(map[string]any{"path": "log.txt", "content": "second\n", "append": true})
	result, err := FileWriteTool{}.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: dir})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read appended file: %v", err)
	}
	if string(content) != "first\nsecond\n" {
		t.Fatalf("unexpected appended content: %q", content)
	}
}

func TestFileWriteToolMissingPath(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"content": "x"})
	result, err := FileWriteTool{}.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: t.TempDir()})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for missing path")
	}
}
