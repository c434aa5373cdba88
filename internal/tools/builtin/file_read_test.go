package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentoven/quant-go/internal/models"
)

func TestFileReadToolReadsWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	raw, _ := json.Marshal(map[string]any{"path": "sample.txt"})
	result, err := FileReadTool{}.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: dir})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}
	if !strings.Contains(result.Output, "three") {
		t.Fatalf("expected output to contain file content, got: %s", result.Output)
	}
}

func TestFileReadToolRespectsOffsetAndLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lines.txt")
	if err := os.WriteFile(path, []byte("a\nb\nc\nd\ne\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	raw, _ := json.Marshal(map[string]any{"path": "lines.txt", "offset": 2, "limit": 2})
	result, err := FileReadTool{}.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: dir})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(result.Output, "\ta\n") {
		t.Fatal("expected offset to skip the first line")
	}
	if !strings.Contains(result.Output, "b") || !strings.Contains(result.Output, "c") {
		t.Fatalf("expected lines b and c in window, got: %s", result.Output)
	}
	if strings.Contains(result.Output, "\te\n") {
		t.Fatal("expected limit to exclude line e")
	}
}

func TestFileReadToolMissingFile(t *testing.T) {
	dir := t.TempDir()
	raw, _ := json.Marshal(map[string]any{"path": "missing.txt"})
	result, err := FileReadTool{}.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: dir})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for missing file")
	}
}

func TestFileReadToolRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	raw, _ := json.Marshal(map[string]any{"path": "."})
	result, err := FileReadTool{}.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: dir})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for directory path")
	}
}
