package builtin

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/agentoven/quant-go/internal/models"
)

func TestSandboxToolFallsBackToBashWhenNoBackend(t *testing.T) {
	tool := &SandboxTool{Backend: backendNone}
	raw, _ := json.Marshal(map[string]any{"command": "echo hi"})
	result, err := tool.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: t.TempDir()})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Error)
	}
	if !strings.Contains(result.Output, "[sandbox: none]") {
		t.Fatalf("expected backend label in output, got: %s", result.Output)
	}
}

func TestSandboxToolReportsNonzeroExit(t *testing.T) {
	tool := &SandboxTool{Backend: backendNone}
	raw, _ := json.Marshal(map[string]any{"command": "exit 2"})
	result, err := tool.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: t.TempDir()})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for nonzero exit")
	}
}

func TestSandboxToolMissingCommand(t *testing.T) {
	tool := &SandboxTool{Backend: backendNone}
	raw, _ := json.Marshal(map[string]any{})
	result, err := tool.Execute(context.Background(), raw, &models.ToolContext{WorkingDir: t.TempDir()})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for missing command")
	}
}

func TestSandboxBackendString(t *testing.T) {
	cases := map[sandboxBackend]string{
		backendNone:      "none",
		backendFirejail:  "firejail",
		backendBubblewrap: "bubblewrap",
		backendDocker:    "docker",
	}
	for backend, want := range cases {
		if got := backend.String(); got != want {
			t.Fatalf("backend %d: expected %q, got %q", backend, want, got)
		}
	}
}
