package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agentoven/quant-go/internal/chatclient"
	"github.com/agentoven/quant-go/internal/gate"
	"github.com/agentoven/quant-go/internal/hooks"
	"github.com/agentoven/quant-go/internal/models"
	"github.com/agentoven/quant-go/internal/toolrouter"
	"github.com/agentoven/quant-go/internal/tools"
)

// scriptedModelServer replies to successive /api/chat calls with one
// NDJSON line per call, taken in order from responses. It loops the
// last response if more calls arrive than were scripted.
func scriptedModelServer(t *testing.T, responses []string) *httptest.Server {
	t.Helper()
	call := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := call
		if idx >= len(responses) {
			idx = len(responses) - 1
		}
		call++
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, responses[idx])
	}))
}

func doneChunk(content string) string {
	b, _ := json.Marshal(map[string]any{
		"model": "test",
		"message": map[string]any{
			"role":    "assistant",
			"content": content,
		},
		"done":              true,
		"eval_count":        5,
		"prompt_eval_count": 5,
	})
	return string(b)
}

// echoTool always succeeds and returns its arguments verbatim.
type echoTool struct{}

func (echoTool) Name() string                            { return "echo" }
func (echoTool) Description() string                     { return "echoes its arguments" }
func (echoTool) SecurityLevel() models.SecurityLevel      { return models.Safe }
func (echoTool) ParametersSchema() models.ParameterSchema { return models.NewParameterSchema() }
func (echoTool) Execute(_ context.Context, args json.RawMessage, _ *models.ToolContext) (*models.ToolResult, error) {
	return models.SuccessResult(string(args)), nil
}

// alwaysFailTool always reports failure without erroring.
type alwaysFailTool struct{}

func (alwaysFailTool) Name() string                            { return "bash" }
func (alwaysFailTool) Description() string                     { return "always fails" }
func (alwaysFailTool) SecurityLevel() models.SecurityLevel      { return models.Dangerous }
func (alwaysFailTool) ParametersSchema() models.ParameterSchema { return models.NewParameterSchema() }
func (alwaysFailTool) Execute(_ context.Context, _ json.RawMessage, _ *models.ToolContext) (*models.ToolResult, error) {
	return models.ErrorResult("exit code 1"), nil
}

func newTestLoop(t *testing.T, baseURL string, reg *tools.Registry) *Loop {
	t.Helper()
	client := chatclient.New(baseURL, 5*time.Second)
	router := toolrouter.New(reg, gate.AutoApprove{})
	cfg := DefaultConfig("test-model", t.TempDir())
	cfg.MaxIterations = 5
	cfg.SystemPrompt = "system prompt fixed for test"
	return New(client, router, hooks.NewManager(), nil, cfg)
}

func TestRunFinishesWithoutToolCalls(t *testing.T) {
	server := scriptedModelServer(t, []string{doneChunk("All done, nothing further needed.")})
	defer server.Close()

	reg := tools.NewRegistry()
	loop := newTestLoop(t, server.URL, reg)

	state, err := loop.Run(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.Finished || state.Error != "" {
		t.Fatalf("expected clean finish, got %+v", state)
	}
	if state.Iteration != 1 {
		t.Fatalf("expected 1 iteration, got %d", state.Iteration)
	}
}

func TestRunDispatchesToolCallFromContentJSON(t *testing.T) {
	toolCallContent := `{"name": "echo", "arguments": {"msg": "hi"}}`
	server := scriptedModelServer(t, []string{
		doneChunk(toolCallContent),
		doneChunk("Task complete."),
	})
	defer server.Close()

	reg := tools.NewRegistry()
	reg.Register(echoTool{})
	loop := newTestLoop(t, server.URL, reg)

	state, err := loop.Run(context.Background(), "echo hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.Finished || state.Error != "" {
		t.Fatalf("expected clean finish, got %+v", state)
	}

	var sawToolResult bool
	for _, m := range state.Messages {
		if m.Role == models.RoleTool {
			sawToolResult = true
			if m.ToolCallID != "echo" {
				t.Fatalf("expected tool_call_id to fall back to tool name, got %q", m.ToolCallID)
			}
		}
	}
	if !sawToolResult {
		t.Fatal("expected a tool-role message in the conversation")
	}
}

func TestRunAbortsAfterThreeConsecutiveIdenticalFailures(t *testing.T) {
	toolCallContent := `{"name": "bash", "arguments": {"command": "false"}}`
	// Model keeps asking for the same failing call every iteration.
	server := scriptedModelServer(t, []string{doneChunk(toolCallContent)})
	defer server.Close()

	reg := tools.NewRegistry()
	reg.Register(alwaysFailTool{})
	loop := newTestLoop(t, server.URL, reg)

	state, err := loop.Run(context.Background(), "run a failing command")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Error == "" {
		t.Fatal("expected the loop to abort with an error after repeated failures")
	}
	if state.Iteration > 3 {
		t.Fatalf("expected abort within 3 iterations, got %d", state.Iteration)
	}
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	toolCallContent := `{"name": "echo", "arguments": {}}`
	server := scriptedModelServer(t, []string{doneChunk(toolCallContent)})
	defer server.Close()

	reg := tools.NewRegistry()
	reg.Register(echoTool{})
	loop := newTestLoop(t, server.URL, reg)
	loop.Config.MaxIterations = 2

	state, err := loop.Run(context.Background(), "keep echoing forever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Iteration != 2 {
		t.Fatalf("expected exactly 2 iterations, got %d", state.Iteration)
	}
	if state.Error == "" {
		t.Fatal("expected a max-iterations error")
	}
}
