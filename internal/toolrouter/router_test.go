package toolrouter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentoven/quant-go/internal/gate"
	"github.com/agentoven/quant-go/internal/models"
	"github.com/agentoven/quant-go/internal/tools"
)

// echoTool is a test fixture that echoes its arguments back.
type echoTool struct {
	level models.SecurityLevel
	fail  bool
}

func (e *echoTool) Name() string                             { return "echo" }
func (e *echoTool) Description() string                      { return "echoes input" }
func (e *echoTool) SecurityLevel() models.SecurityLevel       { return e.level }
func (e *echoTool) ParametersSchema() models.ParameterSchema  { return models.NewParameterSchema() }
func (e *echoTool) Execute(_ context.Context, args json.RawMessage, _ *models.ToolContext) (*models.ToolResult, error) {
	if e.fail {
		return models.ErrorResult("forced failure"), nil
	}
	return models.SuccessResult(string(args)), nil
}

func newTestRouter(t *testing.T, tool tools.Tool, g gate.Handler) *Router {
	t.Helper()
	reg := tools.NewRegistry()
	reg.Register(tool)
	return New(reg, g)
}

func TestRouteSuccess(t *testing.T) {
	r := newTestRouter(t, &echoTool{level: models.Safe}, gate.AutoApprove{})
	tc := &models.ToolContext{}
	res := r.Route(context.Background(), models.ToolCall{Name: "echo", Arguments: json.RawMessage(`{"a":1}`)}, tc)
	if res.Outcome != Success {
		t.Fatalf("expected Success, got %v", res.Outcome)
	}
	if !res.Result.Success {
		t.Fatalf("expected tool result success")
	}
}

func TestRouteNotFound(t *testing.T) {
	r := newTestRouter(t, &echoTool{level: models.Safe}, gate.AutoApprove{})
	tc := &models.ToolContext{}
	res := r.Route(context.Background(), models.ToolCall{Name: "nope"}, tc)
	if res.Outcome != NotFound {
		t.Fatalf("expected NotFound, got %v", res.Outcome)
	}
}

func TestRouteDenied(t *testing.T) {
	r := newTestRouter(t, &echoTool{level: models.Dangerous}, gate.AutoDeny{})
	tc := &models.ToolContext{}
	res := r.Route(context.Background(), models.ToolCall{Name: "echo"}, tc)
	if res.Outcome != Denied {
		t.Fatalf("expected Denied, got %v", res.Outcome)
	}
}

// abortGate always aborts, to exercise RouteAll's stop-on-Aborted
// behavior.
type abortGate struct{}

func (abortGate) Confirm(models.ToolCall, models.SecurityLevel) gate.Decision { return gate.Abort }

func TestRouteAllStopsOnAbort(t *testing.T) {
	r := newTestRouter(t, &echoTool{level: models.Dangerous}, abortGate{})
	tc := &models.ToolContext{}
	calls := []models.ToolCall{{Name: "echo"}, {Name: "echo"}, {Name: "echo"}}
	results := r.RouteAll(context.Background(), calls, tc)
	if len(results) != 1 {
		t.Fatalf("expected batch to stop after first Aborted, got %d results", len(results))
	}
	if results[0].Outcome != Aborted {
		t.Fatalf("expected Aborted, got %v", results[0].Outcome)
	}
}

func TestRouteFailureResultIsFailure(t *testing.T) {
	r := newTestRouter(t, &echoTool{level: models.Safe, fail: true}, gate.AutoApprove{})
	tc := &models.ToolContext{}
	res := r.Route(context.Background(), models.ToolCall{Name: "echo"}, tc)
	if res.Outcome != Success {
		t.Fatalf("expected route Outcome Success wrapping a failed ToolResult, got %v", res.Outcome)
	}
	if !res.IsFailure() {
		t.Fatal("expected IsFailure to be true for a failed ToolResult")
	}
}
