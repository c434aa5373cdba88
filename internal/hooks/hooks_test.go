package hooks

import (
	"context"
	"strings"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestHookContextEnvVars(t *testing.T) {
	iter := 5
	c := Context{WorkingDir: "/test", Iteration: &iter, ToolName: "bash", ToolArgs: `{"command":"echo hi"}`, Task: "Test task"}
	vars := c.ToEnvVars()
	joined := strings.Join(vars, "\n")
	if !strings.Contains(joined, "QUANT_WORKING_DIR=/test") {
		t.Fatal("missing working dir")
	}
	if !strings.Contains(joined, "QUANT_ITERATION=5") {
		t.Fatal("missing iteration")
	}
	if !strings.Contains(joined, "QUANT_TOOL_NAME=bash") {
		t.Fatal("missing tool name")
	}
	if !strings.Contains(joined, "QUANT_TASK=Test task") {
		t.Fatal("missing task")
	}
}

func TestManagerRegisterAndFilter(t *testing.T) {
	m := NewManager()
	m.Register(Hook{Name: "test_hook", Event: AgentStart, Command: "echo starting"})

	if len(m.HooksForEvent(AgentStart, "")) != 1 {
		t.Fatal("expected 1 hook for agent_start")
	}
	if len(m.HooksForEvent(AgentFinish, "")) != 0 {
		t.Fatal("expected 0 hooks for agent_finish")
	}
}

func TestManagerToolFilter(t *testing.T) {
	m := NewManager()
	m.Register(Hook{Name: "bash_hook", Event: ToolBefore, Command: "echo before bash", ToolFilter: "bash"})

	if len(m.HooksForEvent(ToolBefore, "bash")) != 1 {
		t.Fatal("expected match for bash")
	}
	if len(m.HooksForEvent(ToolBefore, "grep")) != 0 {
		t.Fatal("expected no match for grep")
	}
}

func TestDisabledHooksNotRun(t *testing.T) {
	m := NewManager()
	m.Register(Hook{Name: "disabled", Event: AgentStart, Command: "echo nope", Enabled: boolPtr(false)})
	if len(m.HooksForEvent(AgentStart, "")) != 0 {
		t.Fatal("disabled hook should not be returned")
	}
}

func TestRunHooksExecutesCommand(t *testing.T) {
	m := NewManager()
	m.Register(Hook{Name: "echo_hook", Event: AgentStart, Command: `echo "Task: $QUANT_TASK"`, TimeoutSecs: 5})

	dir := t.TempDir()
	results := m.RunHooks(context.Background(), AgentStart, Context{WorkingDir: dir, Task: "my test task"}, "")
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].Success {
		t.Fatalf("expected success, got error: %s", results[0].Error)
	}
	if !strings.Contains(results[0].Output, "my test task") {
		t.Fatalf("expected output to contain task, got: %s", results[0].Output)
	}
}

func TestRunHooksTimeout(t *testing.T) {
	m := NewManager()
	m.Register(Hook{Name: "slow_hook", Event: AgentStart, Command: "sleep 5", TimeoutSecs: 1})

	dir := t.TempDir()
	results := m.RunHooks(context.Background(), AgentStart, Context{WorkingDir: dir}, "")
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Success {
		t.Fatal("expected timeout to fail")
	}
	if !strings.Contains(results[0].Error, "timed out") {
		t.Fatalf("expected timeout error, got: %s", results[0].Error)
	}
}

func TestHasAbortingHooks(t *testing.T) {
	m := NewManager()
	if m.HasAbortingHooks(AgentStart) {
		t.Fatal("expected no aborting hooks on empty manager")
	}
	m.Register(Hook{Name: "h", Event: AgentStart, Command: "true", AbortOnFailure: true})
	if !m.HasAbortingHooks(AgentStart) {
		t.Fatal("expected aborting hook to be detected")
	}
}

func TestRunHooksStopsOnAbortingFailure(t *testing.T) {
	m := NewManager()
	m.Register(Hook{Name: "failing", Event: AgentStart, Command: "exit 1", AbortOnFailure: true})
	m.Register(Hook{Name: "never_runs", Event: AgentStart, Command: "echo should not run"})

	dir := t.TempDir()
	results := m.RunHooks(context.Background(), AgentStart, Context{WorkingDir: dir}, "")
	if len(results) != 1 {
		t.Fatalf("expected chain to stop after first aborting failure, got %d results", len(results))
	}
}

func TestWhenConditionGatesHook(t *testing.T) {
	m := NewManager()
	m.Register(Hook{Name: "conditional", Event: ToolAfter, Command: "echo ran", When: "tool_success == false"})

	dir := t.TempDir()
	success := true
	results := m.RunHooks(context.Background(), ToolAfter, Context{WorkingDir: dir, ToolSuccess: &success}, "")
	if len(results) != 0 {
		t.Fatalf("expected hook to be skipped when condition is false, got %d results", len(results))
	}

	failure := false
	results = m.RunHooks(context.Background(), ToolAfter, Context{WorkingDir: dir, ToolSuccess: &failure}, "")
	if len(results) != 1 {
		t.Fatalf("expected hook to run when condition is true, got %d results", len(results))
	}
}
