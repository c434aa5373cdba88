// Package hooks implements the agent lifecycle hook engine: hooks run
// as shell commands at well-defined points (agent start/finish,
// iteration start/end, tool before/after) with a rich environment
// describing the current context.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog/log"
)

// Event identifies a point in the agent lifecycle a hook can fire on.
type Event string

const (
	AgentStart      Event = "agent_start"
	AgentFinish     Event = "agent_finish"
	IterationStart  Event = "iteration_start"
	IterationEnd    Event = "iteration_end"
	ToolBefore      Event = "tool_before"
	ToolAfter       Event = "tool_after"
	ToolBeforeNamed Event = "tool_before_named"
	ToolAfterNamed  Event = "tool_after_named"
)

// Hook is a single registered lifecycle hook.
type Hook struct {
	Name           string        `yaml:"name" json:"name"`
	Event          Event         `yaml:"event" json:"event"`
	Command        string        `yaml:"command" json:"command"`
	ToolFilter     string        `yaml:"tool_filter,omitempty" json:"tool_filter,omitempty"`
	When           string        `yaml:"when,omitempty" json:"when,omitempty"`
	TimeoutSecs    int           `yaml:"timeout_secs,omitempty" json:"timeout_secs,omitempty"`
	AbortOnFailure bool          `yaml:"abort_on_failure,omitempty" json:"abort_on_failure,omitempty"`
	Enabled        *bool         `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

func (h Hook) timeout() time.Duration {
	if h.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.TimeoutSecs) * time.Second
}

func (h Hook) enabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// Context is passed to a hook execution; ToEnvVars projects it into the
// QUANT_* environment variables the subprocess sees.
type Context struct {
	WorkingDir   string
	Iteration    *int
	ToolName     string
	ToolArgs     string
	ToolResult   string
	ToolSuccess  *bool
	Task         string
	AgentSuccess *bool
	Error        string
}

// ToEnvVars projects the context into QUANT_* environment variable
// assignments ("KEY=value"), truncating large tool results to 4 KiB so
// they stay safe to pass as env vars.
func (c Context) ToEnvVars() []string {
	var env []string
	add := func(k, v string) { env = append(env, k+"="+v) }

	add("QUANT_WORKING_DIR", c.WorkingDir)
	if c.Iteration != nil {
		add("QUANT_ITERATION", fmt.Sprintf("%d", *c.Iteration))
	}
	if c.ToolName != "" {
		add("QUANT_TOOL_NAME", c.ToolName)
	}
	if c.ToolArgs != "" {
		add("QUANT_TOOL_ARGS", c.ToolArgs)
	}
	if c.ToolResult != "" {
		result := c.ToolResult
		const limit = 4096
		if len(result) > limit {
			result = result[:limit] + "...[truncated]"
		}
		add("QUANT_TOOL_RESULT", result)
	}
	if c.ToolSuccess != nil {
		add("QUANT_TOOL_SUCCESS", fmt.Sprintf("%t", *c.ToolSuccess))
	}
	if c.Task != "" {
		add("QUANT_TASK", c.Task)
	}
	if c.AgentSuccess != nil {
		add("QUANT_AGENT_SUCCESS", fmt.Sprintf("%t", *c.AgentSuccess))
	}
	if c.Error != "" {
		add("QUANT_ERROR", c.Error)
	}
	return env
}

// exprEnv flattens the context for `when` expression evaluation.
func (c Context) exprEnv() map[string]any {
	env := map[string]any{
		"working_dir": c.WorkingDir,
		"tool_name":   c.ToolName,
		"tool_args":   c.ToolArgs,
		"task":        c.Task,
		"error":       c.Error,
	}
	if c.Iteration != nil {
		env["iteration"] = *c.Iteration
	}
	if c.ToolSuccess != nil {
		env["tool_success"] = *c.ToolSuccess
	}
	if c.AgentSuccess != nil {
		env["agent_success"] = *c.AgentSuccess
	}
	return env
}

// Result is what running one hook produced.
type Result struct {
	Name       string
	Success    bool
	Output     string
	Error      string
	DurationMs int64
}

// Manager registers and runs hooks.
type Manager struct {
	hooks []Hook
}

// NewManager returns an empty hook manager.
func NewManager() *Manager { return &Manager{} }

// Register adds a hook.
func (m *Manager) Register(h Hook) {
	log.Info().Str("name", h.Name).Str("event", string(h.Event)).Msg("registered hook")
	m.hooks = append(m.hooks, h)
}

// RegisterAll adds several hooks.
func (m *Manager) RegisterAll(hs []Hook) {
	for _, h := range hs {
		m.Register(h)
	}
}

// HooksForEvent returns the enabled hooks matching event. A hook with a
// tool_filter matches only when toolName equals it, so filtered hooks
// never match an empty toolName; hooks with no filter always match.
func (m *Manager) HooksForEvent(event Event, toolName string) []Hook {
	var out []Hook
	for _, h := range m.hooks {
		if !h.enabled() || h.Event != event {
			continue
		}
		if h.ToolFilter != "" {
			if toolName == "" || h.ToolFilter != toolName {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

// HasAbortingHooks reports whether any enabled hook for event would
// abort on failure.
func (m *Manager) HasAbortingHooks(event Event) bool {
	for _, h := range m.hooks {
		if h.enabled() && h.Event == event && h.AbortOnFailure {
			return true
		}
	}
	return false
}

// RunHooks runs every hook registered for event (optionally filtered by
// toolName), in order, stopping the chain as soon as a hook with
// abort_on_failure=true fails.
func (m *Manager) RunHooks(ctx context.Context, event Event, hctx Context, toolName string) []Result {
	hs := m.HooksForEvent(event, toolName)
	if len(hs) == 0 {
		return nil
	}

	results := make([]Result, 0, len(hs))
	for _, h := range hs {
		if h.When != "" && !evalWhen(h, hctx) {
			continue
		}
		res := m.runHook(ctx, h, hctx)
		results = append(results, res)
		if !res.Success && h.AbortOnFailure {
			log.Warn().Str("hook", h.Name).Str("event", string(event)).
				Msg("hook failed with abort_on_failure=true, stopping hook chain")
			break
		}
	}
	return results
}

func evalWhen(h Hook, hctx Context) bool {
	program, err := expr.Compile(h.When, expr.Env(hctx.exprEnv()), expr.AsBool())
	if err != nil {
		log.Warn().Str("hook", h.Name).Err(err).Msg("invalid when expression, skipping hook")
		return false
	}
	out, err := expr.Run(program, hctx.exprEnv())
	if err != nil {
		log.Warn().Str("hook", h.Name).Err(err).Msg("when expression evaluation failed, skipping hook")
		return false
	}
	ok, _ := out.(bool)
	return ok
}

func (m *Manager) runHook(ctx context.Context, h Hook, hctx Context) Result {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", h.Command)
	cmd.Dir = hctx.WorkingDir
	cmd.Env = append(cmd.Environ(), hctx.ToEnvVars()...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	durationMs := time.Since(start).Milliseconds()

	combined := stdout.String()
	if stderr.Len() > 0 {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr.String()
	}

	if runCtx.Err() == context.DeadlineExceeded {
		log.Warn().Str("name", h.Name).Dur("timeout", h.timeout()).Msg("hook timed out")
		return Result{Name: h.Name, Success: false, Output: combined,
			Error: fmt.Sprintf("timed out after %s", h.timeout()), DurationMs: durationMs}
	}
	if err != nil {
		log.Warn().Str("name", h.Name).Err(err).Msg("hook failed")
		return Result{Name: h.Name, Success: false, Output: combined, Error: err.Error(), DurationMs: durationMs}
	}
	log.Debug().Str("name", h.Name).Int64("duration_ms", durationMs).Msg("hook succeeded")
	return Result{Name: h.Name, Success: true, Output: combined, DurationMs: durationMs}
}
