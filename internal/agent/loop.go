package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/quant-go/internal/chatclient"
	smartcontext "github.com/agentoven/quant-go/internal/context"
	"github.com/agentoven/quant-go/internal/hooks"
	"github.com/agentoven/quant-go/internal/mcp"
	"github.com/agentoven/quant-go/internal/models"
	"github.com/agentoven/quant-go/internal/project"
	"github.com/agentoven/quant-go/internal/telemetry"
	"github.com/agentoven/quant-go/internal/toolrouter"
)

// Loop orchestrates the observe-think-act cycle: it seeds a
// conversation, streams a model turn, dispatches any tool calls the
// model asked for through the router, and repeats until the model
// stops asking for tools or the loop hits a stop condition.
type Loop struct {
	Client *chatclient.Client
	Router *toolrouter.Router
	Hooks  *hooks.Manager
	MCP    *mcp.Manager // optional; stored only, the loop does not discover MCP tools (register them into Router.Registry with Manager.RegisterTools before New)

	Config  Config
	Project *project.Context // optional; nil when no project root was discovered
}

// New builds a Loop. project context is auto-discovered from
// cfg.WorkingDir; pass a non-nil hookManager to reuse one already
// loaded from QUANT.md, or hooks.NewManager() for none.
func New(client *chatclient.Client, router *toolrouter.Router, hookManager *hooks.Manager, mcpManager *mcp.Manager, cfg Config) *Loop {
	proj := project.Discover(cfg.WorkingDir)
	return &Loop{
		Client:  client,
		Router:  router,
		Hooks:   hookManager,
		MCP:     mcpManager,
		Config:  cfg,
		Project: proj,
	}
}

// Run drives the agent loop against task until the model finishes, an
// abort condition fires, or cfg.MaxIterations is reached.
func (l *Loop) Run(ctx context.Context, task string) (*State, error) {
	log.Info().Int("max_iterations", l.Config.MaxIterations).Int("task_len", len(task)).
		Msg("starting agent loop")

	state := NewState()
	baseHookCtx := hooks.Context{WorkingDir: l.Config.WorkingDir, Task: task}

	startResults := l.Hooks.RunHooks(ctx, hooks.AgentStart, baseHookCtx, "")
	aborting := make(map[string]bool)
	for _, h := range l.Hooks.HooksForEvent(hooks.AgentStart, "") {
		if h.AbortOnFailure {
			aborting[h.Name] = true
		}
	}
	for _, r := range startResults {
		if !r.Success && aborting[r.Name] {
			state.MarkError(fmt.Sprintf("agent start hook %q failed: %s", r.Name, r.Error))
			return state, nil
		}
	}

	smartCtx := l.selectSmartContext(ctx, task)

	systemPrompt := l.Config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = l.defaultSystemPrompt(smartCtx)
	}
	state.AddMessage(models.Message{Role: models.RoleSystem, Content: systemPrompt})
	state.AddMessage(models.Message{Role: models.RoleUser, Content: task})

	toolDefs := l.Router.Registry.Schemas()

	for !state.Finished && state.Iteration < l.Config.MaxIterations {
		state.IncrementIteration()

		iterCtx, iterSpan := telemetry.StartIteration(ctx, state.Iteration)

		iterHookCtx := baseHookCtx
		iterHookCtx.Iteration = intPtr(state.Iteration)
		l.Hooks.RunHooks(iterCtx, hooks.IterationStart, iterHookCtx, "")

		content, toolCalls, streamErr := l.streamTurn(iterCtx, state, toolDefs)
		if streamErr != nil {
			state.MarkError(fmt.Sprintf("model error: %s", streamErr))
			iterSpan.End()
			break
		}

		if len(toolCalls) == 0 {
			if parsed := ParseToolCalls(content); len(parsed) > 0 {
				toolCalls = parsed
			}
		}

		if len(toolCalls) == 0 {
			log.Info().Int("iterations", state.Iteration).Msg("agent completed task")
			state.AddMessage(models.Message{Role: models.RoleAssistant, Content: content})
			state.MarkFinished(content)
			iterSpan.End()
			break
		}

		state.AddMessage(models.Message{Role: models.RoleAssistant, Content: content, ToolCalls: toolCalls})

		aborted := l.runToolCalls(iterCtx, state, toolCalls, iterHookCtx)

		l.Hooks.RunHooks(iterCtx, hooks.IterationEnd, iterHookCtx, "")
		iterSpan.End()

		if aborted {
			break
		}
	}

	if !state.Finished && state.Iteration >= l.Config.MaxIterations {
		log.Warn().Int("max_iterations", l.Config.MaxIterations).Msg("agent reached maximum iterations")
		state.MarkError(fmt.Sprintf("agent reached maximum iterations (%d)", l.Config.MaxIterations))
	}

	success := state.Error == ""
	finishHookCtx := baseHookCtx
	finishHookCtx.AgentSuccess = boolPtr(success)
	finishHookCtx.Error = state.Error
	l.Hooks.RunHooks(ctx, hooks.AgentFinish, finishHookCtx, "")

	log.Info().Bool("finished", state.Finished).Int("iterations", state.Iteration).
		Int64("total_tokens", state.TokenUsage.TotalTokens()).Msg("agent loop completed")

	return state, nil
}

// streamTurn calls the model with the current conversation and tool
// definitions, accumulates streamed content and tool calls, and
// records token usage from the final chunk.
func (l *Loop) streamTurn(ctx context.Context, state *State, toolDefs []models.ToolDefinition) (content string, toolCalls []models.ToolCall, err error) {
	req := chatclient.Request{
		Model:    l.Config.Model,
		Messages: toChatMessages(state.Messages),
		Tools:    toolDefs,
	}

	for chunk, streamErr := range l.Client.Stream(ctx, req) {
		if streamErr != nil {
			return content, toolCalls, streamErr
		}
		if chunk.Message != nil {
			content += chunk.Message.Content
			toolCalls = append(toolCalls, chunk.Message.ToolCalls...)
		}
		if chunk.Done {
			state.TokenUsage.Record(
				derefInt64(chunk.PromptEvalCount),
				derefInt64(chunk.EvalCount),
				derefInt64(chunk.TotalDuration),
				derefInt64(chunk.EvalDuration),
			)
		}
	}
	return content, toolCalls, nil
}

// runToolCalls executes each tool call in order, tracking consecutive
// failures per signature and stopping early if the router reports an
// aborted call or the failure tracker gives up on a signature.
func (l *Loop) runToolCalls(ctx context.Context, state *State, toolCalls []models.ToolCall, iterHookCtx hooks.Context) (aborted bool) {
	tc := &models.ToolContext{
		WorkingDir:        l.Config.WorkingDir,
		AutoMode:          l.Config.AutoMode,
		MaxOutputLen:      l.Config.MaxToolOutputLen,
		CommandTimeoutSec: l.Config.ToolCommandTimeoutSec,
		HTTPTimeoutSec:    l.Config.ToolHTTPTimeoutSec,
	}

	for _, call := range toolCalls {
		signature := ToolSignature(call.Name, call.Arguments)

		toolHookCtx := iterHookCtx
		toolHookCtx.ToolName = call.Name
		toolHookCtx.ToolArgs = string(call.Arguments)
		l.Hooks.RunHooks(ctx, hooks.ToolBefore, toolHookCtx, call.Name)
		l.Hooks.RunHooks(ctx, hooks.ToolBeforeNamed, toolHookCtx, call.Name)

		toolCtx, toolSpan := telemetry.StartToolExecute(ctx, call.Name)
		result := l.Router.Route(toolCtx, call, tc)
		toolSpan.End()

		var (
			output    string
			isSuccess bool
		)
		switch result.Outcome {
		case toolrouter.Success:
			output, isSuccess = result.Result.Output, result.Result.Success
		case toolrouter.Skipped:
			output = "Tool execution was skipped by user"
		case toolrouter.Denied:
			output = "Tool execution was denied by user"
		case toolrouter.Aborted:
			output = "Operation aborted"
			state.MarkError("operation aborted by user")
			aborted = true
		case toolrouter.NotFound:
			output = fmt.Sprintf("Tool not found: %s", result.Name)
		case toolrouter.Error:
			output = fmt.Sprintf("Tool error: %s", result.Message)
		}

		if result.IsFailure() {
			if reason := state.FailureTracker.RecordFailure(signature, output); reason != "" {
				log.Warn().Str("tool", call.Name).Msg("aborting due to consecutive failures")
				state.MarkError(reason)
				aborted = true
			}
		} else {
			state.FailureTracker.RecordSuccess(signature)
		}

		toolAfterCtx := toolHookCtx
		toolAfterCtx.ToolResult = output
		toolAfterCtx.ToolSuccess = boolPtr(isSuccess)
		l.Hooks.RunHooks(ctx, hooks.ToolAfter, toolAfterCtx, call.Name)
		l.Hooks.RunHooks(ctx, hooks.ToolAfterNamed, toolAfterCtx, call.Name)

		toolCallID := call.ID
		if toolCallID == "" {
			toolCallID = call.Name
		}
		state.AddMessage(models.Message{Role: models.RoleTool, Content: output, ToolCallID: toolCallID})

		if aborted {
			break
		}
	}
	return aborted
}

func (l *Loop) selectSmartContext(ctx context.Context, task string) *smartcontext.SmartContext {
	root := l.Config.WorkingDir
	if l.Project != nil {
		root = l.Project.Root
	}

	maxTokens := l.Config.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	selector := smartcontext.NewSelector(root).WithMaxTokens(maxTokens)

	sc, err := selector.SelectContext(ctx, task)
	if err != nil {
		log.Warn().Err(err).Msg("failed to select smart context")
		return nil
	}
	if sc.IsEmpty() {
		return nil
	}
	log.Info().Int("files", len(sc.Files)).Int("chars", sc.CharCount()).Msg("smart context selected files")
	return sc
}

func (l *Loop) defaultSystemPrompt(smartCtx *smartcontext.SmartContext) string {
	var b strings.Builder

	b.WriteString("You are an AI assistant with access to tools for completing tasks. " +
		"You can read files, search for content, execute commands, and more.\n\n")

	if l.Project != nil {
		b.WriteString(l.Project.ToSystemContext())
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "Working directory: %s\n\n", l.Config.WorkingDir)
	}

	if smartCtx != nil {
		b.WriteString(smartCtx.ToContextString())
	}

	b.WriteString("## Available Tools\n")
	for _, t := range l.Router.Registry.List() {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	b.WriteString("\n")

	b.WriteString(`## Guidelines
- Use tools to gather information before responding
- For file operations, prefer reading before writing
- For commands, explain what you're doing
- Be concise but thorough
- If a task is unclear, ask for clarification
- Follow any project-specific instructions from QUANT.md
- Relevant files have been pre-loaded above - use them as context

When you have completed the task, provide a final summary response without calling any more tools.`)

	return b.String()
}

func toChatMessages(messages []models.Message) []chatclient.Message {
	out := make([]chatclient.Message, len(messages))
	for i, m := range messages {
		out[i] = chatclient.Message{Role: m.Role, Content: m.Content, ToolCalls: m.ToolCalls}
	}
	return out
}

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
