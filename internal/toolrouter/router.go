// Package toolrouter dispatches a parsed tool call through lookup,
// the security gate, and execution, producing a discriminated
// RouteResult the agent loop can act on.
package toolrouter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/quant-go/internal/gate"
	"github.com/agentoven/quant-go/internal/models"
	"github.com/agentoven/quant-go/internal/tools"
)

// Outcome discriminates what happened to a routed call.
type Outcome int

const (
	Success Outcome = iota
	Skipped
	Denied
	Aborted
	NotFound
	Error
)

// RouteResult is the outcome of routing one tool call.
type RouteResult struct {
	Outcome Outcome
	Result  *models.ToolResult // set when Outcome == Success
	Name    string             // set when Outcome == NotFound
	Message string             // set when Outcome == Error
}

// Router dispatches tool calls: lookup in the registry, gate through
// the confirmation handler, then execute.
type Router struct {
	Registry *tools.Registry
	Gate     gate.Handler
}

// New builds a Router over the given registry and confirmation
// handler.
func New(reg *tools.Registry, g gate.Handler) *Router {
	return &Router{Registry: reg, Gate: g}
}

// Route dispatches a single tool call.
func (r *Router) Route(ctx context.Context, call models.ToolCall, tc *models.ToolContext) RouteResult {
	tool, ok := r.Registry.Get(call.Name)
	if !ok {
		return RouteResult{Outcome: NotFound, Name: call.Name}
	}

	level := tool.SecurityLevel()
	switch r.Gate.Confirm(call, level) {
	case gate.Denied:
		log.Info().Str("tool", call.Name).Msg("tool call denied by gate")
		return RouteResult{Outcome: Denied}
	case gate.Skip:
		log.Info().Str("tool", call.Name).Msg("tool call skipped by gate")
		return RouteResult{Outcome: Skipped}
	case gate.Abort:
		log.Warn().Str("tool", call.Name).Msg("tool call aborted by gate")
		return RouteResult{Outcome: Aborted}
	}

	result, err := tool.Execute(ctx, call.Arguments, tc)
	if err != nil {
		return RouteResult{Outcome: Error, Message: err.Error()}
	}
	return RouteResult{Outcome: Success, Result: result}
}

// RouteAll routes a batch of calls in order, stopping as soon as one
// result is Aborted.
func (r *Router) RouteAll(ctx context.Context, calls []models.ToolCall, tc *models.ToolContext) []RouteResult {
	results := make([]RouteResult, 0, len(calls))
	for _, call := range calls {
		res := r.Route(ctx, call, tc)
		results = append(results, res)
		if res.Outcome == Aborted {
			break
		}
	}
	return results
}

// String renders a RouteResult for logging/hook context.
func (rr RouteResult) String() string {
	switch rr.Outcome {
	case Success:
		return fmt.Sprintf("success: %s", rr.Result.Output)
	case Skipped:
		return "skipped"
	case Denied:
		return "denied"
	case Aborted:
		return "aborted"
	case NotFound:
		return fmt.Sprintf("tool not found: %s", rr.Name)
	case Error:
		return fmt.Sprintf("error: %s", rr.Message)
	default:
		return "unknown"
	}
}

// IsFailure reports whether this outcome should count against the
// failure tracker (Denied/Skip are not failures of the tool itself).
func (rr RouteResult) IsFailure() bool {
	switch rr.Outcome {
	case NotFound, Error:
		return true
	case Success:
		return !rr.Result.Success
	default:
		return false
	}
}
