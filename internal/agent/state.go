// Package agent implements the observe-think-act loop that drives a
// chat model through iterative tool invocations until it declares a
// task complete.
package agent

import (
	"fmt"

	"github.com/agentoven/quant-go/internal/models"
)

// Config configures one Run of the agent loop.
type Config struct {
	Model            string
	SystemPrompt     string
	MaxIterations    int
	WorkingDir       string
	AutoMode         bool
	Verbose          bool
	MaxContextTokens int

	// Tool execution limits, threaded into every models.ToolContext
	// runToolCalls builds. Zero means the tool falls back to its own
	// internal default.
	MaxToolOutputLen  int
	ToolCommandTimeoutSec int
	ToolHTTPTimeoutSec    int
}

// DefaultConfig returns the teacher's sensible defaults for a one-off
// Run, to be overridden field-by-field by callers.
func DefaultConfig(model, workingDir string) Config {
	return Config{
		Model:            model,
		MaxIterations:    50,
		WorkingDir:       workingDir,
		Verbose:          true,
		MaxContextTokens: 4000,
		MaxToolOutputLen: 50_000,
		ToolCommandTimeoutSec: 120,
		ToolHTTPTimeoutSec:    30,
	}
}

// TokenUsage accumulates token accounting across every model call in a
// Run.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	CallCount        int
	TotalDurationNs  int64
	EvalDurationNs   int64
}

// TotalTokens is PromptTokens + CompletionTokens.
func (u TokenUsage) TotalTokens() int64 {
	return u.PromptTokens + u.CompletionTokens
}

// Record folds one model call's usage into the running total.
func (u *TokenUsage) Record(promptTokens, completionTokens, totalDurationNs, evalDurationNs int64) {
	u.PromptTokens += promptTokens
	u.CompletionTokens += completionTokens
	u.TotalDurationNs += totalDurationNs
	u.EvalDurationNs += evalDurationNs
	u.CallCount++
}

// Summary renders a one-line human-readable usage report.
func (u TokenUsage) Summary() string {
	return fmt.Sprintf("%d prompt + %d completion = %d tokens over %d call(s)",
		u.PromptTokens, u.CompletionTokens, u.TotalTokens(), u.CallCount)
}

// State is the full result of a Run: the accumulated conversation,
// iteration count, and either a final response or an error.
type State struct {
	Messages       []models.Message
	Iteration      int
	Finished       bool
	FinalResponse  string
	Error          string
	TokenUsage     TokenUsage
	FailureTracker *FailureTracker
}

// NewState returns an empty, unfinished state ready for a Run.
func NewState() *State {
	return &State{FailureTracker: NewFailureTracker()}
}

// AddMessage appends a message to the conversation in order.
func (s *State) AddMessage(m models.Message) {
	s.Messages = append(s.Messages, m)
}

// MarkFinished records a successful completion.
func (s *State) MarkFinished(response string) {
	s.Finished = true
	s.FinalResponse = response
}

// MarkError records a failed completion. Errored states are also
// Finished — there is no further iteration to attempt.
func (s *State) MarkError(reason string) {
	s.Finished = true
	s.Error = reason
}

// IncrementIteration advances the iteration counter.
func (s *State) IncrementIteration() {
	s.Iteration++
}
