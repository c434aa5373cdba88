// Package models holds the data shapes shared across the agent runtime:
// chat messages, tool calls, tool definitions, and the security
// taxonomy tools are classified under.
package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single turn in the conversation. Messages accumulate in
// insertion order and are never reshuffled.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a single invocation the model requested. ID correlates
// the call with its later tool-role Message; when the model's response
// omits one, NewToolCallID mints a fresh one.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// NewToolCallID mints a unique id for a tool call the model left
// unidentified.
func NewToolCallID() string {
	return "call_" + uuid.NewString()
}

// SecurityLevel classifies what a tool is permitted to do.
//
// Safe tools perform no writes and no network egress.
// Moderate tools may touch the network but never mutate the filesystem
// or execute arbitrary programs.
// Dangerous tools may mutate the filesystem or execute programs.
type SecurityLevel int

const (
	Safe SecurityLevel = iota
	Moderate
	Dangerous
)

func (l SecurityLevel) String() string {
	switch l {
	case Safe:
		return "safe"
	case Moderate:
		return "moderate"
	case Dangerous:
		return "dangerous"
	default:
		return "unknown"
	}
}

// ParameterProperty describes one property of a ToolDefinition's JSON
// Schema parameters object.
type ParameterProperty struct {
	Type        string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Enum        []string      `json:"enum,omitempty"`
	Default     any           `json:"default,omitempty"`
	Items       *ParameterProperty `json:"items,omitempty"`
}

// StringProp builds a "string" parameter property.
func StringProp(desc string) ParameterProperty {
	return ParameterProperty{Type: "string", Description: desc}
}

// BoolProp builds a "boolean" parameter property.
func BoolProp(desc string) ParameterProperty {
	return ParameterProperty{Type: "boolean", Description: desc}
}

// NumberProp builds a "number" parameter property.
func NumberProp(desc string) ParameterProperty {
	return ParameterProperty{Type: "number", Description: desc}
}

// ArrayProp builds an "array" parameter property.
func ArrayProp(desc string) ParameterProperty {
	return ParameterProperty{Type: "array", Description: desc}
}

// ParameterSchema is the closed-vocabulary JSON-Schema object describing
// a tool's arguments.
type ParameterSchema struct {
	Type       string                       `json:"type"`
	Properties map[string]ParameterProperty `json:"properties"`
	Required   []string                     `json:"required,omitempty"`
}

// NewParameterSchema returns an empty object schema ready for chaining.
func NewParameterSchema() ParameterSchema {
	return ParameterSchema{Type: "object", Properties: map[string]ParameterProperty{}}
}

// WithProperty adds an optional property and returns the schema for
// chaining.
func (s ParameterSchema) WithProperty(name string, p ParameterProperty) ParameterSchema {
	s.Properties[name] = p
	return s
}

// WithRequired adds a required property and returns the schema for
// chaining.
func (s ParameterSchema) WithRequired(name string, p ParameterProperty) ParameterSchema {
	s.Properties[name] = p
	s.Required = append(s.Required, name)
	return s
}

// ToolDefinition is what gets advertised to the model: a name,
// description, and the JSON-Schema shape of its arguments.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ToolResult is the outcome of running a tool. Output is always a
// string, even for structured data (the caller serializes it).
type ToolResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// SuccessResult builds a successful ToolResult.
func SuccessResult(output string) *ToolResult {
	return &ToolResult{Success: true, Output: output}
}

// ErrorResult builds a failed ToolResult. Error is also echoed into
// Output so callers that only look at Output still see the reason.
func ErrorResult(msg string) *ToolResult {
	return &ToolResult{Success: false, Output: msg, Error: msg}
}

// ToolContext is passed to every Execute call. It is immutable for the
// duration of the call.
type ToolContext struct {
	WorkingDir        string
	AutoMode          bool
	MaxOutputLen      int
	CommandTimeoutSec int
	HTTPTimeoutSec    int
}
