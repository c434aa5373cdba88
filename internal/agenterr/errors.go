// Package agenterr defines the error taxonomy shared across the agent
// runtime: configuration, transport, protocol, timeout, validation,
// execution, policy, and loop errors. Each is a distinct type so callers
// can distinguish failure classes with errors.As instead of string
// matching.
package agenterr

import "fmt"

// ConfigurationError signals a problem with runtime configuration
// (missing env var, malformed QUANT.md, bad MCP server config).
type ConfigurationError struct {
	Component string
	Err       error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %v", e.Component, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError signals a failure to communicate over a transport
// (subprocess pipe, HTTP connection, stdio closed unexpectedly).
type TransportError struct {
	Transport string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s): %v", e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError signals a malformed or unexpected message at the
// protocol layer (bad JSON-RPC envelope, unexpected method).
type ProtocolError struct {
	Method string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error (%s): %v", e.Method, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TimeoutError signals that an operation exceeded its deadline.
type TimeoutError struct {
	Operation string
	Seconds   float64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %.1fs", e.Operation, e.Seconds)
}

// ValidationError signals bad input to a tool or component.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// ExecutionError wraps a failure that occurred while running a tool or
// subprocess.
type ExecutionError struct {
	What string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed (%s): %v", e.What, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// PolicyError signals that the security gate denied or aborted an
// action.
type PolicyError struct {
	Tool   string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy denied %s: %s", e.Tool, e.Reason)
}

// LoopError signals the agent loop terminated abnormally (failure
// budget exhausted, max iterations reached without completion).
type LoopError struct {
	Reason string
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("agent loop aborted: %s", e.Reason)
}
