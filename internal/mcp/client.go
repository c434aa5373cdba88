package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/agentoven/quant-go/internal/agenterr"
)

// ClientInfo identifies this client during initialization.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities advertises what this client supports. Neither
// roots nor sampling are implemented yet, so both are omitted.
type ClientCapabilities struct{}

// ServerCapabilities is what the server advertised during initialize.
type ServerCapabilities struct {
	Tools     *struct{ ListChanged bool `json:"listChanged"` } `json:"tools,omitempty"`
	Resources *struct {
		Subscribe   bool `json:"subscribe"`
		ListChanged bool `json:"listChanged"`
	} `json:"resources,omitempty"`
	Prompts *struct{ ListChanged bool `json:"listChanged"` } `json:"prompts,omitempty"`
	Logging *struct{}                                        `json:"logging,omitempty"`
}

// ServerInfo is the server's self-description from initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InitializeResult is the result of the initialize call.
type InitializeResult struct {
	ProtocolVersion string              `json:"protocolVersion"`
	Capabilities    ServerCapabilities  `json:"capabilities"`
	ServerInfo      ServerInfo          `json:"serverInfo"`
}

// ToolInfo is one tool advertised by tools/list.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

type listToolsResult struct {
	Tools      []ToolInfo `json:"tools"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}

// Resource is one resource advertised by resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type listResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}

// ResultContent is one piece of a tool call result, per the MCP content
// part shape {type, text?, data?, mimeType?}.
type ResultContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// CallToolResult is the raw result of a tools/call.
type CallToolResult struct {
	Content []ResultContent `json:"content"`
	IsError bool            `json:"isError,omitempty"`
}

// ResourceContent is one piece of a resources/read result.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

type readResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// Client is an MCP client speaking JSON-RPC over a Transport.
type Client struct {
	transport    Transport
	nextID       atomic.Uint64
	serverInfo   *ServerInfo
	capabilities *ServerCapabilities
	initialized  bool
}

// NewClient wraps transport.
func NewClient(transport Transport) *Client {
	c := &Client{transport: transport}
	c.nextID.Store(1)
	return c
}

func (c *Client) nextRequestID() string {
	return strconv.FormatUint(c.nextID.Add(1)-1, 10)
}

func (c *Client) request(ctx context.Context, method string, params any, out any) error {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = data
	}

	resp, err := c.transport.SendRequest(ctx, JSONRPCRequest{
		ID:     c.nextRequestID(),
		Method: method,
		Params: raw,
	})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if resp.Result == nil {
		return &agenterr.ProtocolError{Method: method, Err: fmt.Errorf("response missing result")}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return &agenterr.ProtocolError{Method: method, Err: fmt.Errorf("parse result: %w", err)}
	}
	return nil
}

// Initialize performs the MCP handshake: sends initialize, then the
// notifications/initialized notification on success.
func (c *Client) Initialize(ctx context.Context, clientName, clientVersion string) (*InitializeResult, error) {
	params := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    ClientCapabilities{},
		"clientInfo":      ClientInfo{Name: clientName, Version: clientVersion},
	}

	var result InitializeResult
	if err := c.request(ctx, "initialize", params, &result); err != nil {
		return nil, &agenterr.TransportError{Transport: "mcp", Err: fmt.Errorf("initialize failed: %w", err)}
	}

	if err := c.transport.SendNotification(ctx, JSONRPCNotification{Method: "notifications/initialized"}); err != nil {
		return nil, err
	}

	c.serverInfo = &result.ServerInfo
	c.capabilities = &result.Capabilities
	c.initialized = true
	return &result, nil
}

func (c *Client) IsInitialized() bool             { return c.initialized }
func (c *Client) ServerInfo() *ServerInfo         { return c.serverInfo }
func (c *Client) ServerCapabilities() *ServerCapabilities { return c.capabilities }

func (c *Client) requireInitialized() error {
	if !c.initialized {
		return &agenterr.ProtocolError{Method: "*", Err: fmt.Errorf("mcp client not initialized")}
	}
	return nil
}

// ListTools lists every tool the server advertises, following cursor
// pagination until a response carries no nextCursor.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}

	var tools []ToolInfo
	var cursor *string
	for {
		params := map[string]any{}
		if cursor != nil {
			params["cursor"] = *cursor
		}
		var result listToolsResult
		if err := c.request(ctx, "tools/list", params, &result); err != nil {
			return nil, err
		}
		tools = append(tools, result.Tools...)
		if result.NextCursor == nil {
			break
		}
		cursor = result.NextCursor
	}
	return tools, nil
}

// CallTool invokes name with arguments and returns the raw result.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*CallToolResult, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	if arguments == nil {
		arguments = json.RawMessage("{}")
	}
	params := map[string]any{"name": name, "arguments": json.RawMessage(arguments)}

	var result CallToolResult
	if err := c.request(ctx, "tools/call", params, &result); err != nil {
		return nil, &agenterr.ExecutionError{What: "mcp tool call: " + name, Err: err}
	}
	return &result, nil
}

// ListResources lists every resource the server advertises, or an
// empty slice if the server doesn't support resources at all.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	if c.capabilities != nil && c.capabilities.Resources == nil {
		return nil, nil
	}

	var resources []Resource
	var cursor *string
	for {
		params := map[string]any{}
		if cursor != nil {
			params["cursor"] = *cursor
		}
		var result listResourcesResult
		if err := c.request(ctx, "resources/list", params, &result); err != nil {
			return nil, err
		}
		resources = append(resources, result.Resources...)
		if result.NextCursor == nil {
			break
		}
		cursor = result.NextCursor
	}
	return resources, nil
}

// ReadResource fetches the contents of a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	var result readResourceResult
	if err := c.request(ctx, "resources/read", map[string]any{"uri": uri}, &result); err != nil {
		return nil, err
	}
	return result.Contents, nil
}

// Ping checks the server is still responsive.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	return c.request(ctx, "ping", nil, nil)
}

// Close tears down the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}
