package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/agentoven/quant-go/internal/models"
	"github.com/agentoven/quant-go/internal/tools"
)

// parseSecurityLevel maps a ServerConfig's free-text security_level
// override to the closed SecurityLevel taxonomy, defaulting to
// Moderate since an MCP server is an external, untrusted process whose
// tools could plausibly touch the network or worse.
func parseSecurityLevel(s string) models.SecurityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return models.Safe
	case "dangerous":
		return models.Dangerous
	default:
		return models.Moderate
	}
}

// mcpTool adapts one discovered MCP tool into the tools.Tool interface
// so it can sit in the same registry as built-ins and be routed and
// gated identically.
type mcpTool struct {
	manager       *Manager
	info          ToolInfo
	securityLevel models.SecurityLevel
}

func (t *mcpTool) Name() string        { return t.info.Name }
func (t *mcpTool) Description() string { return t.info.Description }

func (t *mcpTool) SecurityLevel() models.SecurityLevel { return t.securityLevel }

func (t *mcpTool) ParametersSchema() models.ParameterSchema {
	var schema models.ParameterSchema
	if len(t.info.InputSchema) == 0 {
		return models.NewParameterSchema()
	}
	if err := json.Unmarshal(t.info.InputSchema, &schema); err != nil || schema.Properties == nil {
		return models.NewParameterSchema()
	}
	return schema
}

func (t *mcpTool) Execute(ctx context.Context, args json.RawMessage, _ *models.ToolContext) (*models.ToolResult, error) {
	result, err := t.manager.CallTool(ctx, t.info.Name, args)
	if err != nil {
		return models.ErrorResult(err.Error()), nil
	}

	var text strings.Builder
	for i, c := range result.Content {
		if i > 0 {
			text.WriteString("\n")
		}
		text.WriteString(c.Text)
	}

	if result.IsError {
		return models.ErrorResult(text.String()), nil
	}
	return models.SuccessResult(text.String()), nil
}

// RegisterTools wraps every tool currently discovered across all
// servers and adds it to reg, defaulting each tool's security level
// from the owning server's configured override.
func (m *Manager) RegisterTools(reg *tools.Registry) {
	m.mu.RLock()
	levelByServer := make(map[string]models.SecurityLevel, len(m.servers))
	for name, h := range m.servers {
		levelByServer[name] = parseSecurityLevel(h.config.SecurityLevel)
	}
	m.mu.RUnlock()

	for _, info := range m.Tools() {
		serverName := ""
		for name := range levelByServer {
			if strings.HasPrefix(info.Name, name+"_") && len(name) > len(serverName) {
				serverName = name
			}
		}
		level, ok := levelByServer[serverName]
		if !ok {
			level = models.Moderate
		}
		reg.Register(&mcpTool{manager: m, info: info, securityLevel: level})
	}
}
