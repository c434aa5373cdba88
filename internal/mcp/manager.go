package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/agentoven/quant-go/internal/agenterr"
	"github.com/agentoven/quant-go/internal/telemetry"
)

// serverHandle tracks one running (or restarting) MCP server.
type serverHandle struct {
	config ServerConfig
	client *Client
	tools  []ToolInfo
}

// Manager spawns and supervises a set of MCP servers, discovers their
// tools, and prefixes tool names with the owning server so calls can be
// routed back to the right client.
type Manager struct {
	mu      sync.RWMutex
	servers map[string]*serverHandle
	clientName, clientVersion string
}

// NewManager returns an empty manager. clientName/clientVersion are
// sent to every server during the initialize handshake.
func NewManager(clientName, clientVersion string) *Manager {
	return &Manager{
		servers:       make(map[string]*serverHandle),
		clientName:    clientName,
		clientVersion: clientVersion,
	}
}

// StartServer spawns cfg, performs the initialize handshake, and
// discovers its tools. Tool names are exposed as "{server}_{tool}".
func (m *Manager) StartServer(ctx context.Context, cfg ServerConfig) error {
	if err := cfg.ExpandEnvVars(); err != nil {
		return err
	}

	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}

	timeout := time.Duration(cfg.timeoutSecs()) * time.Second
	startCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The process outlives ctx; StopServer/StopAll end it through Close.
	transport, err := NewStdioTransport(context.WithoutCancel(ctx), cfg.Command, cfg.Args, env, cfg.Cwd)
	if err != nil {
		return &agenterr.ConfigurationError{Component: "mcp server " + cfg.Name, Err: err}
	}

	client := NewClient(transport)
	if _, err := client.Initialize(startCtx, m.clientName, m.clientVersion); err != nil {
		_ = transport.Close()
		return err
	}

	tools, err := client.ListTools(startCtx)
	if err != nil {
		_ = transport.Close()
		return err
	}

	handle := &serverHandle{config: cfg, client: client, tools: tools}

	m.mu.Lock()
	if existing, ok := m.servers[cfg.Name]; ok {
		m.mu.Unlock()
		_ = transport.Close()
		_ = existing // existing connection left untouched; caller should Stop it first
		return &agenterr.ConfigurationError{Component: "mcp server " + cfg.Name, Err: fmt.Errorf("server already started")}
	}
	m.servers[cfg.Name] = handle
	m.mu.Unlock()

	log.Info().Str("server", cfg.Name).Int("tools", len(tools)).Msg("mcp server started")
	return nil
}

// StartAll starts every server concurrently, skipping those with
// auto_start disabled. It returns the first error encountered but lets
// every server attempt complete first.
func (m *Manager) StartAll(ctx context.Context, configs []ServerConfig) error {
	var g errgroup.Group
	for _, cfg := range configs {
		if !cfg.shouldAutoStart() {
			continue
		}
		cfg := cfg
		g.Go(func() error {
			if err := m.StartServer(ctx, cfg); err != nil {
				return fmt.Errorf("start %s: %w", cfg.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// prefixedName joins a server and tool name the way discovered tools
// are exposed to the rest of the runtime.
func prefixedName(server, tool string) string {
	return server + "_" + tool
}

// Tools returns every discovered tool across all servers, with names
// prefixed by their owning server and collisions logged. Only one entry
// per name is kept; servers are held in a map, so which one is not
// defined.
func (m *Manager) Tools() []ToolInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var out []ToolInfo
	for _, h := range m.servers {
		for _, t := range h.tools {
			name := prefixedName(h.config.Name, t.Name)
			if seen[name] {
				log.Warn().Str("tool", name).Msg("mcp tool name collision, keeping first registration")
				continue
			}
			seen[name] = true
			renamed := t
			renamed.Name = name
			out = append(out, renamed)
		}
	}
	return out
}

// CallTool routes a prefixed tool name ("{server}_{tool}") to the owning
// server's client.
func (m *Manager) CallTool(ctx context.Context, prefixedTool string, arguments []byte) (*CallToolResult, error) {
	m.mu.RLock()
	var (
		handle   *serverHandle
		toolName string
	)
	for name, h := range m.servers {
		prefix := name + "_"
		if strings.HasPrefix(prefixedTool, prefix) {
			handle = h
			toolName = strings.TrimPrefix(prefixedTool, prefix)
			break
		}
	}
	m.mu.RUnlock()

	if handle == nil {
		return nil, &agenterr.ExecutionError{What: "mcp tool call", Err: fmt.Errorf("no server owns tool %q", prefixedTool)}
	}

	spanCtx, span := telemetry.StartMCPToolsCall(ctx, prefixedTool)
	defer span.End()
	return handle.client.CallTool(spanCtx, toolName, arguments)
}

// HealthCheck pings every running server and returns the names of any
// that failed to respond.
func (m *Manager) HealthCheck(ctx context.Context) []string {
	m.mu.RLock()
	handles := make([]*serverHandle, 0, len(m.servers))
	for _, h := range m.servers {
		handles = append(handles, h)
	}
	m.mu.RUnlock()

	var unhealthy []string
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, h := range handles {
		h := h
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.client.Ping(ctx); err != nil {
				mu.Lock()
				unhealthy = append(unhealthy, h.config.Name)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return unhealthy
}

// RestartServer stops and re-spawns a named server with exponential
// backoff, giving up after five retries (six attempts in all).
func (m *Manager) RestartServer(ctx context.Context, name string) error {
	m.mu.Lock()
	handle, ok := m.servers[name]
	if !ok {
		m.mu.Unlock()
		return &agenterr.ConfigurationError{Component: "mcp server " + name, Err: fmt.Errorf("not registered")}
	}
	cfg := handle.config
	_ = handle.client.Close()
	delete(m.servers, name)
	m.mu.Unlock()

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	return backoff.Retry(func() error {
		err := m.StartServer(ctx, cfg)
		if err != nil {
			log.Warn().Str("server", name).Err(err).Msg("mcp server restart attempt failed")
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

// StopServer closes a single server's transport.
func (m *Manager) StopServer(name string) error {
	m.mu.Lock()
	handle, ok := m.servers[name]
	if ok {
		delete(m.servers, name)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return handle.client.Close()
}

// StopAll closes every running server.
func (m *Manager) StopAll() {
	m.mu.Lock()
	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		if err := m.StopServer(name); err != nil {
			log.Warn().Str("server", name).Err(err).Msg("error stopping mcp server")
		}
	}
	log.Info().Int("count", len(names)).Msg("all mcp servers stopped")
}
