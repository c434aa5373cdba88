// Package main is the quant-go CLI entrypoint: a local-model coding
// agent that observes a task, thinks with a streaming chat model, and
// acts through a gated tool registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/quant-go/internal/agent"
	"github.com/agentoven/quant-go/internal/chatclient"
	"github.com/agentoven/quant-go/internal/config"
	"github.com/agentoven/quant-go/internal/gate"
	"github.com/agentoven/quant-go/internal/hooks"
	"github.com/agentoven/quant-go/internal/mcp"
	"github.com/agentoven/quant-go/internal/project"
	"github.com/agentoven/quant-go/internal/telemetry"
	"github.com/agentoven/quant-go/internal/toolrouter"
	"github.com/agentoven/quant-go/internal/tools/builtin"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		workingDir = flag.String("dir", ".", "working directory the agent operates in")
		model      = flag.String("model", "", "model name override (defaults to QUANT_MODEL_NAME)")
		autoMode   = flag.Bool("auto", false, "auto-approve moderate and dangerous tool calls")
		safeOnly   = flag.Bool("safe", false, "only register read-only tools")
	)
	flag.Parse()
	task := strings.Join(flag.Args(), " ")
	if task == "" {
		fmt.Fprintln(os.Stderr, "usage: quant [flags] <task description>")
		os.Exit(1)
	}

	absDir, err := filepath.Abs(*workingDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve working directory")
	}

	cfg := config.Load()
	if *model != "" {
		cfg.Model.Name = *model
	}
	if *autoMode {
		cfg.Agent.AutoMode = true
	}

	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer shutdownTelemetry(context.Background())

	proj := project.Discover(absDir)

	var reg = builtin.DefaultRegistry()
	if *safeOnly {
		reg = builtin.SafeRegistry()
	}

	mcpManager := mcp.NewManager("quant-go", "dev")
	if proj.QuantFile.HasMCPServers() {
		startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mcpManager.StartAll(startCtx, proj.QuantFile.FrontMatter.McpServers); err != nil {
			log.Warn().Err(err).Msg("some MCP servers failed to start")
		}
		cancel()
		mcpManager.RegisterTools(reg)
	}
	defer mcpManager.StopAll()

	var gateHandler gate.Handler = gate.NewTerminalConfirmation(cfg.Agent.AutoMode)
	if cfg.Agent.AutoMode {
		gateHandler = gate.AutoApprove{}
	}
	router := toolrouter.New(reg, gateHandler)

	hookManager := hooks.NewManager()
	if proj.QuantFile.HasHooks() {
		hookManager.RegisterAll(proj.QuantFile.FrontMatter.Hooks)
	}

	client := chatclient.New(cfg.Model.Endpoint, cfg.Model.HTTPTimeout)

	agentCfg := agent.DefaultConfig(cfg.Model.Name, absDir)
	agentCfg.MaxIterations = cfg.Agent.MaxIterations
	agentCfg.AutoMode = cfg.Agent.AutoMode
	agentCfg.MaxContextTokens = cfg.Agent.MaxTokens
	agentCfg.MaxToolOutputLen = cfg.ToolOutput.MaxOutputLen
	agentCfg.ToolCommandTimeoutSec = int(cfg.ToolOutput.BashTimeout.Seconds())
	agentCfg.ToolHTTPTimeoutSec = cfg.ToolOutput.HTTPFetchSecs

	loop := agent.New(client, router, hookManager, mcpManager, agentCfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("model", agentCfg.Model).Str("working_dir", absDir).Msg("starting quant agent")

	state, err := loop.Run(ctx, task)
	if err != nil {
		log.Fatal().Err(err).Msg("agent loop failed")
	}
	if state.Error != "" {
		fmt.Fprintf(os.Stderr, "agent stopped with error: %s\n", state.Error)
		os.Exit(1)
	}

	fmt.Println(state.FinalResponse)
}
