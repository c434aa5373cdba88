package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the quant agent runtime.
type Config struct {
	Model      ModelConfig
	Agent      AgentConfig
	Telemetry  TelemetryConfig
	ToolOutput ToolOutputConfig
}

type ModelConfig struct {
	Provider    string
	Name        string
	Endpoint    string
	APIKey      string
	HTTPTimeout time.Duration
}

type AgentConfig struct {
	MaxIterations int
	AutoMode      bool
	MaxTokens     int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type ToolOutputConfig struct {
	MaxOutputLen    int
	DefaultTimeout  time.Duration
	BashTimeout     time.Duration
	HTTPFetchSecs   int
}

// Load reads configuration from environment variables with sensible defaults,
// following the same envStr/envInt/envBool helper pattern the control-plane
// config used.
func Load() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    envStr("QUANT_MODEL_PROVIDER", "ollama"),
			Name:        envStr("QUANT_MODEL_NAME", "qwen2.5-coder:32b"),
			Endpoint:    envStr("QUANT_MODEL_ENDPOINT", "http://localhost:11434"),
			APIKey:      envStr("QUANT_MODEL_API_KEY", "ollama"),
			HTTPTimeout: envDuration("QUANT_MODEL_HTTP_TIMEOUT_SECS", 120*time.Second),
		},
		Agent: AgentConfig{
			MaxIterations: envInt("QUANT_MAX_ITERATIONS", 25),
			AutoMode:      envBool("QUANT_AUTO_MODE", false),
			MaxTokens:     envInt("QUANT_CONTEXT_MAX_TOKENS", 8000),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "quant-agent"),
		},
		ToolOutput: ToolOutputConfig{
			MaxOutputLen:  envInt("QUANT_MAX_OUTPUT_LEN", 50_000),
			DefaultTimeout: envDuration("QUANT_TOOL_TIMEOUT_SECS", 30*time.Second),
			BashTimeout:    envDuration("QUANT_BASH_TIMEOUT_SECS", 120*time.Second),
			HTTPFetchSecs:  envInt("QUANT_HTTP_FETCH_TIMEOUT_SECS", 30),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration reads a number of seconds from the environment.
func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
