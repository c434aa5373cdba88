package mcp

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/agentoven/quant-go/internal/agenterr"
)

// ServerConfig describes one MCP server to spawn and connect to.
type ServerConfig struct {
	Name          string            `yaml:"name" toml:"name" json:"name"`
	Command       string            `yaml:"command" toml:"command" json:"command"`
	Args          []string          `yaml:"args,omitempty" toml:"args,omitempty" json:"args,omitempty"`
	Env           map[string]string `yaml:"env,omitempty" toml:"env,omitempty" json:"env,omitempty"`
	Cwd           string            `yaml:"cwd,omitempty" toml:"cwd,omitempty" json:"cwd,omitempty"`
	SecurityLevel string            `yaml:"security_level,omitempty" toml:"security_level,omitempty" json:"security_level,omitempty"`
	AutoStart     *bool             `yaml:"auto_start,omitempty" toml:"auto_start,omitempty" json:"auto_start,omitempty"`
	TimeoutSecs   int               `yaml:"timeout_secs,omitempty" toml:"timeout_secs,omitempty" json:"timeout_secs,omitempty"`
}

// NewServerConfig builds a config with just name and command; the rest
// take their defaults (auto-start enabled, 30s timeout).
func NewServerConfig(name, command string) ServerConfig {
	return ServerConfig{Name: name, Command: command}
}

func (c ServerConfig) shouldAutoStart() bool {
	return c.AutoStart == nil || *c.AutoStart
}

func (c ServerConfig) timeoutSecs() int {
	if c.TimeoutSecs <= 0 {
		return 30
	}
	return c.TimeoutSecs
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvString replaces every ${VAR} occurrence in s with the value
// of the named environment variable, failing if any referenced
// variable is unset.
func expandEnvString(s string) (string, error) {
	var outerErr error
	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		value, ok := os.LookupEnv(name)
		if !ok {
			outerErr = fmt.Errorf("environment variable %s not set", name)
			return match
		}
		return value
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

// ExpandEnvVars expands ${VAR} references in the server's env map
// values in place.
func (c *ServerConfig) ExpandEnvVars() error {
	for k, v := range c.Env {
		expanded, err := expandEnvString(v)
		if err != nil {
			return &agenterr.ConfigurationError{Component: "mcp server " + c.Name, Err: err}
		}
		c.Env[k] = expanded
	}
	return nil
}

// GlobalConfig is the [mcp] section of the user's global quant config.
type GlobalConfig struct {
	DefaultTimeoutSecs int            `toml:"default_timeout_secs"`
	AutoStart          bool           `toml:"auto_start"`
	Servers            []ServerConfig `toml:"servers"`
}

type globalConfigFile struct {
	MCP GlobalConfig `toml:"mcp"`
}

// LoadGlobalConfig reads the [mcp] section of ~/.config/quant/config.toml
// (or the platform equivalent). A missing file is not an error; it
// yields the zero-value config with auto-start disabled and no servers.
func LoadGlobalConfig() (*GlobalConfig, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return &GlobalConfig{}, nil
	}
	path := filepath.Join(dir, "quant", "config.toml")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &GlobalConfig{}, nil
	}
	if err != nil {
		return nil, &agenterr.ConfigurationError{Component: "mcp global config", Err: err}
	}

	var file globalConfigFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, &agenterr.ConfigurationError{Component: "mcp global config", Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	return &file.MCP, nil
}

// MergeWithProject combines project-level servers with the global ones,
// with project servers taking precedence over a global server of the
// same name.
func (g *GlobalConfig) MergeWithProject(projectServers []ServerConfig) []ServerConfig {
	seen := make(map[string]bool, len(projectServers))
	merged := make([]ServerConfig, 0, len(projectServers)+len(g.Servers))
	merged = append(merged, projectServers...)
	for _, s := range projectServers {
		seen[s.Name] = true
	}
	for _, s := range g.Servers {
		if !seen[s.Name] {
			merged = append(merged, s)
		}
	}
	return merged
}

type mcpServersDoc struct {
	MCPServers []ServerConfig `yaml:"mcp_servers"`
}

// ParseServersFromYAML parses the mcp_servers list out of a QUANT.md
// frontmatter block (or any YAML document shaped the same way).
func ParseServersFromYAML(yamlStr string) ([]ServerConfig, error) {
	var doc mcpServersDoc
	if err := yaml.Unmarshal([]byte(yamlStr), &doc); err != nil {
		return nil, &agenterr.ConfigurationError{Component: "mcp_servers frontmatter", Err: err}
	}
	return doc.MCPServers, nil
}
