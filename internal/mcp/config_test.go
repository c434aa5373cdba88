package mcp

import "testing"

func TestExpandEnvString(t *testing.T) {
	t.Setenv("QUANT_TEST_VAR", "hello")
	result, err := expandEnvString("prefix_${QUANT_TEST_VAR}_suffix")
	if err != nil {
		t.Fatal(err)
	}
	if result != "prefix_hello_suffix" {
		t.Fatalf("unexpected expansion: %q", result)
	}
}

func TestExpandEnvStringMissingVar(t *testing.T) {
	if _, err := expandEnvString("${QUANT_DEFINITELY_UNSET_VAR}"); err == nil {
		t.Fatal("expected error for unset variable")
	}
}

func TestServerConfigExpandEnvVars(t *testing.T) {
	t.Setenv("QUANT_TEST_TOKEN", "secret123")
	cfg := ServerConfig{Name: "github", Env: map[string]string{"GITHUB_TOKEN": "${QUANT_TEST_TOKEN}"}}
	if err := cfg.ExpandEnvVars(); err != nil {
		t.Fatal(err)
	}
	if cfg.Env["GITHUB_TOKEN"] != "secret123" {
		t.Fatalf("unexpected env value: %q", cfg.Env["GITHUB_TOKEN"])
	}
}

func TestParseServersFromYAML(t *testing.T) {
	yaml := `
mcp_servers:
  - name: "github"
    command: "npx"
    args: ["-y", "@modelcontextprotocol/server-github"]
    env:
      GITHUB_TOKEN: "test-token"
`
	servers, err := ParseServersFromYAML(yaml)
	if err != nil {
		t.Fatal(err)
	}
	if len(servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(servers))
	}
	if servers[0].Name != "github" || servers[0].Command != "npx" {
		t.Fatalf("unexpected server: %+v", servers[0])
	}
	if len(servers[0].Args) != 2 || servers[0].Args[1] != "@modelcontextprotocol/server-github" {
		t.Fatalf("unexpected args: %+v", servers[0].Args)
	}
}

func TestParseServersFromYAMLEmpty(t *testing.T) {
	servers, err := ParseServersFromYAML("other_key: true")
	if err != nil {
		t.Fatal(err)
	}
	if len(servers) != 0 {
		t.Fatalf("expected no servers, got %+v", servers)
	}
}

func TestGlobalConfigMergeWithProjectPrecedence(t *testing.T) {
	global := &GlobalConfig{Servers: []ServerConfig{
		{Name: "github", Command: "global-command"},
		{Name: "filesystem", Command: "npx"},
	}}
	project := []ServerConfig{{Name: "github", Command: "project-command"}}

	merged := global.MergeWithProject(project)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged servers, got %d", len(merged))
	}
	if merged[0].Name != "github" || merged[0].Command != "project-command" {
		t.Fatalf("expected project server to take precedence, got %+v", merged[0])
	}
	if merged[1].Name != "filesystem" {
		t.Fatalf("expected global server to survive merge, got %+v", merged[1])
	}
}

func TestServerConfigDefaults(t *testing.T) {
	cfg := NewServerConfig("test", "echo")
	if !cfg.shouldAutoStart() {
		t.Fatal("expected auto_start default to be true")
	}
	if cfg.timeoutSecs() != 30 {
		t.Fatalf("expected default timeout 30, got %d", cfg.timeoutSecs())
	}
}
