package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/agentoven/quant-go/internal/models"
)

// sandboxBackend identifies which isolation mechanism SandboxTool uses to
// run a command.
type sandboxBackend int

const (
	backendNone sandboxBackend = iota
	backendFirejail
	backendBubblewrap
	backendDocker
)

func (b sandboxBackend) String() string {
	switch b {
	case backendFirejail:
		return "firejail"
	case backendBubblewrap:
		return "bubblewrap"
	case backendDocker:
		return "docker"
	default:
		return "none"
	}
}

// detectSandboxBackend probes the host for an isolation tool, preferring
// firejail, then bubblewrap, then docker, falling back to no isolation.
func detectSandboxBackend() sandboxBackend {
	if _, err := exec.LookPath("firejail"); err == nil {
		return backendFirejail
	}
	if _, err := exec.LookPath("bwrap"); err == nil {
		return backendBubblewrap
	}
	if _, err := exec.LookPath("docker"); err == nil {
		return backendDocker
	}
	return backendNone
}

// SandboxTool runs a shell command inside whatever isolation backend is
// available on the host, falling back to a plain shell when none is.
type SandboxTool struct {
	Backend     sandboxBackend
	DockerImage string
}

// NewSandboxTool detects the available backend at construction time.
func NewSandboxTool() *SandboxTool {
	return &SandboxTool{Backend: detectSandboxBackend(), DockerImage: "alpine:latest"}
}

func (t *SandboxTool) Name() string { return "sandbox" }

func (t *SandboxTool) Description() string {
	return "Execute a command in an isolated sandbox (firejail, bubblewrap, or docker, whichever is available). Falls back to an unsandboxed shell if no backend is installed."
}

func (t *SandboxTool) SecurityLevel() models.SecurityLevel { return models.Dangerous }

func (t *SandboxTool) ParametersSchema() models.ParameterSchema {
	return models.NewParameterSchema().
		WithRequired("command", models.StringProp("The shell command to execute in the sandbox")).
		WithProperty("timeout", models.NumberProp("Timeout in seconds (default: 60)")).
		WithProperty("network", models.BoolProp("Allow network access (docker backend only, default: false)")).
		WithProperty("memory_mb", models.NumberProp("Memory limit in MB (docker backend only, default: 256)"))
}

type sandboxArgs struct {
	Command  string `json:"command"`
	Timeout  int    `json:"timeout"`
	Network  bool   `json:"network"`
	MemoryMB int    `json:"memory_mb"`
}

func (t *SandboxTool) buildCommand(ctx context.Context, workingDir string, args sandboxArgs) *exec.Cmd {
	switch t.Backend {
	case backendFirejail:
		return exec.CommandContext(ctx, "firejail",
			"--private-tmp", "--private-dev", "--noroot", "--seccomp",
			"--caps.drop=all", "--nonewprivs",
			fmt.Sprintf("--whitelist=%s", workingDir),
			"--", "bash", "-c", args.Command)
	case backendBubblewrap:
		return exec.CommandContext(ctx, "bwrap",
			"--ro-bind", "/usr", "/usr",
			"--ro-bind", "/bin", "/bin",
			"--ro-bind", "/lib", "/lib",
			"--ro-bind", "/lib64", "/lib64",
			"--bind", workingDir, workingDir,
			"--chdir", workingDir,
			"--unshare-all",
			"--die-with-parent",
			"--", "bash", "-c", args.Command)
	case backendDocker:
		memMB := 256
		if args.MemoryMB > 0 {
			memMB = args.MemoryMB
		}
		dockerArgs := []string{"run", "--rm"}
		if !args.Network {
			dockerArgs = append(dockerArgs, "--network", "none")
		}
		dockerArgs = append(dockerArgs,
			"--read-only",
			"--memory", fmt.Sprintf("%dm", memMB),
			"--cpus", "1",
			"--pids-limit", "50",
			"-v", fmt.Sprintf("%s:/workspace:rw", workingDir),
			"-w", "/workspace",
			t.DockerImage, "/bin/sh", "-c", args.Command)
		return exec.CommandContext(ctx, "docker", dockerArgs...)
	default:
		cmd := exec.CommandContext(ctx, "bash", "-c", args.Command)
		cmd.Dir = workingDir
		return cmd
	}
}

func (t *SandboxTool) Execute(ctx context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	var args sandboxArgs
	if err := json.Unmarshal(raw, &args); err != nil || args.Command == "" {
		return models.ErrorResult("missing required parameter: command"), nil
	}

	if !dirExists(tc.WorkingDir) {
		return models.ErrorResult(fmt.Sprintf("working directory does not exist: %s", tc.WorkingDir)), nil
	}

	timeout := secondsToDuration(60)
	if args.Timeout > 0 {
		timeout = secondsToDuration(args.Timeout)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := t.buildCommand(runCtx, tc.WorkingDir, args)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return models.ErrorResult(fmt.Sprintf("command timed out after %s", timeout)), nil
	}

	combined := combineOutput(stdout.String(), stderr.String())
	combined = fmt.Sprintf("[sandbox: %s]\n%s", t.Backend, combined)
	combined = truncateUTF8(combined, effectiveMaxOutputLen(tc), "Output")

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return &models.ToolResult{
				Success: false,
				Output:  combined,
				Error:   fmt.Sprintf("command exited with code %d", exitErr.ExitCode()),
			}, nil
		}
		hint := ""
		if t.Backend != backendNone {
			hint = fmt.Sprintf(" (try installing %s, or fall back to the bash tool)", t.Backend)
		}
		return models.ErrorResult(fmt.Sprintf("failed to run sandboxed command: %s%s", runErr, hint)), nil
	}

	return models.SuccessResult(combined), nil
}
