package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/agentoven/quant-go/internal/models"
)

// BashTool executes a shell command and returns its combined output.
type BashTool struct{}

func (BashTool) Name() string { return "bash" }

func (BashTool) Description() string {
	return "Execute a bash command and return the output. Use for running terminal commands, git operations, build tools, etc."
}

func (BashTool) SecurityLevel() models.SecurityLevel { return models.Dangerous }

func (BashTool) ParametersSchema() models.ParameterSchema {
	return models.NewParameterSchema().
		WithRequired("command", models.StringProp("The bash command to execute")).
		WithProperty("timeout", models.NumberProp("Timeout in seconds (default: 120)")).
		WithProperty("working_dir", models.StringProp("Working directory for the command (default: current directory)"))
}

type bashArgs struct {
	Command    string `json:"command"`
	Timeout    int    `json:"timeout"`
	WorkingDir string `json:"working_dir"`
}

func (BashTool) Execute(ctx context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	var args bashArgs
	if err := json.Unmarshal(raw, &args); err != nil || args.Command == "" {
		return models.ErrorResult("missing required parameter: command"), nil
	}

	workingDir := tc.WorkingDir
	if args.WorkingDir != "" {
		workingDir = args.WorkingDir
	}
	if !dirExists(workingDir) {
		return models.ErrorResult(fmt.Sprintf("working directory does not exist: %s", workingDir)), nil
	}

	timeout := effectiveCommandTimeout(tc)
	if args.Timeout > 0 {
		timeout = secondsToDuration(args.Timeout)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", args.Command)
	cmd.Dir = workingDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	combined := combineOutput(stdout.String(), stderr.String())
	combined = truncateUTF8(combined, effectiveMaxOutputLen(tc), "Output")

	if runCtx.Err() == context.DeadlineExceeded {
		return models.ErrorResult(fmt.Sprintf("command timed out after %s", timeout)), nil
	}

	if err == nil {
		return models.SuccessResult(combined), nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return models.ErrorResult(fmt.Sprintf("failed to execute command: %s", err)), nil
	}
	return &models.ToolResult{
		Success: false,
		Output:  combined,
		Error:   fmt.Sprintf("command exited with code %d", exitErr.ExitCode()),
	}, nil
}

func combineOutput(stdout, stderr string) string {
	if stdout == "" {
		return stderr
	}
	if stderr == "" {
		return stdout
	}
	return stdout + "\n--- stderr ---\n" + stderr
}
