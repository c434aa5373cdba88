package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/agentoven/quant-go/internal/models"
)

// GitTool performs read-mostly git repository operations: status, diff,
// log, show, blame, add, commit, branches, remotes, stash.
type GitTool struct{}

func (GitTool) Name() string { return "git" }

func (GitTool) Description() string {
	return "Execute git operations: status, diff, log, show, blame, add, commit, branches, remotes, stash"
}

func (GitTool) SecurityLevel() models.SecurityLevel { return models.Moderate }

func (GitTool) ParametersSchema() models.ParameterSchema {
	return models.NewParameterSchema().
		WithRequired("operation", models.StringProp("Git operation: status, diff, log, show, blame, add, commit, branches, remotes, stash")).
		WithProperty("staged", models.BoolProp("For diff: show staged changes only")).
		WithProperty("file", models.StringProp("File path for file-specific operations (diff, blame)")).
		WithProperty("files", models.StringProp("Comma-separated file paths for add operation")).
		WithProperty("message", models.StringProp("Commit or stash message")).
		WithProperty("commit", models.StringProp("Commit SHA or reference for show operation")).
		WithProperty("count", models.NumberProp("Number of log entries to show (default: 10, max: 50)")).
		WithProperty("lines", models.StringProp("Line range for blame (e.g., '10,20' or '10,+5')")).
		WithProperty("action", models.StringProp("Stash action: push, pop, list, show, drop"))
}

type gitArgs struct {
	Operation string `json:"operation"`
	Staged    bool   `json:"staged"`
	File      string `json:"file"`
	Files     string `json:"files"`
	Message   string `json:"message"`
	Commit    string `json:"commit"`
	Count     int    `json:"count"`
	Lines     string `json:"lines"`
	Action    string `json:"action"`
}

func runGitCommand(ctx context.Context, workingDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workingDir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if stderr == "" {
				stderr = strings.TrimSpace(string(out))
			}
			return "", fmt.Errorf("git %s failed: %s", strings.Join(args, " "), stderr)
		}
		return "", fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

func isGitRepo(ctx context.Context, workingDir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = workingDir
	return cmd.Run() == nil
}

func (GitTool) Execute(ctx context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	if !isGitRepo(ctx, tc.WorkingDir) {
		return models.ErrorResult("not a git repository"), nil
	}

	var args gitArgs
	if err := json.Unmarshal(raw, &args); err != nil || args.Operation == "" {
		return models.ErrorResult("missing 'operation' parameter"), nil
	}

	var (
		output string
		err    error
	)

	switch args.Operation {
	case "status":
		output, err = gitStatus(ctx, tc.WorkingDir)
	case "diff":
		output, err = gitDiff(ctx, tc.WorkingDir, args.Staged, args.File)
	case "log":
		count := 10
		if args.Count > 0 {
			count = args.Count
		}
		if count > 50 {
			count = 50
		}
		output, err = runGitCommand(ctx, tc.WorkingDir, "log", fmt.Sprintf("-%d", count), "--oneline", "--decorate", "--graph")
	case "show":
		commit := args.Commit
		if commit == "" {
			commit = "HEAD"
		}
		output, err = runGitCommand(ctx, tc.WorkingDir, "show", "--stat", "--color=never", commit)
		if err == nil {
			output = truncateGit(output, 8000)
		}
	case "blame":
		if args.File == "" {
			return models.ErrorResult("missing 'file' parameter for blame"), nil
		}
		blameArgs := []string{"blame", "--color=never"}
		if args.Lines != "" {
			blameArgs = append(blameArgs, "-L", args.Lines)
		}
		blameArgs = append(blameArgs, args.File)
		output, err = runGitCommand(ctx, tc.WorkingDir, blameArgs...)
		if err == nil {
			output = truncateGit(output, 10000)
		}
	case "add":
		files := parseGitFiles(args.Files)
		if len(files) == 0 {
			return models.ErrorResult("no files specified to add"), nil
		}
		addArgs := append([]string{"add"}, files...)
		_, err = runGitCommand(ctx, tc.WorkingDir, addArgs...)
		if err == nil {
			output = fmt.Sprintf("staged %d file(s)", len(files))
		}
	case "commit":
		if args.Message == "" {
			return models.ErrorResult("missing 'message' parameter for commit"), nil
		}
		output, err = runGitCommand(ctx, tc.WorkingDir, "commit", "-m", args.Message)
	case "branches":
		output, err = runGitCommand(ctx, tc.WorkingDir, "branch", "-a", "-v")
	case "remotes":
		output, err = runGitCommand(ctx, tc.WorkingDir, "remote", "-v")
	case "stash":
		action := args.Action
		if action == "" {
			action = "list"
		}
		output, err = gitStash(ctx, tc.WorkingDir, action, args.Message)
	default:
		return models.ErrorResult(fmt.Sprintf("unknown git operation: %s", args.Operation)), nil
	}

	if err != nil {
		return models.ErrorResult(err.Error()), nil
	}
	return models.SuccessResult(output), nil
}

func gitStatus(ctx context.Context, workingDir string) (string, error) {
	status, err := runGitCommand(ctx, workingDir, "status", "--short")
	if err != nil {
		return "", err
	}
	branch, err := runGitCommand(ctx, workingDir, "branch", "--show-current")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Branch: %s\n", strings.TrimSpace(branch))
	if status == "" {
		b.WriteString("Working tree clean\n")
	} else {
		b.WriteString("\nChanges:\n")
		b.WriteString(status)
	}
	return b.String(), nil
}

func gitDiff(ctx context.Context, workingDir string, staged bool, file string) (string, error) {
	statArgs := []string{"diff"}
	if staged {
		statArgs = append(statArgs, "--staged")
	}
	statArgs = append(statArgs, "--color=never", "--stat")
	if file != "" {
		statArgs = append(statArgs, "--", file)
	}
	stat, err := runGitCommand(ctx, workingDir, statArgs...)
	if err != nil {
		return "", err
	}

	contentArgs := []string{"diff"}
	if staged {
		contentArgs = append(contentArgs, "--staged")
	}
	contentArgs = append(contentArgs, "--color=never")
	if file != "" {
		contentArgs = append(contentArgs, "--", file)
	}
	content, err := runGitCommand(ctx, workingDir, contentArgs...)
	if err != nil {
		return "", err
	}
	content = truncateGit(content, 5000)

	return fmt.Sprintf("## Diff Statistics\n%s\n## Diff Content\n%s", stat, content), nil
}

func gitStash(ctx context.Context, workingDir, action, message string) (string, error) {
	switch action {
	case "push", "save":
		if message != "" {
			return runGitCommand(ctx, workingDir, "stash", "push", "-m", message)
		}
		return runGitCommand(ctx, workingDir, "stash", "push")
	case "pop":
		return runGitCommand(ctx, workingDir, "stash", "pop")
	case "list":
		return runGitCommand(ctx, workingDir, "stash", "list")
	case "show":
		return runGitCommand(ctx, workingDir, "stash", "show", "-p")
	case "drop":
		return runGitCommand(ctx, workingDir, "stash", "drop")
	default:
		return "", fmt.Errorf("unknown stash action: %s", action)
	}
}

func parseGitFiles(files string) []string {
	if files == "" {
		return nil
	}
	parts := strings.Split(files, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func truncateGit(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "\n\n... (truncated, " + strconv.Itoa(len(content)-max) + " more bytes)"
}
