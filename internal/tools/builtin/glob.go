package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentoven/quant-go/internal/models"
)

// GlobTool finds files matching a doublestar glob pattern rooted at the
// working directory (or a caller-supplied base path).
type GlobTool struct{}

func (GlobTool) Name() string { return "glob" }

func (GlobTool) Description() string {
	return "Find files matching a glob pattern. Supports patterns like '**/*.go', 'src/**/*.ts', etc."
}

func (GlobTool) SecurityLevel() models.SecurityLevel { return models.Safe }

func (GlobTool) ParametersSchema() models.ParameterSchema {
	return models.NewParameterSchema().
		WithRequired("pattern", models.StringProp("Glob pattern to match (e.g., '**/*.go', 'src/**/*.ts')")).
		WithProperty("path", models.StringProp("Base directory to search in (default: working directory)")).
		WithProperty("limit", models.NumberProp("Maximum number of results to return (default: 100)"))
}

type globArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
	Limit   int    `json:"limit"`
}

func (GlobTool) Execute(_ context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	var args globArgs
	if err := json.Unmarshal(raw, &args); err != nil || args.Pattern == "" {
		return models.ErrorResult("missing required parameter: pattern"), nil
	}

	limit := 100
	if args.Limit > 0 {
		limit = args.Limit
	}

	basePath := tc.WorkingDir
	if args.Path != "" {
		basePath = resolvePath(tc, args.Path)
	}

	fsys := os.DirFS(basePath)
	matchPattern := strings.TrimPrefix(args.Pattern, "/")

	found, err := doublestar.Glob(fsys, matchPattern)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("invalid glob pattern: %s", err)), nil
	}

	sort.Strings(found)
	truncated := len(found) > limit
	if truncated {
		found = found[:limit]
	}

	var output string
	if len(found) == 0 {
		output = fmt.Sprintf("No files found matching pattern: %s", args.Pattern)
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d files matching '%s':\n", len(found), args.Pattern)
		b.WriteString(strings.Join(found, "\n"))
		if truncated {
			fmt.Fprintf(&b, "\n\n[Results truncated at %d files]", limit)
		}
		output = b.String()
	}

	return models.SuccessResult(output), nil
}
