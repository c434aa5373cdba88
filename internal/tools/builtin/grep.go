package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agentoven/quant-go/internal/models"
)

// GrepTool searches file contents for a regex pattern, optionally
// filtered by a filename glob.
type GrepTool struct{}

func (GrepTool) Name() string { return "grep" }

func (GrepTool) Description() string {
	return "Search for a pattern in files. Supports regex patterns. Returns matching lines with file paths and line numbers."
}

func (GrepTool) SecurityLevel() models.SecurityLevel { return models.Safe }

func (GrepTool) ParametersSchema() models.ParameterSchema {
	return models.NewParameterSchema().
		WithRequired("pattern", models.StringProp("Regex pattern to search for")).
		WithProperty("path", models.StringProp("File or directory to search in (default: working directory)")).
		WithProperty("glob", models.StringProp("File pattern to filter (e.g., '*.go', '*.py')")).
		WithProperty("case_insensitive", models.BoolProp("Case insensitive search (default: false)")).
		WithProperty("limit", models.NumberProp("Maximum number of matches to return (default: 50)"))
}

type grepArgs struct {
	Pattern         string `json:"pattern"`
	Path            string `json:"path"`
	Glob            string `json:"glob"`
	CaseInsensitive bool   `json:"case_insensitive"`
	Limit           int    `json:"limit"`
}

var grepSkipDirs = []string{"/.git/", "/node_modules/", "/target/", "/.venv/"}

func (GrepTool) Execute(_ context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	var args grepArgs
	if err := json.Unmarshal(raw, &args); err != nil || args.Pattern == "" {
		return models.ErrorResult("missing required parameter: pattern"), nil
	}

	limit := 50
	if args.Limit > 0 {
		limit = args.Limit
	}

	pattern := args.Pattern
	if args.CaseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("invalid regex pattern: %s", err)), nil
	}

	searchPath := tc.WorkingDir
	if args.Path != "" {
		searchPath = resolvePath(tc, args.Path)
	}

	info, statErr := os.Stat(searchPath)
	if statErr != nil {
		return models.ErrorResult(fmt.Sprintf("path not found: %s", searchPath)), nil
	}

	var matches []string
	filesSearched := 0

	if !info.IsDir() {
		searchFile(searchPath, re, &matches, limit, tc.WorkingDir)
		filesSearched = 1
	} else {
		filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if len(matches) >= limit {
				return fs.SkipAll
			}
			slashPath := filepath.ToSlash(path)
			for _, skip := range grepSkipDirs {
				if strings.Contains(slashPath, skip) {
					return nil
				}
			}
			if args.Glob != "" {
				if ok, _ := filepath.Match(args.Glob, d.Name()); !ok {
					return nil
				}
			}
			searchFile(path, re, &matches, limit, tc.WorkingDir)
			filesSearched++
			return nil
		})
	}

	var output string
	if len(matches) == 0 {
		output = fmt.Sprintf("No matches found for '%s' in %d files", args.Pattern, filesSearched)
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d matches for '%s' in %d files:\n\n", len(matches), args.Pattern, filesSearched)
		b.WriteString(strings.Join(matches, "\n"))
		if len(matches) >= limit {
			fmt.Fprintf(&b, "\n\n[Results truncated at %d matches]", limit)
		}
		output = b.String()
	}

	return models.SuccessResult(output), nil
}

func searchFile(path string, re *regexp.Regexp, matches *[]string, limit int, workingDir string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if !isLikelyText(content) {
		return
	}

	display := path
	if rel, err := filepath.Rel(workingDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		display = rel
	}

	for lineNum, line := range strings.Split(string(content), "\n") {
		if re.MatchString(line) {
			*matches = append(*matches, fmt.Sprintf("%s:%d:%s", display, lineNum+1, strings.TrimSpace(line)))
			if len(*matches) >= limit {
				return
			}
		}
	}
}

// isLikelyText rejects files that contain a NUL byte in their first
// chunk, a cheap heuristic for "this is binary, skip it".
func isLikelyText(content []byte) bool {
	n := len(content)
	if n > 8000 {
		n = 8000
	}
	for _, b := range content[:n] {
		if b == 0 {
			return false
		}
	}
	return true
}
