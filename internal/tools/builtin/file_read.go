package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/agentoven/quant-go/internal/models"
)

// FileReadTool reads a file's contents, optionally windowed by line
// offset and limit.
type FileReadTool struct{}

func (FileReadTool) Name() string { return "file_read" }

func (FileReadTool) Description() string {
	return "Read the contents of a file. Returns the file content as text. For binary files, returns an error."
}

func (FileReadTool) SecurityLevel() models.SecurityLevel { return models.Safe }

func (FileReadTool) ParametersSchema() models.ParameterSchema {
	return models.NewParameterSchema().
		WithRequired("path", models.StringProp("The path to the file to read (absolute or relative to working directory)")).
		WithProperty("offset", models.NumberProp("Line number to start reading from (1-indexed, default: 1)")).
		WithProperty("limit", models.NumberProp("Maximum number of lines to read (default: unlimited)"))
}

type fileReadArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

func (FileReadTool) Execute(_ context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	var args fileReadArgs
	if err := json.Unmarshal(raw, &args); err != nil || args.Path == "" {
		return models.ErrorResult("missing required parameter: path"), nil
	}

	offset := 0
	if args.Offset > 1 {
		offset = args.Offset - 1
	}

	path := resolvePath(tc, args.Path)

	info, err := os.Stat(path)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("file not found: %s", path)), nil
	}
	if info.IsDir() {
		return models.ErrorResult(fmt.Sprintf("not a file: %s", path)), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to read file: %s", err)), nil
	}

	lines := strings.Split(string(content), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	totalLines := len(lines)

	if offset > totalLines {
		offset = totalLines
	}
	end := totalLines
	if args.Limit > 0 && offset+args.Limit < end {
		end = offset + args.Limit
	}

	var b strings.Builder
	for i := offset; i < end; i++ {
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, lines[i])
	}
	selected := strings.TrimSuffix(b.String(), "\n")

	var output string
	if selected == "" {
		output = fmt.Sprintf("file is empty or offset %d exceeds file length (%d lines)", offset+1, totalLines)
	} else {
		output = fmt.Sprintf("File: %s (%d lines total)\n%s", path, totalLines, selected)
	}

	output = truncateUTF8(output, effectiveMaxOutputLen(tc), "Output")
	return models.SuccessResult(output), nil
}
