package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentoven/quant-go/internal/models"
)

// FileWriteTool writes or appends content to a file, creating parent
// directories as needed.
type FileWriteTool struct{}

func (FileWriteTool) Name() string { return "file_write" }

func (FileWriteTool) Description() string {
	return "Write content to a file. Creates the file if it doesn't exist, overwrites if it does. Creates parent directories as needed."
}

func (FileWriteTool) SecurityLevel() models.SecurityLevel { return models.Dangerous }

func (FileWriteTool) ParametersSchema() models.ParameterSchema {
	return models.NewParameterSchema().
		WithRequired("path", models.StringProp("The path to write to (absolute or relative)")).
		WithRequired("content", models.StringProp("The content to write to the file")).
		WithProperty("append", models.BoolProp("Append to file instead of overwriting (default: false)"))
}

type fileWriteArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Append  bool   `json:"append"`
}

func (FileWriteTool) Execute(_ context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	var args fileWriteArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return models.ErrorResult("invalid arguments"), nil
	}
	if args.Path == "" {
		return models.ErrorResult("missing required parameter: path"), nil
	}

	path := resolvePath(tc, args.Path)

	if parent := filepath.Dir(path); parent != "." {
		if _, err := os.Stat(parent); os.IsNotExist(err) {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return models.ErrorResult(fmt.Sprintf("failed to create directories: %s", err)), nil
			}
		}
	}

	var writeErr error
	if args.Append {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			writeErr = err
		} else {
			_, writeErr = f.WriteString(args.Content)
			f.Close()
		}
	} else {
		writeErr = os.WriteFile(path, []byte(args.Content), 0o644)
	}

	if writeErr != nil {
		return models.ErrorResult(fmt.Sprintf("failed to write file: %s", writeErr)), nil
	}

	mode := "written to"
	if args.Append {
		mode = "appended to"
	}
	return models.SuccessResult(fmt.Sprintf("successfully %s %s (%d bytes)", mode, path, len(args.Content))), nil
}
