package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentoven/quant-go/internal/models"
)

// FileEdit describes a single change to apply to a file as part of a
// multi-file edit transaction.
type FileEdit struct {
	Path            string `json:"path"`
	OldContent      string `json:"old_content"`
	HasOldContent   bool   `json:"-"`
	NewContent      string `json:"new_content"`
	CreateIfMissing bool   `json:"create_if_missing"`
}

func (e *FileEdit) UnmarshalJSON(data []byte) error {
	type alias struct {
		Path            string  `json:"path"`
		OldContent      *string `json:"old_content"`
		NewContent      string  `json:"new_content"`
		CreateIfMissing bool    `json:"create_if_missing"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	e.Path = a.Path
	e.NewContent = a.NewContent
	e.CreateIfMissing = a.CreateIfMissing
	if a.OldContent != nil {
		e.OldContent = *a.OldContent
		e.HasOldContent = true
	}
	return nil
}

// fileBackup captures a file's pre-edit state so it can be restored if
// a later edit in the same transaction fails.
type fileBackup struct {
	path            string
	originalContent string
	existed         bool
}

func captureBackup(path string) (fileBackup, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fileBackup{path: path, existed: false}, nil
	}
	if err != nil {
		return fileBackup{}, err
	}
	return fileBackup{path: path, originalContent: string(content), existed: true}, nil
}

func (b fileBackup) restore() error {
	if !b.existed {
		return os.Remove(b.path)
	}
	return os.WriteFile(b.path, []byte(b.originalContent), 0o644)
}

// MultiEditTool applies a batch of file edits as a single transaction:
// if any edit fails to apply, every edit already applied is rolled back.
type MultiEditTool struct{}

func (MultiEditTool) Name() string { return "multi_edit" }

func (MultiEditTool) Description() string {
	return "Apply multiple file edits atomically. If any edit fails, all previously applied edits in the batch are rolled back."
}

func (MultiEditTool) SecurityLevel() models.SecurityLevel { return models.Dangerous }

func (MultiEditTool) ParametersSchema() models.ParameterSchema {
	edits := models.ArrayProp("List of file edits to apply, each with path, optional old_content, new_content, and create_if_missing")
	edits.Items = &models.ParameterProperty{Type: "object"}
	return models.NewParameterSchema().
		WithRequired("edits", edits).
		WithProperty("description", models.StringProp("Human-readable description of the overall change"))
}

type multiEditArgs struct {
	Edits       []FileEdit `json:"edits"`
	Description string     `json:"description"`
}

func (MultiEditTool) Execute(_ context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	var args multiEditArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return models.ErrorResult(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	if len(args.Edits) == 0 {
		return models.ErrorResult("no edits provided"), nil
	}

	absWorkingDir, err := filepath.Abs(tc.WorkingDir)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to resolve working directory: %s", err)), nil
	}
	if resolvedDir, err := filepath.EvalSymlinks(absWorkingDir); err == nil {
		absWorkingDir = resolvedDir
	}

	// Phase 1: validate every edit and capture a backup before any
	// change is applied.
	resolved := make([]string, len(args.Edits))
	backups := make([]fileBackup, 0, len(args.Edits))

	for i, edit := range args.Edits {
		if edit.Path == "" {
			return models.ErrorResult(fmt.Sprintf("edit %d: missing path", i)), nil
		}
		path := resolvePath(tc, edit.Path)
		resolved[i] = path

		if info, statErr := os.Stat(path); statErr == nil {
			if !info.IsDir() {
				absPath, err := filepath.Abs(path)
				if err == nil {
					absPath, err = filepath.EvalSymlinks(absPath)
				}
				if err != nil || (absPath != absWorkingDir && !strings.HasPrefix(absPath, absWorkingDir+string(filepath.Separator))) {
					return models.ErrorResult(fmt.Sprintf("edit %d: path escapes working directory: %s", i, edit.Path)), nil
				}
			}
		} else if !edit.CreateIfMissing && !edit.HasOldContent {
			return models.ErrorResult(fmt.Sprintf("edit %d: file does not exist and create_if_missing is false: %s", i, edit.Path)), nil
		}

		if edit.HasOldContent {
			content, readErr := os.ReadFile(path)
			if readErr != nil {
				return models.ErrorResult(fmt.Sprintf("edit %d: cannot read file for old_content match: %s", i, edit.Path)), nil
			}
			if !strings.Contains(string(content), edit.OldContent) {
				return models.ErrorResult(fmt.Sprintf("edit %d: old_content not found in %s", i, edit.Path)), nil
			}
		}

		backup, err := captureBackup(path)
		if err != nil {
			return models.ErrorResult(fmt.Sprintf("edit %d: failed to capture backup: %s", i, err)), nil
		}
		backups = append(backups, backup)
	}

	// Phase 2: apply each edit, rolling back everything on first failure.
	var applied []string
	for i, edit := range args.Edits {
		msg, err := applyEdit(resolved[i], edit)
		if err != nil {
			for _, b := range backups {
				_ = b.restore()
			}
			return models.ErrorResult(fmt.Sprintf("edit %d failed (%s), all changes rolled back: %s", i, edit.Path, err)), nil
		}
		applied = append(applied, msg)
	}

	summary := strings.Join(applied, "\n")
	if args.Description != "" {
		summary = fmt.Sprintf("%s\n\n%s", args.Description, summary)
	}
	return models.SuccessResult(summary), nil
}

func applyEdit(path string, edit FileEdit) (string, error) {
	if parent := filepath.Dir(path); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", fmt.Errorf("failed to create parent directories: %w", err)
		}
	}

	if !edit.HasOldContent {
		_, statErr := os.Stat(path)
		if err := os.WriteFile(path, []byte(edit.NewContent), 0o644); err != nil {
			return "", err
		}
		if statErr == nil {
			return fmt.Sprintf("wrote %s", path), nil
		}
		return fmt.Sprintf("created %s", path), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	updated := strings.Replace(string(content), edit.OldContent, edit.NewContent, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("replaced content in %s", path), nil
}
