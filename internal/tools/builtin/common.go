// Package builtin implements the fixed set of tools the agent loop
// ships with out of the box: filesystem access, search, shell and
// sandboxed execution, git, and web access.
package builtin

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/agentoven/quant-go/internal/models"
)

const (
	defaultMaxOutputLen      = 50_000
	defaultCommandTimeoutSec = 120
	defaultHTTPTimeoutSec    = 30
)

func effectiveMaxOutputLen(ctx *models.ToolContext) int {
	if ctx.MaxOutputLen > 0 {
		return ctx.MaxOutputLen
	}
	return defaultMaxOutputLen
}

func effectiveCommandTimeout(ctx *models.ToolContext) time.Duration {
	if ctx.CommandTimeoutSec > 0 {
		return time.Duration(ctx.CommandTimeoutSec) * time.Second
	}
	return defaultCommandTimeoutSec * time.Second
}

func effectiveHTTPTimeout(ctx *models.ToolContext) time.Duration {
	if ctx.HTTPTimeoutSec > 0 {
		return time.Duration(ctx.HTTPTimeoutSec) * time.Second
	}
	return defaultHTTPTimeoutSec * time.Second
}

// resolvePath joins a caller-supplied path to the tool's working
// directory unless it is already absolute.
func resolvePath(ctx *models.ToolContext, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ctx.WorkingDir, path)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func secondsToDuration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

// truncateUTF8 truncates s to at most maxLen bytes at a rune boundary
// and appends a note, mirroring the char-boundary-safe truncation every
// built-in tool applies to its output.
func truncateUTF8(s string, maxLen int, noun string) string {
	if len(s) <= maxLen {
		return s
	}
	end := maxLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return fmt.Sprintf("%s\n\n[%s truncated at %d characters]", s[:end], noun, end)
}
