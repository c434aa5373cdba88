// Package gate implements the security confirmation gate: it decides,
// for a given tool call and security level, whether the agent loop may
// proceed, skip, deny, or abort.
package gate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/quant-go/internal/models"
)

// Decision is the outcome of asking the gate whether a tool call may
// run.
type Decision int

const (
	Approved Decision = iota
	Denied
	Skip
	Abort
)

func (d Decision) String() string {
	switch d {
	case Approved:
		return "approved"
	case Denied:
		return "denied"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Handler decides whether a tool call may proceed.
type Handler interface {
	Confirm(call models.ToolCall, level models.SecurityLevel) Decision
}

// AutoApprove approves everything. Useful for tests and scripted runs.
type AutoApprove struct{}

func (AutoApprove) Confirm(models.ToolCall, models.SecurityLevel) Decision { return Approved }

// AutoDeny denies everything above Safe. Useful for dry-run/read-only
// modes.
type AutoDeny struct{}

func (AutoDeny) Confirm(_ models.ToolCall, level models.SecurityLevel) Decision {
	if level == models.Safe {
		return Approved
	}
	return Denied
}

// TerminalConfirmation prompts an interactive terminal for Moderate and
// Dangerous calls. Safe calls never prompt. When auto_mode is set,
// nothing prompts. When the terminal is non-interactive and auto_mode
// is not set, Moderate/Dangerous calls are denied rather than hanging
// on a prompt nobody can answer.
type TerminalConfirmation struct {
	AutoMode bool
	In       io.Reader
	Out      io.Writer
}

// NewTerminalConfirmation wires stdin/stdout, wrapping stdout with
// go-colorable so ANSI color codes render correctly on Windows
// consoles too.
func NewTerminalConfirmation(autoMode bool) *TerminalConfirmation {
	return &TerminalConfirmation{
		AutoMode: autoMode,
		In:       os.Stdin,
		Out:      colorable.NewColorableStdout(),
	}
}

func (t *TerminalConfirmation) Confirm(call models.ToolCall, level models.SecurityLevel) Decision {
	if level == models.Safe {
		return Approved
	}
	if t.AutoMode {
		return Approved
	}
	if !isInteractive() {
		log.Warn().Str("tool", call.Name).Str("level", level.String()).
			Msg("non-interactive session and auto_mode disabled; denying")
		return Denied
	}

	fmt.Fprintf(t.Out, "\n\033[33m⚠ %s\033[0m wants to run \033[1m%s\033[0m (%s)\n",
		"quant", call.Name, level.String())
	fmt.Fprint(t.Out, "Allow this action? [y/n/s(kip)/a(bort)] ")

	reader := bufio.NewReader(t.In)
	line, err := reader.ReadString('\n')
	if err != nil {
		return Denied
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return Approved
	case "s", "skip":
		return Skip
	case "a", "abort", "q", "quit":
		return Abort
	default:
		return Denied
	}
}

// isInteractive reports whether stdin is a character device, i.e.
// whether a human could plausibly answer a prompt right now.
func isInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
