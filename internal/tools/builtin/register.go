package builtin

import "github.com/agentoven/quant-go/internal/tools"

// DefaultRegistry returns a registry populated with every built-in tool:
// the Safe read/search tools, the Moderate network and VCS tools, and
// the Dangerous mutation/execution tools.
func DefaultRegistry() *tools.Registry {
	reg := tools.NewRegistry()

	// Safe: read-only, no side effects.
	reg.Register(FileReadTool{})
	reg.Register(GlobTool{})
	reg.Register(GrepTool{})

	// Moderate: reach outside the working directory, or mutate shared
	// state (git) in ways a user should be aware of but need not gate
	// on every call.
	reg.Register(WebFetchTool{})
	reg.Register(WebSearchTool{})
	reg.Register(GitTool{})

	// Dangerous: write to disk, run arbitrary commands, or both.
	reg.Register(FileWriteTool{})
	reg.Register(BashTool{})
	reg.Register(NewSandboxTool())
	reg.Register(MultiEditTool{})

	return reg
}

// SafeRegistry returns a registry populated with only the Safe tools,
// for contexts that must not write files or touch the network.
func SafeRegistry() *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(FileReadTool{})
	reg.Register(GlobTool{})
	reg.Register(GrepTool{})
	return reg
}
