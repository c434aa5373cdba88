// Package project discovers the project a task is running against:
// its type, key files, git state, and any QUANT.md instructions, hooks,
// and MCP server definitions it carries.
package project

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentoven/quant-go/internal/hooks"
	"github.com/agentoven/quant-go/internal/mcp"
)

// Type is the detected kind of project at a root directory.
type Type string

const (
	TypeGo      Type = "Go"
	TypeRust    Type = "Rust"
	TypeNode    Type = "Node.js"
	TypePython  Type = "Python"
	TypeJava    Type = "Java"
	TypeUnknown Type = "Unknown"
)

func (t Type) keyFiles() []string {
	switch t {
	case TypeGo:
		return []string{"go.mod", "go.sum", "main.go"}
	case TypeRust:
		return []string{"Cargo.toml", "Cargo.lock", "src/main.rs", "src/lib.rs"}
	case TypeNode:
		return []string{"package.json", "package-lock.json", "tsconfig.json", "src/index.ts", "src/index.js"}
	case TypePython:
		return []string{"pyproject.toml", "setup.py", "requirements.txt", "main.py", "app.py"}
	case TypeJava:
		return []string{"pom.xml", "build.gradle", "src/main/java"}
	default:
		return nil
	}
}

func (t Type) ignorePatterns() []string {
	switch t {
	case TypeGo:
		return []string{"vendor/"}
	case TypeRust:
		return []string{"target/", "*.rlib", "*.rmeta"}
	case TypeNode:
		return []string{"node_modules/", "dist/", "build/", ".next/"}
	case TypePython:
		return []string{"__pycache__/", "*.pyc", ".venv/", "venv/", ".egg-info/"}
	case TypeJava:
		return []string{"target/", "build/", "*.class", "*.jar"}
	default:
		return nil
	}
}

// FrontMatter is the structured content a QUANT.md's `---`-delimited
// YAML header may declare.
type FrontMatter struct {
	Hooks      []hooks.Hook      `yaml:"hooks,omitempty"`
	McpServers []mcp.ServerConfig `yaml:"mcp_servers,omitempty"`
}

// QuantFile is the parsed content of a QUANT.md project file.
type QuantFile struct {
	Path         string
	Content      string
	Body         string
	Description  string
	Instructions []string
	FrontMatter  FrontMatter
}

// HasMCPServers reports whether the file declared any MCP servers.
func (q *QuantFile) HasMCPServers() bool {
	return q != nil && len(q.FrontMatter.McpServers) > 0
}

// HasHooks reports whether the file declared any hooks.
func (q *QuantFile) HasHooks() bool {
	return q != nil && len(q.FrontMatter.Hooks) > 0
}

// LoadQuantMD reads and parses a QUANT.md file at path. A leading
// `---\n...\n---\n` block is parsed as YAML front matter; the remainder
// is kept as the document body for prompt inclusion. Files with no
// front matter are still parsed for description/instructions.
func LoadQuantMD(path string) (*QuantFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	content := string(raw)

	body := content
	var fm FrontMatter
	if rest, ok := splitFrontMatter(content); ok {
		if err := yaml.Unmarshal([]byte(rest.yaml), &fm); err != nil {
			return nil, fmt.Errorf("parsing front matter in %s: %w", path, err)
		}
		body = rest.body
	}

	description, instructions := parseBody(body)

	return &QuantFile{
		Path:         path,
		Content:      content,
		Body:         body,
		Description:  description,
		Instructions: instructions,
		FrontMatter:  fm,
	}, nil
}

type splitResult struct {
	yaml string
	body string
}

// splitFrontMatter extracts a leading `---\n ... \n---\n` block.
func splitFrontMatter(content string) (splitResult, bool) {
	const delim = "---"
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delim {
		return splitResult{}, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delim {
			yamlBlock := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return splitResult{yaml: yamlBlock, body: strings.TrimLeft(body, "\n")}, true
		}
	}
	return splitResult{}, false
}

// parseBody extracts a description (first heading or paragraph) and any
// bullet points under a heading whose text contains "instruction".
func parseBody(body string) (description string, instructions []string) {
	inInstructions := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)

		if description == "" && trimmed != "" {
			if strings.HasPrefix(trimmed, "# ") {
				description = strings.TrimPrefix(trimmed, "# ")
			} else if !strings.HasPrefix(trimmed, "#") {
				description = trimmed
			}
		}

		if strings.HasPrefix(trimmed, "#") && strings.Contains(strings.ToLower(trimmed), "instruction") {
			inInstructions = true
			continue
		}

		if inInstructions && (strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ")) {
			instructions = append(instructions, trimmed[2:])
		}

		if strings.HasPrefix(trimmed, "# ") && inInstructions {
			inInstructions = false
		}
	}
	return description, instructions
}

// GitInfo summarizes the git repository state at a project root.
type GitInfo struct {
	Branch          string
	HasUncommitted  bool
	Remote          string
}

// Context is everything discovered about the project a task runs
// against.
type Context struct {
	Root      string
	Type      Type
	QuantFile *QuantFile
	Name      string
	KeyFiles  []string
	Structure []string
	Git       *GitInfo
}

var rootMarkers = []string{
	".git",
	"Cargo.toml",
	"package.json",
	"pyproject.toml",
	"setup.py",
	"go.mod",
	"pom.xml",
	"build.gradle",
	"QUANT.md",
	".quant",
}

var quantFileCandidates = []string{"QUANT.md", "quant.md", ".quant/instructions.md"}

// Discover walks up from startDir looking for a project root marker,
// detects the project type, and loads whatever QUANT.md, key files, and
// git info it finds. It always returns a Context, falling back to
// startDir itself when no marker is found.
func Discover(startDir string) *Context {
	root := findProjectRoot(startDir)
	typ := detectType(root)
	quantFile := findQuantFile(root)
	name := extractName(root, typ)

	return &Context{
		Root:      root,
		Type:      typ,
		QuantFile: quantFile,
		Name:      name,
		KeyFiles:  findKeyFiles(root, typ),
		Structure: buildStructureSummary(root, typ),
		Git:       gitInfo(root),
	}
}

func findProjectRoot(start string) string {
	current := start
	if abs, err := filepath.Abs(current); err == nil {
		current = abs
	}

	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return start
}

func detectType(root string) Type {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(root, name))
		return err == nil
	}
	switch {
	case exists("go.mod"):
		return TypeGo
	case exists("Cargo.toml"):
		return TypeRust
	case exists("package.json"):
		return TypeNode
	case exists("pyproject.toml"), exists("setup.py"):
		return TypePython
	case exists("pom.xml"), exists("build.gradle"):
		return TypeJava
	default:
		return TypeUnknown
	}
}

func findQuantFile(root string) *QuantFile {
	for _, candidate := range quantFileCandidates {
		path := filepath.Join(root, candidate)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		qf, err := LoadQuantMD(path)
		if err != nil {
			continue
		}
		return qf
	}
	return nil
}

func extractName(root string, typ Type) string {
	switch typ {
	case TypeGo:
		if name, ok := moduleNameFromGoMod(filepath.Join(root, "go.mod")); ok {
			return name
		}
	}
	base := filepath.Base(root)
	if base == "" || base == "." {
		return "unknown"
	}
	return base
}

func moduleNameFromGoMod(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "module "); ok {
			fields := strings.Fields(after)
			if len(fields) > 0 {
				parts := strings.Split(fields[0], "/")
				return parts[len(parts)-1], true
			}
		}
	}
	return "", false
}

func findKeyFiles(root string, typ Type) []string {
	var files []string
	seen := map[string]bool{}
	add := func(rel string) {
		if _, err := os.Stat(filepath.Join(root, rel)); err == nil && !seen[rel] {
			files = append(files, rel)
			seen[rel] = true
		}
	}
	for _, f := range typ.keyFiles() {
		add(f)
	}
	for _, f := range []string{"README.md", "README", "LICENSE", "CHANGELOG.md", "QUANT.md"} {
		add(f)
	}
	return files
}

func buildStructureSummary(root string, typ Type) []string {
	ignore := typ.ignorePatterns()
	ignored := func(name string) bool {
		if strings.HasPrefix(name, ".") {
			return true
		}
		for _, p := range ignore {
			pattern := strings.TrimSuffix(p, "/")
			if name == pattern || strings.HasPrefix(name, pattern) {
				return true
			}
		}
		return false
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var kept []os.DirEntry
	for _, e := range entries {
		if !ignored(e.Name()) {
			kept = append(kept, e)
		}
	}
	sortEntriesByName(kept)

	var structure []string
	for i, e := range kept {
		if i >= 20 {
			break
		}
		if e.IsDir() {
			structure = append(structure, e.Name()+"/")
			structure = append(structure, subStructure(filepath.Join(root, e.Name()))...)
		} else {
			structure = append(structure, e.Name())
		}
	}
	return structure
}

func subStructure(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var visible []os.DirEntry
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			visible = append(visible, e)
		}
	}
	sortEntriesByName(visible)

	var out []string
	for i, e := range visible {
		if i >= 5 {
			break
		}
		if e.IsDir() {
			out = append(out, "  "+e.Name()+"/")
		} else {
			out = append(out, "  "+e.Name())
		}
	}
	return out
}

func sortEntriesByName(entries []os.DirEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Name() > entries[j].Name(); j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

func gitInfo(root string) *GitInfo {
	gitDir := filepath.Join(root, ".git")
	if _, err := os.Stat(gitDir); err != nil {
		return nil
	}

	branch := "unknown"
	if head, err := os.ReadFile(filepath.Join(gitDir, "HEAD")); err == nil {
		content := strings.TrimSpace(string(head))
		if after, ok := strings.CutPrefix(content, "ref: refs/heads/"); ok {
			branch = after
		} else {
			branch = "detached"
		}
	}

	hasUncommitted := false
	if out, err := runGit(root, "status", "--porcelain"); err == nil {
		hasUncommitted = len(bytes.TrimSpace(out)) > 0
	}

	var remote string
	if out, err := runGit(root, "remote", "get-url", "origin"); err == nil {
		remote = strings.TrimSpace(string(out))
	}

	return &GitInfo{Branch: branch, HasUncommitted: hasUncommitted, Remote: remote}
}

func runGit(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

// ToSystemContext renders the discovered project context as Markdown
// suitable for inclusion in the agent's system prompt.
func (c *Context) ToSystemContext() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Project: %s\n", c.Name)
	fmt.Fprintf(&b, "Type: %s\n", c.Type)
	fmt.Fprintf(&b, "Root: %s\n\n", c.Root)

	if c.QuantFile != nil {
		b.WriteString("## Project Instructions (from QUANT.md)\n\n")
		b.WriteString(c.QuantFile.Body)
		b.WriteString("\n\n")
	}

	if c.Git != nil {
		b.WriteString("## Git\n")
		fmt.Fprintf(&b, "Branch: %s\n", c.Git.Branch)
		if c.Git.HasUncommitted {
			b.WriteString("Status: Has uncommitted changes\n")
		}
		if c.Git.Remote != "" {
			fmt.Fprintf(&b, "Remote: %s\n", c.Git.Remote)
		}
		b.WriteString("\n")
	}

	if len(c.Structure) > 0 {
		b.WriteString("## Project Structure\n```\n")
		for _, line := range c.Structure {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}

	if len(c.KeyFiles) > 0 {
		b.WriteString("## Key Files\n")
		for _, f := range c.KeyFiles {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	return b.String()
}
