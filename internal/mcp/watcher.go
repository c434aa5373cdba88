package mcp

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/quant-go/internal/agenterr"
)

// ChangeKind distinguishes the three ways the project config file can
// change on disk.
type ChangeKind int

const (
	Modified ChangeKind = iota
	Created
	Deleted
)

func (k ChangeKind) String() string {
	switch k {
	case Modified:
		return "modified"
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ChangeEvent is one observed change to the watched config file.
type ChangeEvent struct {
	Kind ChangeKind
	Path string
}

var projectConfigNames = []string{"QUANT.md", "quant.md"}

// findProjectConfig returns the first of the candidate config file
// names that exists directly under root, or "" if none do.
func findProjectConfig(root string) string {
	for _, name := range projectConfigNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigWatcher watches a project's QUANT.md for changes so the MCP
// server set can be hot-reloaded without restarting the agent.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	Events     chan ChangeEvent
}

// NewConfigWatcher builds a watcher for projectRoot. If no QUANT.md is
// found, the watcher is still returned but HasConfig reports false and
// Start is a no-op.
func NewConfigWatcher(projectRoot string) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &agenterr.ConfigurationError{Component: "config watcher", Err: err}
	}
	return &ConfigWatcher{
		watcher:    w,
		configPath: findProjectConfig(projectRoot),
		Events:     make(chan ChangeEvent, 16),
	}, nil
}

func (c *ConfigWatcher) HasConfig() bool    { return c.configPath != "" }
func (c *ConfigWatcher) ConfigPath() string { return c.configPath }

// Start begins watching the config file in a background goroutine,
// pushing translated events onto Events until Stop is called.
func (c *ConfigWatcher) Start() error {
	if c.configPath == "" {
		log.Debug().Msg("no project config file found to watch")
		return nil
	}
	// fsnotify watches directories, not files directly, so editors that
	// replace the file via rename-and-move still surface an event.
	dir := filepath.Dir(c.configPath)
	if err := c.watcher.Add(dir); err != nil {
		return &agenterr.ConfigurationError{Component: "config watcher", Err: err}
	}
	log.Info().Str("path", c.configPath).Msg("watching project config for changes")

	go func() {
		for {
			select {
			case event, ok := <-c.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(c.configPath) {
					continue
				}
				kind, ok := translateOp(event.Op)
				if !ok {
					continue
				}
				log.Info().Str("path", c.configPath).Str("change", kind.String()).Msg("project config changed")
				c.Events <- ChangeEvent{Kind: kind, Path: c.configPath}
			case err, ok := <-c.watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}

func translateOp(op fsnotify.Op) (ChangeKind, bool) {
	switch {
	case op&fsnotify.Write == fsnotify.Write:
		return Modified, true
	case op&fsnotify.Create == fsnotify.Create:
		return Created, true
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return Deleted, true
	default:
		return 0, false
	}
}

// Stop closes the underlying watcher and the Events channel.
func (c *ConfigWatcher) Stop() error {
	err := c.watcher.Close()
	close(c.Events)
	return err
}
