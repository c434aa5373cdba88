package mcp

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindProjectConfig(t *testing.T) {
	dir := t.TempDir()
	if path := findProjectConfig(dir); path != "" {
		t.Fatalf("expected no config found, got %q", path)
	}

	quantPath := filepath.Join(dir, "QUANT.md")
	if err := os.WriteFile(quantPath, []byte("# test"), 0o644); err != nil {
		t.Fatal(err)
	}
	if path := findProjectConfig(dir); path != quantPath {
		t.Fatalf("expected %q, got %q", quantPath, path)
	}
}

func TestConfigWatcherNoConfig(t *testing.T) {
	dir := t.TempDir()
	w, err := NewConfigWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if w.HasConfig() {
		t.Fatal("expected no config to be detected")
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start should be a no-op without a config file: %v", err)
	}
}

func TestConfigWatcherDetectsModification(t *testing.T) {
	dir := t.TempDir()
	quantPath := filepath.Join(dir, "QUANT.md")
	if err := os.WriteFile(quantPath, []byte("# initial"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewConfigWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.HasConfig() {
		t.Fatal("expected config to be detected")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(quantPath, []byte("# changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events:
		if ev.Path != quantPath {
			t.Fatalf("unexpected event path: %q", ev.Path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}
