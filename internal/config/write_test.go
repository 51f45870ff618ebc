package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if path != filepath.Join(dir, "contextmap", "config.toml") {
		t.Errorf("path = %q", path)
	}

	// The scaffolded file must round-trip through Load without changing
	// any default.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load scaffolded config: %v", err)
	}
	want := DefaultConfig()
	if cfg != want {
		t.Errorf("scaffolded config diverges from defaults:\n got %+v\nwant %+v", cfg, want)
	}
}

func TestWriteDefaultDoesNotClobber(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "contextmap", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	custom := "[tool]\nname = \"aider\"\n"
	if err := os.WriteFile(path, []byte(custom), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != custom {
		t.Error("existing config was overwritten")
	}
}

func TestConfigDirPrefersXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := ConfigDir(); got != "/xdg/contextmap" {
		t.Errorf("ConfigDir = %q", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	if got := ConfigDir(); got != "/home/tester/.config/contextmap" {
		t.Errorf("ConfigDir = %q", got)
	}
}
