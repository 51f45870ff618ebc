package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDir returns the contextmap config directory path.
// Uses $XDG_CONFIG_HOME/contextmap if set, otherwise ~/.config/contextmap.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "contextmap")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "contextmap")
}

// WriteDefault writes a default config.toml.
// Returns the config file path. Skips if config.toml already exists.
func WriteDefault() (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	content := `state_dir = ".context"

[tool]
name = "claude"
# path = "/usr/local/bin/claude"

[llm]
base_url = "https://api.openai.com/v1"
model = "gpt-4o-mini"
api_key_env = "CONTEXTMAP_API_KEY"
timeout_seconds = 60
max_retries = 2

[archive]
compress = true
max_age_days = 2
retention_days = 30
`

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}
