package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ToolEnv is the environment variable overriding the wrapped binary path.
const ToolEnv = "CONTEXTMAP_TOOL"

// Config holds all contextmap configuration.
type Config struct {
	StateDirName string `toml:"state_dir"` // per-project state directory name

	Tool    ToolConfig    `toml:"tool"`
	LLM     LLMConfig     `toml:"llm"`
	Archive ArchiveConfig `toml:"archive"`
}

type ToolConfig struct {
	Name string `toml:"name"` // binary name resolved via PATH
	Path string `toml:"path"` // explicit path, takes precedence over name
}

type LLMConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	APIKeyEnv      string `toml:"api_key_env"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"` // corrective retries on schema violations
}

type ArchiveConfig struct {
	Compress      bool `toml:"compress"`
	MaxAgeDays    int  `toml:"max_age_days"`   // logs older than this get compressed
	RetentionDays int  `toml:"retention_days"` // archives older than this get pruned
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StateDirName: ".context",
		Tool: ToolConfig{
			Name: "claude",
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "CONTEXTMAP_API_KEY",
			TimeoutSeconds: 60,
			MaxRetries:     2,
		},
		Archive: ArchiveConfig{
			Compress:      true,
			MaxAgeDays:    2,
			RetentionDays: 30,
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	cfg.Tool.Path = expandHome(cfg.Tool.Path)

	return cfg, nil
}

// APIKey reads the credential from the configured environment variable.
func (c LLMConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// RequireAPIKey surfaces a hard configuration error when the credential is
// absent. Called before any recording begins.
func (c LLMConfig) RequireAPIKey() error {
	if c.APIKey() == "" {
		return fmt.Errorf("LLM credential not set: export %s before recording", c.APIKeyEnv)
	}
	return nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "contextmap", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "contextmap", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// StateDir returns the per-project state directory for projectDir.
func (c Config) StateDir(projectDir string) string {
	return filepath.Join(projectDir, c.StateDirName)
}

// LogsDir returns the raw session log directory for projectDir.
func (c Config) LogsDir(projectDir string) string {
	return filepath.Join(c.StateDir(projectDir), "logs")
}

// ArchiveDir returns the compressed log archive directory for projectDir.
func (c Config) ArchiveDir(projectDir string) string {
	return filepath.Join(c.StateDir(projectDir), "archive")
}

// RecordPath returns the evolution record path for projectDir.
func (c Config) RecordPath(projectDir string) string {
	return filepath.Join(c.StateDir(projectDir), "evolution.json")
}

// RegistryPath returns the session registry database path for projectDir.
func (c Config) RegistryPath(projectDir string) string {
	return filepath.Join(c.StateDir(projectDir), "registry.db")
}

// ReportPath returns the rendered report path for projectDir.
func (c Config) ReportPath(projectDir string) string {
	return filepath.Join(c.StateDir(projectDir), "journey.html")
}
