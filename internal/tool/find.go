// Package tool locates the wrapped interactive binary.
package tool

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/calebh/contextmap/internal/config"
)

// Find resolves the wrapped binary path. Priority: environment override,
// configured explicit path, common install locations, PATH lookup.
func Find(cfg config.ToolConfig) (string, error) {
	if p := os.Getenv(config.ToolEnv); p != "" {
		if executable(p) {
			return p, nil
		}
		return "", fmt.Errorf("%s=%s is not an executable", config.ToolEnv, p)
	}

	if cfg.Path != "" {
		if executable(cfg.Path) {
			return cfg.Path, nil
		}
		return "", fmt.Errorf("configured tool path %s is not an executable", cfg.Path)
	}

	name := cfg.Name
	if name == "" {
		name = "claude"
	}

	home, _ := os.UserHomeDir()
	common := []string{
		filepath.Join("/usr/local/bin", name),
		filepath.Join("/opt/homebrew/bin", name),
		filepath.Join(home, ".npm-global", "bin", name),
		filepath.Join(home, ".nvm", "current", "bin", name),
	}
	for _, p := range common {
		if executable(p) {
			return p, nil
		}
	}

	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("cannot find %s: set %s or [tool] path in config", name, config.ToolEnv)
	}
	return p, nil
}

func executable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
