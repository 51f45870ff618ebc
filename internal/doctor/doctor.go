// Package doctor verifies a contextmap installation: configuration,
// credential, wrapped tool, and project state health.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calebh/contextmap/internal/config"
	"github.com/calebh/contextmap/internal/evolution"
	"github.com/calebh/contextmap/internal/registry"
	"github.com/calebh/contextmap/internal/tool"
)

// Status represents the outcome of a single check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "FAIL"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report aggregates all check results.
type Report struct {
	Results []Result
}

// HasFailures returns true if any result has Fail status.
func (r Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Format returns the human-readable report string.
func (r Report) Format() string {
	if len(r.Results) == 0 {
		return "ctxmap doctor\n\n  no checks ran\n"
	}

	maxName := 0
	for _, res := range r.Results {
		if len(res.Name) > maxName {
			maxName = len(res.Name)
		}
	}

	var b strings.Builder
	b.WriteString("ctxmap doctor\n\n")

	var passed, warnings, failures int
	for _, res := range r.Results {
		switch res.Status {
		case Pass:
			passed++
		case Warn:
			warnings++
		case Fail:
			failures++
		}
		fmt.Fprintf(&b, "  %-4s  %-*s  %s\n", res.Status, maxName, res.Name, res.Detail)
	}

	fmt.Fprintf(&b, "\n%d passed, %d warning, %d failure\n", passed, warnings, failures)
	return b.String()
}

// RunAll executes every check for the project at projectDir.
func RunAll(cfg config.Config, projectDir string) Report {
	return Report{Results: []Result{
		CheckConfig(),
		CheckCredential(cfg.LLM),
		CheckTool(cfg.Tool),
		CheckStateDir(cfg, projectDir),
		CheckRecord(cfg, projectDir),
		CheckRegistry(cfg, projectDir),
	}}
}

// CheckConfig reports the resolved config path. Always passes — broken
// TOML is caught by config.Load before we get here.
func CheckConfig() Result {
	cfgPath := filepath.Join(config.ConfigDir(), "config.toml")
	if _, err := os.Stat(cfgPath); err != nil {
		return Result{Name: "config", Status: Warn, Detail: cfgPath + " not found (defaults in effect)"}
	}
	return Result{Name: "config", Status: Pass, Detail: cfgPath}
}

// CheckCredential checks the LLM credential environment variable.
func CheckCredential(cfg config.LLMConfig) Result {
	if cfg.APIKey() == "" {
		return Result{Name: "credential", Status: Fail, Detail: cfg.APIKeyEnv + " not set; recording will refuse to start"}
	}
	return Result{Name: "credential", Status: Pass, Detail: cfg.APIKeyEnv + " set"}
}

// CheckTool checks whether the wrapped binary can be resolved.
func CheckTool(cfg config.ToolConfig) Result {
	path, err := tool.Find(cfg)
	if err != nil {
		return Result{Name: "tool", Status: Fail, Detail: err.Error()}
	}
	return Result{Name: "tool", Status: Pass, Detail: path}
}

// CheckStateDir checks that the project state directory is writable.
func CheckStateDir(cfg config.Config, projectDir string) Result {
	dir := cfg.StateDir(projectDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: "state", Status: Fail, Detail: fmt.Sprintf("%s: %v", dir, err)}
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return Result{Name: "state", Status: Fail, Detail: fmt.Sprintf("%s not writable: %v", dir, err)}
	}
	os.Remove(probe)
	return Result{Name: "state", Status: Pass, Detail: dir}
}

// CheckRecord checks that the evolution record is absent or readable.
func CheckRecord(cfg config.Config, projectDir string) Result {
	path := cfg.RecordPath(projectDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Result{Name: "record", Status: Pass, Detail: "no record yet"}
	}

	// Peek without the store so a corrupt record is reported, not quarantined.
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Name: "record", Status: Fail, Detail: err.Error()}
	}
	rec, err := evolution.Decode(data)
	if err != nil {
		return Result{Name: "record", Status: Warn, Detail: fmt.Sprintf("%v (will be quarantined on next merge)", err)}
	}
	return Result{Name: "record", Status: Pass, Detail: fmt.Sprintf("%d steps, %d sessions", len(rec.Steps), len(rec.Sessions))}
}

// CheckRegistry checks that the session registry opens.
func CheckRegistry(cfg config.Config, projectDir string) Result {
	reg, err := registry.Open(cfg.RegistryPath(projectDir))
	if err != nil {
		return Result{Name: "registry", Status: Fail, Detail: err.Error()}
	}
	defer reg.Close()

	pending, err := reg.Pending()
	if err != nil {
		return Result{Name: "registry", Status: Warn, Detail: err.Error()}
	}
	if len(pending) > 0 {
		return Result{Name: "registry", Status: Warn, Detail: fmt.Sprintf("%d sessions awaiting analysis (ctxmap retry)", len(pending))}
	}
	return Result{Name: "registry", Status: Pass, Detail: "no pending sessions"}
}
