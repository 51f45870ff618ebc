// Package pipeline runs the post-session flow: segment the raw log,
// analyze it, merge the result into the project's evolution record, and
// refresh the rendered report. One run is strictly sequential; each stage
// completes before the next begins.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/calebh/contextmap/internal/analyze"
	"github.com/calebh/contextmap/internal/archive"
	"github.com/calebh/contextmap/internal/config"
	"github.com/calebh/contextmap/internal/evolution"
	"github.com/calebh/contextmap/internal/registry"
	"github.com/calebh/contextmap/internal/report"
	"github.com/calebh/contextmap/internal/sanitize"
	"github.com/calebh/contextmap/internal/segment"
	"github.com/calebh/contextmap/internal/session"
)

// Result holds the outcome of one pipeline run.
type Result struct {
	Skipped    bool
	Reason     string
	Steps      int
	RecordPath string
	ReportPath string
}

// Run processes one completed session for the project at projectDir.
// Analysis failures leave the session registered as pending with its raw
// log intact, eligible for a later retry; they never discard data.
func Run(cfg config.Config, projectDir string, sess session.Session) (*Result, error) {
	reg, err := registry.Open(cfg.RegistryPath(projectDir))
	if err != nil {
		// Bookkeeping is not worth losing a session over.
		log.Printf("warning: could not open session registry: %v", err)
		reg = nil
	} else {
		defer reg.Close()
	}

	if entry := regGet(reg, sess.ID); entry != nil && entry.Status == registry.StatusMerged {
		return &Result{Skipped: true, Reason: "already merged"}, nil
	}

	if sess.Degraded {
		regAdd(reg, registry.Entry{
			ID:        sess.ID,
			StartedAt: sess.StartedAt,
			EndedAt:   sess.EndedAt,
			Status:    registry.StatusDegraded,
			LastError: "pty unavailable, no log captured",
		})
		return &Result{Skipped: true, Reason: "recording degraded (pty unavailable)"}, nil
	}

	if entry := regGet(reg, sess.ID); entry == nil {
		regAdd(reg, registry.Entry{
			ID:         sess.ID,
			LogPath:    sess.LogPath,
			StartedAt:  sess.StartedAt,
			EndedAt:    sess.EndedAt,
			ExitStatus: sess.ExitStatus,
			Status:     registry.StatusRecorded,
		})
	}

	logPath := sess.LogPath
	if strings.HasSuffix(logPath, ".zst") {
		extracted, cleanup, err := archive.Decompress(logPath)
		if err != nil {
			return nil, fmt.Errorf("decompress archived log: %w", err)
		}
		defer cleanup()
		logPath = extracted
	}

	turns, err := segment.File(logPath)
	if err != nil {
		regStatus(reg, sess.ID, registry.StatusPending, err.Error())
		return nil, err
	}
	if len(turns) == 0 {
		regStatus(reg, sess.ID, registry.StatusEmpty, "")
		return &Result{Skipped: true, Reason: "empty session log"}, nil
	}

	// Credentials pasted or echoed during the session must not reach the
	// analysis endpoint. The raw log keeps its original bytes.
	for i := range turns {
		turns[i].Text = sanitize.Redact(turns[i].Text)
	}

	// One budget for the whole analysis conversation, corrective retries
	// included, so a slow endpoint cannot hang the shell indefinitely.
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout*time.Duration(cfg.LLM.MaxRetries+1))
	defer cancel()

	sr, err := analyze.Run(ctx, cfg.LLM, sess.ID, turns)
	if err != nil {
		regStatus(reg, sess.ID, registry.StatusPending, err.Error())
		return nil, fmt.Errorf("session preserved for retry: %w", err)
	}

	store := evolution.NewStore(cfg.RecordPath(projectDir))
	now := time.Now()
	rec, err := store.MergeSession(ctx, *sr, now)
	if err != nil {
		regStatus(reg, sess.ID, registry.StatusPending, err.Error())
		return nil, fmt.Errorf("session preserved for retry: %w", err)
	}

	if reg != nil {
		if err := reg.MarkMerged(sess.ID, now); err != nil {
			log.Printf("warning: %v", err)
		}
	}

	result := &Result{
		Steps:      len(sr.Steps),
		RecordPath: store.Path(),
	}

	reportPath := cfg.ReportPath(projectDir)
	if err := report.WriteFile(reportPath, projectName(projectDir), rec); err != nil {
		log.Printf("warning: render report: %v", err)
	} else {
		result.ReportPath = reportPath
	}

	if cfg.Archive.Compress {
		maxAge := time.Duration(cfg.Archive.MaxAgeDays) * 24 * time.Hour
		retention := time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour
		if _, err := archive.Sweep(cfg.LogsDir(projectDir), cfg.ArchiveDir(projectDir), maxAge, retention, now); err != nil {
			log.Printf("warning: log housekeeping: %v", err)
		}
	}

	return result, nil
}

func projectName(projectDir string) string {
	name := filepath.Base(projectDir)
	if name == "" || name == "." || name == "/" {
		return "project"
	}
	return name
}

// Registry helpers tolerate a nil registry so a broken database never
// blocks the pipeline.

func regGet(reg *registry.Registry, id string) *registry.Entry {
	if reg == nil {
		return nil
	}
	e, err := reg.Get(id)
	if err != nil {
		log.Printf("warning: %v", err)
		return nil
	}
	return e
}

func regAdd(reg *registry.Registry, e registry.Entry) {
	if reg == nil {
		return
	}
	if err := reg.Add(e); err != nil {
		log.Printf("warning: %v", err)
	}
}

func regStatus(reg *registry.Registry, id string, status registry.Status, msg string) {
	if reg == nil {
		return
	}
	if err := reg.SetStatus(id, status, msg); err != nil {
		log.Printf("warning: %v", err)
	}
}
