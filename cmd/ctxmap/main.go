package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/calebh/contextmap/internal/archive"
	"github.com/calebh/contextmap/internal/config"
	"github.com/calebh/contextmap/internal/doctor"
	"github.com/calebh/contextmap/internal/evolution"
	"github.com/calebh/contextmap/internal/pipeline"
	"github.com/calebh/contextmap/internal/recorder"
	"github.com/calebh/contextmap/internal/registry"
	"github.com/calebh/contextmap/internal/report"
	"github.com/calebh/contextmap/internal/session"
	"github.com/calebh/contextmap/internal/stats"
	"github.com/calebh/contextmap/internal/tool"
	"github.com/calebh/contextmap/internal/watch"
)

const version = "0.1.0"

func main() {
	log.SetFlags(0)
	log.SetPrefix("ctxmap: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fatal("getwd: %v", err)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(cmdRun(cfg, cwd, os.Args[2:]))

	case "analyze":
		if len(os.Args) < 3 {
			fatal("usage: ctxmap analyze <session.log>")
		}
		cmdAnalyze(cfg, cwd, os.Args[2])

	case "pending":
		cmdPending(cfg, cwd)

	case "retry":
		cmdRetry(cfg, cwd, os.Args[2:])

	case "report":
		cmdReport(cfg, cwd)

	case "watch":
		cmdWatch(cfg, cwd)

	case "archive":
		cmdArchive(cfg, cwd)

	case "stats":
		cmdStats(cfg, cwd)

	case "doctor":
		rep := doctor.RunAll(cfg, cwd)
		fmt.Print(rep.Format())
		if rep.HasFailures() {
			os.Exit(1)
		}

	case "init":
		path, err := config.WriteDefault()
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("config: %s\n", path)

	case "version":
		fmt.Printf("ctxmap v%s (contextmap)\n", version)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// cmdRun wraps the interactive tool: record the session, then run the
// analysis pipeline. Returns the child's exit status so the wrapper is
// transparent to scripts.
func cmdRun(cfg config.Config, cwd string, args []string) int {
	// Hard configuration errors surface before any terminal is attached.
	if err := cfg.LLM.RequireAPIKey(); err != nil {
		fatal("%v", err)
	}

	toolPath, err := tool.Find(cfg.Tool)
	if err != nil {
		fatal("%v", err)
	}

	printAnchorBanner(cfg, cwd)

	logsDir := cfg.LogsDir(cwd)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		fatal("create logs dir: %v", err)
	}

	sess := session.New(logsDir, time.Now())
	argv := append([]string{toolPath}, args...)

	res, err := recorder.Record(argv, sess.LogPath)
	if err != nil {
		fatal("%v", err)
	}

	sess.EndedAt = time.Now()
	sess.ExitStatus = res.ExitStatus
	sess.Degraded = res.Degraded
	if res.Degraded {
		sess.LogPath = ""
	}

	fmt.Fprintf(os.Stderr, "\nctxmap: session ended, mapping your journey...\n")

	pres, perr := pipeline.Run(cfg, cwd, sess)
	switch {
	case perr != nil:
		// Analysis problems are a post-session warning, never an extra
		// failure on top of the user's real work.
		log.Printf("warning: %v", perr)
	case pres.Skipped:
		fmt.Fprintf(os.Stderr, "ctxmap: skipped (%s)\n", pres.Reason)
	default:
		fmt.Fprintf(os.Stderr, "ctxmap: map updated (%d steps) → %s\n", pres.Steps, pres.ReportPath)
	}

	return res.ExitStatus
}

func cmdAnalyze(cfg config.Config, cwd, logPath string) {
	sess := session.FromLogPath(logPath)
	runPipeline(cfg, cwd, sess)
}

func cmdPending(cfg config.Config, cwd string) {
	reg, err := registry.Open(cfg.RegistryPath(cwd))
	if err != nil {
		fatal("%v", err)
	}
	defer reg.Close()

	entries, err := reg.Pending()
	if err != nil {
		fatal("%v", err)
	}
	if len(entries) == 0 {
		fmt.Println("no pending sessions")
		return
	}

	for _, e := range entries {
		detail := e.LastError
		if detail == "" {
			detail = e.LogPath
		}
		fmt.Printf("%-10s %s  %s\n", e.Status, e.ID, detail)
	}
}

func cmdRetry(cfg config.Config, cwd string, args []string) {
	reg, err := registry.Open(cfg.RegistryPath(cwd))
	if err != nil {
		fatal("%v", err)
	}

	var targets []registry.Entry
	if len(args) > 0 && args[0] != "--all" {
		e, err := reg.Get(args[0])
		if err != nil {
			reg.Close()
			fatal("%v", err)
		}
		if e == nil {
			reg.Close()
			fatal("unknown session: %s", args[0])
		}
		targets = []registry.Entry{*e}
	} else {
		targets, err = reg.Pending()
		if err != nil {
			reg.Close()
			fatal("%v", err)
		}
	}
	// The pipeline opens the registry itself.
	reg.Close()

	if len(targets) == 0 {
		fmt.Println("nothing to retry")
		return
	}

	for _, e := range targets {
		if e.Status == registry.StatusDegraded || e.LogPath == "" {
			fmt.Printf("skip %s: no log captured\n", e.ID)
			continue
		}
		sess := session.Session{
			ID:         e.ID,
			LogPath:    resolveLog(cfg, cwd, e.LogPath),
			StartedAt:  e.StartedAt,
			EndedAt:    e.EndedAt,
			ExitStatus: e.ExitStatus,
		}
		runPipeline(cfg, cwd, sess)
	}
}

// resolveLog falls back to the compressed archive when housekeeping has
// already moved the raw log.
func resolveLog(cfg config.Config, cwd, logPath string) string {
	if _, err := os.Stat(logPath); err == nil {
		return logPath
	}
	archived := filepath.Join(cfg.ArchiveDir(cwd), filepath.Base(logPath)+".zst")
	if _, err := os.Stat(archived); err == nil {
		return archived
	}
	return logPath
}

func cmdReport(cfg config.Config, cwd string) {
	store := evolution.NewStore(cfg.RecordPath(cwd))
	rec, err := store.Load()
	if err != nil {
		fatal("%v", err)
	}
	if rec == nil {
		fatal("no evolution record yet; run a session first")
	}

	path := cfg.ReportPath(cwd)
	if err := report.WriteFile(path, filepath.Base(cwd), rec); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("report: %s\n", path)
}

func cmdWatch(cfg config.Config, cwd string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "ctxmap: watching %s\n", cfg.LogsDir(cwd))
	err := watch.Run(ctx, cfg.LogsDir(cwd), func(logPath string) error {
		sess := session.FromLogPath(logPath)
		res, err := pipeline.Run(cfg, cwd, sess)
		if err != nil {
			return err
		}
		if !res.Skipped {
			fmt.Fprintf(os.Stderr, "ctxmap: merged %s (%d steps)\n", sess.ID, res.Steps)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		fatal("%v", err)
	}
}

func cmdArchive(cfg config.Config, cwd string) {
	maxAge := time.Duration(cfg.Archive.MaxAgeDays) * 24 * time.Hour
	retention := time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour
	res, err := archive.Sweep(cfg.LogsDir(cwd), cfg.ArchiveDir(cwd), maxAge, retention, time.Now())
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("compressed %d, pruned %d\n", res.Compressed, res.Pruned)
}

func cmdStats(cfg config.Config, cwd string) {
	store := evolution.NewStore(cfg.RecordPath(cwd))
	rec, err := store.Load()
	if err != nil {
		fatal("%v", err)
	}

	var entries []registry.Entry
	if reg, err := registry.Open(cfg.RegistryPath(cwd)); err == nil {
		entries, err = reg.Pending()
		if err != nil {
			log.Printf("warning: %v", err)
		}
		reg.Close()
	}

	fmt.Print(stats.Format(stats.Compute(rec, entries), filepath.Base(cwd)))
}

func runPipeline(cfg config.Config, cwd string, sess session.Session) {
	res, err := pipeline.Run(cfg, cwd, sess)
	if err != nil {
		fatal("%v", err)
	}
	if res.Skipped {
		fmt.Printf("skipped: %s\n", res.Reason)
		return
	}
	fmt.Printf("merged: %d steps → %s\n", res.Steps, res.RecordPath)
}

// printAnchorBanner shows where things stand before the session starts.
func printAnchorBanner(cfg config.Config, cwd string) {
	store := evolution.NewStore(cfg.RecordPath(cwd))
	rec, err := store.Load()
	if err != nil || rec == nil || rec.Anchor.CurrentState == "" {
		return
	}

	fmt.Fprintln(os.Stderr, "\nPreviously on this project...")
	fmt.Fprintln(os.Stderr, "---------------------------------------------------")
	fmt.Fprintln(os.Stderr, rec.Anchor.CurrentState)
	for _, next := range rec.Anchor.NextSteps {
		fmt.Fprintf(os.Stderr, "  next: %s\n", next)
	}
	fmt.Fprintln(os.Stderr, "---------------------------------------------------")
}

func usage() {
	fmt.Fprintf(os.Stderr, `ctxmap v%s — terminal session journey mapping

Usage:
  ctxmap run [args...]        Record a tool session, then analyze and merge it
  ctxmap analyze <file.log>   Run the pipeline on an existing session log
  ctxmap pending              List sessions awaiting analysis
  ctxmap retry [id|--all]     Re-run analysis for pending sessions
  ctxmap report               Re-render the journey report
  ctxmap watch                Watch the logs directory for completed sessions
  ctxmap archive              Compress old logs, prune expired archives
  ctxmap stats                Show journey metrics for this project
  ctxmap doctor               Verify configuration and project state
  ctxmap init                 Write a default config file
  ctxmap version              Print version

Configuration: ~/.config/contextmap/config.toml
Credential:    export CONTEXTMAP_API_KEY (or the configured api_key_env)
Tool override: export %s
`, version, config.ToolEnv)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ctxmap: "+format+"\n", args...)
	os.Exit(1)
}
