// Package watch observes a project's logs directory and hands completed
// session logs to a handler. Recorders write *.log.partial while a
// session is live and rename to *.log on close, so a create or rename
// event for a *.log name marks a finished session.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Handler processes one completed log. Errors are logged, not fatal: a
// failed analysis leaves the session pending and the loop keeps going.
type Handler func(logPath string) error

// Run watches logsDir until ctx is cancelled. Logs already present when
// the watch starts are swept first, so sessions that finished while no
// watcher was running are not missed.
func Run(ctx context.Context, logsDir string, handle Handler) error {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(logsDir); err != nil {
		return fmt.Errorf("watch %s: %w", logsDir, err)
	}

	sweep(logsDir, handle)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isCompletedLog(event.Name) {
				continue
			}
			if err := handle(event.Name); err != nil {
				log.Printf("warning: process %s: %v", filepath.Base(event.Name), err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("warning: watcher: %v", err)
		}
	}
}

func sweep(logsDir string, handle Handler) {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		log.Printf("warning: sweep logs dir: %v", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isCompletedLog(e.Name()) {
			continue
		}
		path := filepath.Join(logsDir, e.Name())
		if err := handle(path); err != nil {
			log.Printf("warning: process %s: %v", e.Name(), err)
		}
	}
}

func isCompletedLog(name string) bool {
	return strings.HasSuffix(name, ".log")
}
