package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// collector records handled log paths behind a mutex.
type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) handle(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
	return nil
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func (c *collector) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, p := range c.snapshot() {
			if p == want {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("handler never saw %s; got %v", want, c.snapshot())
}

func TestRunSweepsExistingLogs(t *testing.T) {
	logsDir := t.TempDir()
	existing := filepath.Join(logsDir, "session_old.log")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Partials must not be swept.
	partial := filepath.Join(logsDir, "session_live.log.partial")
	if err := os.WriteFile(partial, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c collector
	done := make(chan error, 1)
	go func() { done <- Run(ctx, logsDir, c.handle) }()

	c.waitFor(t, existing)
	for _, p := range c.snapshot() {
		if p == partial {
			t.Errorf("partial log was handled: %s", p)
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
}

func TestRunHandlesRenamedPartial(t *testing.T) {
	logsDir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c collector
	go Run(ctx, logsDir, c.handle)

	// Give the watcher a moment to register before producing events.
	time.Sleep(100 * time.Millisecond)

	partial := filepath.Join(logsDir, "session_new.log.partial")
	final := filepath.Join(logsDir, "session_new.log")
	if err := os.WriteFile(partial, []byte("content"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	// The .partial create event must not trigger the handler; the rename
	// into the final name is the completion marker.
	time.Sleep(200 * time.Millisecond)
	if got := c.snapshot(); len(got) != 0 {
		t.Fatalf("handler ran before completion: %v", got)
	}

	if err := os.Rename(partial, final); err != nil {
		t.Fatalf("rename: %v", err)
	}
	c.waitFor(t, final)
}

func TestRunCreatesLogsDir(t *testing.T) {
	logsDir := filepath.Join(t.TempDir(), "nested", "logs")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // return immediately after setup

	var c collector
	err := Run(ctx, logsDir, c.handle)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
	if _, statErr := os.Stat(logsDir); statErr != nil {
		t.Errorf("logs dir not created: %v", statErr)
	}
}

func TestIsCompletedLog(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"session_20260301-143005-ab12cd34.log", true},
		{"session_20260301-143005-ab12cd34.log.partial", false},
		{"archive.zst", false},
		{"notes.txt", false},
	}
	for _, tc := range tests {
		if got := isCompletedLog(tc.name); got != tc.want {
			t.Errorf("isCompletedLog(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
