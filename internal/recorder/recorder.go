// Package recorder attaches a pseudo-terminal to the wrapped interactive
// tool and duplicates everything it writes to a raw session log, passing
// it through to the real terminal unmodified. Recording is best-effort:
// it must never degrade the wrapped interactive experience.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// Result holds the outcome of one recorded run.
type Result struct {
	ExitStatus int
	LogPath    string // empty when Degraded
	Degraded   bool   // pty allocation failed; session ran unrecorded
}

// Record spawns argv attached to a pty, teeing all child output to
// logPath. Byte order is preserved; timing is not. The log is written to
// logPath+".partial" while the session is live and renamed into place on
// exit, so a completed log is immutable and a killed recorder leaves an
// identifiable partial.
//
// If the child cannot be spawned the error is returned immediately and
// nothing downstream should run. If only the pty allocation fails, the
// session falls back to plain passthrough and the result is marked
// Degraded instead of failing the interactive session.
func Record(argv []string, logPath string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	partial := logPath + ".partial"
	logFile, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		log.Printf("warning: cannot create session log: %v", err)
		return passthrough(argv)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		logFile.Close()
		os.Remove(partial)

		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("spawn %s: %w", argv[0], err)
		}
		// pty allocation failed; run unrecorded rather than not at all
		log.Printf("warning: pty unavailable, session will not be recorded: %v", err)
		return passthrough(argv)
	}
	defer ptmx.Close()

	// Track terminal size for the child.
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	go func() {
		for range winch {
			if err := pty.InheritSize(os.Stdin, ptmx); err != nil {
				log.Printf("warning: resize pty: %v", err)
			}
		}
	}()
	winch <- syscall.SIGWINCH // initial size
	defer func() { signal.Stop(winch); close(winch) }()

	// Raw mode so keystrokes reach the child unmangled. Restored on every
	// exit path before the log is finalized.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			defer term.Restore(int(os.Stdin.Fd()), oldState)
		}
	}

	// User input flows to the child; the pty echoes it back, so the
	// output tee below captures both sides in byte order.
	go func() {
		_, _ = io.Copy(ptmx, os.Stdin)
	}()

	// Reads from the pty master fail with EIO once the child exits;
	// that is the normal end of stream, not a recording failure.
	_, _ = io.Copy(io.MultiWriter(os.Stdout, logFile), ptmx)

	exitStatus := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitStatus = exitErr.ExitCode()
		} else {
			exitStatus = 1
		}
	}

	// Flush, close, and promote the partial to its final immutable name.
	if err := logFile.Sync(); err != nil {
		log.Printf("warning: sync session log: %v", err)
	}
	if err := logFile.Close(); err != nil {
		log.Printf("warning: close session log: %v", err)
	}
	if err := os.Rename(partial, logPath); err != nil {
		return nil, fmt.Errorf("finalize session log: %w", err)
	}

	return &Result{ExitStatus: exitStatus, LogPath: logPath}, nil
}

// passthrough runs the command with plain stdio and no recording.
func passthrough(argv []string) (*Result, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", argv[0], err)
	}

	exitStatus := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitStatus = exitErr.ExitCode()
		} else {
			exitStatus = 1
		}
	}

	return &Result{ExitStatus: exitStatus, Degraded: true}, nil
}
