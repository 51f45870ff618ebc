package session

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session represents one recorded run of the wrapped interactive tool.
// It is created when the recorder starts and immutable once the run ends.
type Session struct {
	ID         string
	LogPath    string // final log path; empty when Degraded
	StartedAt  time.Time
	EndedAt    time.Time
	ExitStatus int
	Degraded   bool // pty allocation failed; session ran unrecorded
}

var logNamePattern = regexp.MustCompile(`^session_(\d{8}-\d{6}-[0-9a-f]{8})\.log$`)

// New creates a session with a timestamp-derived identifier and a
// deterministic log path under logsDir.
func New(logsDir string, start time.Time) Session {
	id := fmt.Sprintf("%s-%s", start.Format("20060102-150405"), uuid.NewString()[:8])
	return Session{
		ID:        id,
		LogPath:   filepath.Join(logsDir, LogName(id)),
		StartedAt: start,
	}
}

// LogName returns the log filename for a session ID.
func LogName(id string) string {
	return "session_" + id + ".log"
}

// IDFromLogPath extracts the session ID from a log path produced by LogName.
// Returns ("", false) for paths that don't follow the naming scheme.
func IDFromLogPath(path string) (string, bool) {
	m := logNamePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FromLogPath reconstructs a minimal session for a log file that was not
// produced by this process (e.g. picked up by the watcher). Logs with
// foreign names get an identifier derived from the filename so re-processing
// stays idempotent.
func FromLogPath(path string) Session {
	if id, ok := IDFromLogPath(path); ok {
		return Session{ID: id, LogPath: path}
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Session{ID: "ext-" + base, LogPath: path}
}
