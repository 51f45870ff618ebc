package session

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	start := time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC)
	s := New("/tmp/logs", start)

	if !strings.HasPrefix(s.ID, "20260301-143005-") {
		t.Errorf("ID = %q, want timestamp prefix", s.ID)
	}
	if len(s.ID) != len("20260301-143005-")+8 {
		t.Errorf("ID suffix length wrong: %q", s.ID)
	}
	if s.LogPath != filepath.Join("/tmp/logs", "session_"+s.ID+".log") {
		t.Errorf("LogPath = %q", s.LogPath)
	}
	if !s.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v", s.StartedAt)
	}
	if s.Degraded {
		t.Error("new session must not be degraded")
	}
}

func TestNewUniqueIDs(t *testing.T) {
	start := time.Now()
	a := New("/tmp", start)
	b := New("/tmp", start)
	if a.ID == b.ID {
		t.Errorf("sessions sharing a start time must still be distinct: %q", a.ID)
	}
}

func TestIDFromLogPath(t *testing.T) {
	tests := []struct {
		path   string
		wantID string
		wantOK bool
	}{
		{"/p/.context/logs/session_20260301-143005-ab12cd34.log", "20260301-143005-ab12cd34", true},
		{"session_20260301-143005-ab12cd34.log", "20260301-143005-ab12cd34", true},
		{"session_20260301-143005-ab12cd34.log.partial", "", false},
		{"session_notadate-ab12cd34.log", "", false},
		{"typescript_output.log", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		id, ok := IDFromLogPath(tc.path)
		if id != tc.wantID || ok != tc.wantOK {
			t.Errorf("IDFromLogPath(%q) = %q, %v; want %q, %v", tc.path, id, ok, tc.wantID, tc.wantOK)
		}
	}
}

func TestLogNameRoundTrip(t *testing.T) {
	s := New("/tmp", time.Now())
	id, ok := IDFromLogPath(s.LogPath)
	if !ok || id != s.ID {
		t.Errorf("IDFromLogPath(LogPath) = %q, %v; want %q", id, ok, s.ID)
	}
}

func TestFromLogPath(t *testing.T) {
	own := FromLogPath("/p/logs/session_20260301-143005-ab12cd34.log")
	if own.ID != "20260301-143005-ab12cd34" {
		t.Errorf("own log ID = %q", own.ID)
	}

	foreign := FromLogPath("/p/logs/typescript_output.log")
	if foreign.ID != "ext-typescript_output" {
		t.Errorf("foreign log ID = %q", foreign.ID)
	}

	// Same path must yield the same ID so re-processing stays idempotent.
	again := FromLogPath("/p/logs/typescript_output.log")
	if again.ID != foreign.ID {
		t.Errorf("foreign ID not deterministic: %q vs %q", again.ID, foreign.ID)
	}
}
