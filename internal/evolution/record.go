// Package evolution holds the persisted, cumulative history of a project's
// analyzed sessions and the merge engine that is its sole writer.
package evolution

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// RecordVersion is the current on-disk format version.
const RecordVersion = 1

// Outcome classifies how a step ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// Valid reports whether o is one of the enumerated outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomePartial:
		return true
	}
	return false
}

// Step is one analyzed unit of work within a session. Seq is session-local
// in a SessionResult and globally renumbered once merged.
type Step struct {
	Seq         int      `json:"seq"`
	SessionID   string   `json:"session_id"`
	Intent      string   `json:"intent"`
	Action      string   `json:"action"`
	Outcome     Outcome  `json:"outcome"`
	Artifacts   []string `json:"artifacts,omitempty"`
	Fingerprint string   `json:"fingerprint"`
}

// Transition is a directed edge between two consecutive steps with the
// trigger text explaining why the work moved on. Transitions never span
// sessions.
type Transition struct {
	FromSeq int    `json:"from_seq"`
	ToSeq   int    `json:"to_seq"`
	Trigger string `json:"trigger"`
}

// Anchor is the single always-latest "where things stand" snapshot.
// Overwritten wholesale by each merged session, never merged field-by-field.
type Anchor struct {
	CurrentState string    `json:"current_state"`
	NextSteps    []string  `json:"next_steps,omitempty"`
	OpenConcerns []string  `json:"open_concerns,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionSpan preserves session boundaries in the merged sequence.
type SessionSpan struct {
	SessionID string    `json:"session_id"`
	FirstSeq  int       `json:"first_seq"`
	LastSeq   int       `json:"last_seq"`
	MergedAt  time.Time `json:"merged_at"`
}

// Record is the persisted evolution state for one project.
type Record struct {
	Version     int           `json:"version"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Sessions    []SessionSpan `json:"sessions,omitempty"`
	Steps       []Step        `json:"steps"`
	Transitions []Transition  `json:"transitions,omitempty"`
	Anchor      Anchor        `json:"anchor"`
}

// SessionResult is one session's analyzed output before merging.
// Step Seq values are session-local, starting at 1.
type SessionResult struct {
	SessionID   string
	Steps       []Step
	Transitions []Transition
	Anchor      Anchor
}

// Fingerprint hashes a step's semantic content for deduplication.
func Fingerprint(intent, action string, outcome Outcome) string {
	h := sha256.Sum256([]byte(intent + "\x00" + action + "\x00" + string(outcome)))
	return hex.EncodeToString(h[:16])
}

// Validate checks the record invariants: strictly increasing contiguous
// step numbering from 1, unique fingerprints, and transitions that only
// reference adjacent existing steps.
func (r *Record) Validate() error {
	if r.Version <= 0 {
		return fmt.Errorf("missing version")
	}

	seen := make(map[string]int, len(r.Steps))
	for i, s := range r.Steps {
		if s.Seq != i+1 {
			return fmt.Errorf("step %d: sequence %d not contiguous", i, s.Seq)
		}
		if !s.Outcome.Valid() {
			return fmt.Errorf("step %d: invalid outcome %q", s.Seq, s.Outcome)
		}
		if prev, dup := seen[s.Fingerprint]; dup {
			return fmt.Errorf("steps %d and %d share fingerprint %s", prev, s.Seq, s.Fingerprint)
		}
		seen[s.Fingerprint] = s.Seq
	}

	stepSession := make(map[int]string, len(r.Steps))
	for _, s := range r.Steps {
		stepSession[s.Seq] = s.SessionID
	}
	for _, t := range r.Transitions {
		if t.ToSeq != t.FromSeq+1 {
			return fmt.Errorf("transition %d→%d not adjacent", t.FromSeq, t.ToSeq)
		}
		from, okFrom := stepSession[t.FromSeq]
		to, okTo := stepSession[t.ToSeq]
		if !okFrom || !okTo {
			return fmt.Errorf("transition %d→%d references missing step", t.FromSeq, t.ToSeq)
		}
		if from != to {
			return fmt.Errorf("transition %d→%d crosses sessions", t.FromSeq, t.ToSeq)
		}
	}

	return nil
}
