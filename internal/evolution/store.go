package evolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Store persists the evolution record for one project. All writes go
// through an exclusive advisory lock scoped to the read-modify-write
// cycle, so two sessions ending concurrently cannot interleave.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore creates a store for the record at path. The lock file lives
// next to the record.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the record location.
func (s *Store) Path() string { return s.path }

// MergeSession runs one locked read-merge-write cycle and returns the
// updated record.
func (s *Store) MergeSession(ctx context.Context, sr SessionResult, now time.Time) (*Record, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire record lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("record lock unavailable")
	}
	defer s.lock.Unlock()

	existing, err := s.Load()
	if err != nil {
		return nil, err
	}

	merged := Merge(existing, sr, now)
	if err := s.Save(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Load reads the record from disk. An absent record returns (nil, nil).
// An unreadable or invariant-violating record is quarantined (renamed
// aside) and treated as absent rather than propagating a crash; only the
// quarantine rename itself can fail the load.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read record: %w", err)
	}

	rec, err := Decode(data)
	if err != nil {
		var ev errVersion
		if errors.As(err, &ev) {
			// Written by a newer build; not corrupt, leave it alone.
			return nil, err
		}
		log.Printf("warning: corrupt evolution record: %v", err)
		if qerr := s.quarantine(); qerr != nil {
			return nil, qerr
		}
		return nil, nil
	}
	return rec, nil
}

// Decode parses and validates a serialized record.
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if rec.Version > RecordVersion {
		return nil, errVersion(rec.Version)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return &rec, nil
}

type errVersion int

func (e errVersion) Error() string {
	return fmt.Sprintf("record version %d newer than supported %d", int(e), RecordVersion)
}

func (s *Store) quarantine() error {
	aside := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, aside); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("quarantine record: %w", err)
	}
	log.Printf("warning: quarantined unreadable record to %s", aside)
	return nil
}

// Save writes the record atomically: temp file in the same directory,
// fsync, then rename. A crash mid-write leaves the prior record intact.
func (s *Store) Save(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".evolution-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp record: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}
