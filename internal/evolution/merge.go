package evolution

import "time"

// Merge combines a session's analyzed output with an existing record,
// returning a new record. existing may be nil (first session). Merge is
// idempotent: re-merging the same session result is a no-op because steps
// whose content fingerprint already exists are dropped.
//
// Surviving steps are appended after the last existing step and renumbered
// contiguously. A session's transitions are kept only where both endpoints
// survived dedup and remain adjacent, so they never cross-link into a
// previous session. The anchor is replaced wholesale, latest wins.
func Merge(existing *Record, sr SessionResult, now time.Time) *Record {
	merged := &Record{Version: RecordVersion}
	known := make(map[string]bool)

	if existing != nil {
		merged.Sessions = append(merged.Sessions, existing.Sessions...)
		merged.Steps = append(merged.Steps, existing.Steps...)
		merged.Transitions = append(merged.Transitions, existing.Transitions...)
		for _, s := range existing.Steps {
			known[s.Fingerprint] = true
		}
	}

	next := len(merged.Steps) + 1
	first := next

	// Session-local seq → global seq for surviving steps.
	renumber := make(map[int]int, len(sr.Steps))

	for _, s := range sr.Steps {
		fp := s.Fingerprint
		if fp == "" {
			fp = Fingerprint(s.Intent, s.Action, s.Outcome)
		}
		if known[fp] {
			continue
		}
		known[fp] = true

		renumber[s.Seq] = next
		merged.Steps = append(merged.Steps, Step{
			Seq:         next,
			SessionID:   sr.SessionID,
			Intent:      s.Intent,
			Action:      s.Action,
			Outcome:     s.Outcome,
			Artifacts:   s.Artifacts,
			Fingerprint: fp,
		})
		next++
	}

	for _, t := range sr.Transitions {
		from, okFrom := renumber[t.FromSeq]
		to, okTo := renumber[t.ToSeq]
		if !okFrom || !okTo || to != from+1 {
			continue // endpoint deduped away, adjacency broken
		}
		merged.Transitions = append(merged.Transitions, Transition{
			FromSeq: from,
			ToSeq:   to,
			Trigger: t.Trigger,
		})
	}

	if next > first {
		merged.Sessions = append(merged.Sessions, SessionSpan{
			SessionID: sr.SessionID,
			FirstSeq:  first,
			LastSeq:   next - 1,
			MergedAt:  now,
		})
	}

	merged.Anchor = sr.Anchor
	merged.Anchor.UpdatedAt = now
	merged.UpdatedAt = now

	return merged
}
