package analyze

import (
	"fmt"
	"strings"

	"github.com/calebh/contextmap/internal/evolution"
)

// validate checks the model's payload against the schema contract. The
// returned error text is quoted back to the model in a corrective retry,
// so it names the exact violation.
func validate(a analysisJSON) error {
	if len(a.Steps) == 0 {
		return fmt.Errorf(`"steps" is empty; at least one step is required`)
	}

	for i, s := range a.Steps {
		n := i + 1
		if strings.TrimSpace(s.Intent) == "" {
			return fmt.Errorf(`step %d: "intent" is missing or empty`, n)
		}
		if strings.TrimSpace(s.Action) == "" {
			return fmt.Errorf(`step %d: "action" is missing or empty`, n)
		}
		if !evolution.Outcome(s.Outcome).Valid() {
			return fmt.Errorf(`step %d: "outcome" must be one of success, failure, partial; got %q`, n, s.Outcome)
		}
		if i > 0 && strings.TrimSpace(s.Trigger) == "" {
			return fmt.Errorf(`step %d: "trigger" is missing; required for every step after the first`, n)
		}
	}

	if strings.TrimSpace(a.Anchor.CurrentState) == "" {
		return fmt.Errorf(`"anchor.current_state" is missing or empty`)
	}

	return nil
}

// toResult converts a validated payload into the canonical session result
// with session-local numbering starting at 1.
func toResult(sessionID string, a analysisJSON) *evolution.SessionResult {
	sr := &evolution.SessionResult{
		SessionID: sessionID,
		Anchor: evolution.Anchor{
			CurrentState: strings.TrimSpace(a.Anchor.CurrentState),
			NextSteps:    trimAll(a.Anchor.NextSteps),
			OpenConcerns: trimAll(a.Anchor.OpenConcerns),
		},
	}

	for i, s := range a.Steps {
		seq := i + 1
		intent := strings.TrimSpace(s.Intent)
		action := strings.TrimSpace(s.Action)
		outcome := evolution.Outcome(s.Outcome)

		sr.Steps = append(sr.Steps, evolution.Step{
			Seq:         seq,
			SessionID:   sessionID,
			Intent:      intent,
			Action:      action,
			Outcome:     outcome,
			Artifacts:   trimAll(s.Artifacts),
			Fingerprint: evolution.Fingerprint(intent, action, outcome),
		})

		if i > 0 {
			sr.Transitions = append(sr.Transitions, evolution.Transition{
				FromSeq: seq - 1,
				ToSeq:   seq,
				Trigger: strings.TrimSpace(s.Trigger),
			})
		}
	}

	return sr
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
