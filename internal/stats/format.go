package stats

import (
	"fmt"
	"strings"
)

// Format renders a Summary as aligned terminal output.
func Format(s Summary, project string) string {
	if s.TotalSteps == 0 && s.PendingSessions == 0 && s.DegradedSessions == 0 {
		return fmt.Sprintf("ctxmap stats\n\n  No sessions mapped for %s yet. Run `ctxmap run` first.\n", project)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ctxmap stats · %s\n", project)

	b.WriteString("\nOverview\n")
	fmt.Fprintf(&b, "  %-20s %d\n", "sessions merged", s.TotalSessions)
	fmt.Fprintf(&b, "  %-20s %d\n", "steps", s.TotalSteps)
	if s.TotalSteps > 0 {
		fmt.Fprintf(&b, "  %-20s %d success / %d partial / %d failure\n",
			"outcomes", s.Successes, s.Partials, s.Failures)
	}
	fmt.Fprintf(&b, "  %-20s %d next, %d open concerns\n", "anchor", s.NextSteps, s.OpenConcerns)

	if s.PendingSessions > 0 || s.DegradedSessions > 0 || s.EmptySessions > 0 {
		b.WriteString("\nUnmapped Sessions\n")
		if s.PendingSessions > 0 {
			fmt.Fprintf(&b, "  %-20s %d (ctxmap retry)\n", "awaiting analysis", s.PendingSessions)
		}
		if s.DegradedSessions > 0 {
			fmt.Fprintf(&b, "  %-20s %d (no pty, not recorded)\n", "degraded", s.DegradedSessions)
		}
		if s.EmptySessions > 0 {
			fmt.Fprintf(&b, "  %-20s %d\n", "empty", s.EmptySessions)
		}
	}

	if len(s.Monthly) > 0 {
		b.WriteString("\nMonthly Activity\n")
		for _, m := range s.Monthly {
			fmt.Fprintf(&b, "  %-12s %3d sessions   %3d steps\n", m.Month, m.Sessions, m.Steps)
		}
	}

	if len(s.TopArtifacts) > 0 {
		b.WriteString("\nHot Files\n")
		limit := 10
		if len(s.TopArtifacts) < limit {
			limit = len(s.TopArtifacts)
		}
		for _, a := range s.TopArtifacts[:limit] {
			fmt.Fprintf(&b, "  %-48s %3d steps\n", a.Path, a.Steps)
		}
	}

	return b.String()
}
