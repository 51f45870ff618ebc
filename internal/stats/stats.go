// Package stats computes aggregate metrics over a project's evolution
// record and session registry for terminal display.
package stats

import (
	"sort"

	"github.com/calebh/contextmap/internal/evolution"
	"github.com/calebh/contextmap/internal/registry"
)

// Summary holds aggregate metrics for one project.
type Summary struct {
	TotalSteps    int
	TotalSessions int

	Successes int
	Failures  int
	Partials  int

	PendingSessions  int
	DegradedSessions int
	EmptySessions    int

	OpenConcerns int
	NextSteps    int

	TopArtifacts []ArtifactStats
	Monthly      []MonthStats
}

// ArtifactStats holds per-artifact step counts.
type ArtifactStats struct {
	Path  string
	Steps int
}

// MonthStats holds per-month merge activity.
type MonthStats struct {
	Month    string // YYYY-MM
	Sessions int
	Steps    int
}

// Compute builds a Summary from the record and registry entries. Either
// input may be nil or empty; a fresh project yields a zero Summary.
func Compute(rec *evolution.Record, entries []registry.Entry) Summary {
	var s Summary

	if rec != nil {
		s.TotalSteps = len(rec.Steps)
		s.TotalSessions = len(rec.Sessions)
		s.OpenConcerns = len(rec.Anchor.OpenConcerns)
		s.NextSteps = len(rec.Anchor.NextSteps)

		for _, step := range rec.Steps {
			switch step.Outcome {
			case evolution.OutcomeSuccess:
				s.Successes++
			case evolution.OutcomeFailure:
				s.Failures++
			case evolution.OutcomePartial:
				s.Partials++
			}
		}

		artifactMap := make(map[string]int)
		for _, step := range rec.Steps {
			for _, a := range step.Artifacts {
				artifactMap[a]++
			}
		}
		for path, count := range artifactMap {
			if count >= 2 {
				s.TopArtifacts = append(s.TopArtifacts, ArtifactStats{Path: path, Steps: count})
			}
		}
		sort.Slice(s.TopArtifacts, func(i, j int) bool {
			if s.TopArtifacts[i].Steps != s.TopArtifacts[j].Steps {
				return s.TopArtifacts[i].Steps > s.TopArtifacts[j].Steps
			}
			return s.TopArtifacts[i].Path < s.TopArtifacts[j].Path
		})

		monthMap := make(map[string]*MonthStats)
		for _, span := range rec.Sessions {
			month := span.MergedAt.Format("2006-01")
			mm, ok := monthMap[month]
			if !ok {
				mm = &MonthStats{Month: month}
				monthMap[month] = mm
			}
			mm.Sessions++
			mm.Steps += span.LastSeq - span.FirstSeq + 1
		}
		for _, mm := range monthMap {
			s.Monthly = append(s.Monthly, *mm)
		}
		sort.Slice(s.Monthly, func(i, j int) bool {
			return s.Monthly[i].Month > s.Monthly[j].Month
		})
		if len(s.Monthly) > 6 {
			s.Monthly = s.Monthly[:6]
		}
	}

	for _, e := range entries {
		switch e.Status {
		case registry.StatusPending, registry.StatusRecorded:
			s.PendingSessions++
		case registry.StatusDegraded:
			s.DegradedSessions++
		case registry.StatusEmpty:
			s.EmptySessions++
		}
	}

	return s
}
