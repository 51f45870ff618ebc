package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calebh/contextmap/internal/evolution"
)

func testRecord() *evolution.Record {
	merged := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &evolution.Record{
		Version:   evolution.RecordVersion,
		UpdatedAt: merged,
		Steps: []evolution.Step{
			{Seq: 1, SessionID: "s1", Intent: "Fix bug", Action: "Modified parser",
				Outcome: evolution.OutcomeSuccess, Artifacts: []string{"parser.py"},
				Fingerprint: evolution.Fingerprint("Fix bug", "Modified parser", evolution.OutcomeSuccess)},
			{Seq: 2, SessionID: "s1", Intent: "Add test", Action: "Wrote parser_test",
				Outcome:     evolution.OutcomePartial,
				Fingerprint: evolution.Fingerprint("Add test", "Wrote parser_test", evolution.OutcomePartial)},
		},
		Transitions: []evolution.Transition{
			{FromSeq: 1, ToSeq: 2, Trigger: "Fix needed regression coverage"},
		},
		Anchor: evolution.Anchor{
			CurrentState: "Parser fixed & tests in progress",
			NextSteps:    []string{"Finish the test"},
			OpenConcerns: []string{"Edge cases untested"},
		},
		Sessions: []evolution.SessionSpan{
			{SessionID: "s1", FirstSeq: 1, LastSeq: 2, MergedAt: merged},
		},
	}
}

func TestRender(t *testing.T) {
	html, err := Render("myproject", testRecord())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(html)

	for _, want := range []string{
		"myproject",
		"Fix bug",
		"Modified parser",
		"parser.py",
		"Fix needed regression coverage",
		"Finish the test",
		"Edge cases untested",
		`class="badge success"`,
		`class="badge partial"`,
		"Session s1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestRenderEscapesContent(t *testing.T) {
	rec := testRecord()
	rec.Steps[0].Intent = `<script>alert("x")</script>`

	html, err := Render("proj", rec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(html)
	if strings.Contains(out, `<script>alert`) {
		t.Error("step content not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("expected escaped script tag")
	}
	// & in the anchor text must be escaped too.
	if !strings.Contains(out, "Parser fixed &amp; tests in progress") {
		t.Error("anchor text not escaped")
	}
}

func TestRenderEmptyRecord(t *testing.T) {
	rec := &evolution.Record{Version: evolution.RecordVersion, UpdatedAt: time.Now()}

	html, err := Render("proj", rec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(html), "No sessions analyzed yet.") {
		t.Error("empty record should render the placeholder")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journey.html")

	if err := WriteFile(path, "proj", testRecord()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "Fix bug") {
		t.Error("written report missing content")
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only journey.html, found %d entries", len(entries))
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journey.html")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := WriteFile(path, "proj", testRecord()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "stale") {
		t.Error("old report content survived")
	}
}
