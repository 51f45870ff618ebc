package segment

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSegment_EmptyLog(t *testing.T) {
	turns := Segment(nil)
	if len(turns) != 0 {
		t.Errorf("expected empty sequence for empty log, got %d turns", len(turns))
	}
	turns = Segment([]byte{})
	if len(turns) != 0 {
		t.Errorf("expected empty sequence for zero-byte log, got %d turns", len(turns))
	}
}

func TestSegment_NoBoundariesSingleTurn(t *testing.T) {
	data := []byte("tool output line one\ntool output line two\n")
	turns := Segment(data)

	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].Start != 0 {
		t.Errorf("Start = %d, want 0", turns[0].Start)
	}
	if !strings.Contains(turns[0].Text, "line one") || !strings.Contains(turns[0].Text, "line two") {
		t.Errorf("turn text missing content: %q", turns[0].Text)
	}
}

func TestSegment_PromptMarkersStartTurns(t *testing.T) {
	data := []byte("welcome banner\n> fix the parser\nworking on it\ndone\n> now add tests\nok\n")
	turns := Segment(data)

	if len(turns) != 3 {
		t.Fatalf("expected 3 turns (banner + 2 prompts), got %d: %+v", len(turns), turns)
	}
	if !strings.Contains(turns[0].Text, "welcome banner") {
		t.Errorf("turn 0 = %q", turns[0].Text)
	}
	if !strings.HasPrefix(strings.TrimSpace(turns[1].Text), "> fix the parser") {
		t.Errorf("turn 1 = %q", turns[1].Text)
	}
	if !strings.Contains(turns[1].Text, "done") {
		t.Errorf("turn 1 should hold its tool output: %q", turns[1].Text)
	}
	if !strings.Contains(turns[2].Text, "now add tests") {
		t.Errorf("turn 2 = %q", turns[2].Text)
	}
}

func TestSegment_UnicodePromptMarker(t *testing.T) {
	data := []byte("❯ run the tests\nall green\n")
	turns := Segment(data)
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if !strings.Contains(turns[0].Text, "run the tests") {
		t.Errorf("turn text = %q", turns[0].Text)
	}
}

func TestSegment_TrailingOutputFoldedIntoFinalTurn(t *testing.T) {
	// Killed-recorder shape: log ends mid-output with no trailing newline.
	data := []byte("> do the thing\npartial outp")
	turns := Segment(data)

	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if !strings.Contains(turns[0].Text, "partial outp") {
		t.Errorf("trailing output lost: %q", turns[0].Text)
	}
	if turns[0].End != len(data) {
		t.Errorf("End = %d, want %d", turns[0].End, len(data))
	}
}

func TestSegment_Deterministic(t *testing.T) {
	data := []byte("banner\n> one\nout\n> two\nmore out\x1b[31m red \x1b[0m\n")

	a := Segment(data)
	b := Segment(data)

	if !reflect.DeepEqual(a, b) {
		t.Errorf("segmentation not deterministic:\na: %+v\nb: %+v", a, b)
	}
}

func TestSegment_IndexesAndOffsetsOrdered(t *testing.T) {
	data := []byte("banner\n> one\nout\n> two\nend\n")
	turns := Segment(data)

	for i, tn := range turns {
		if tn.Index != i {
			t.Errorf("turn %d has Index %d", i, tn.Index)
		}
		if tn.Start >= tn.End {
			t.Errorf("turn %d offsets inverted: [%d,%d)", i, tn.Start, tn.End)
		}
		if i > 0 && tn.Start < turns[i-1].End {
			t.Errorf("turn %d overlaps previous: %d < %d", i, tn.Start, turns[i-1].End)
		}
	}
}

func TestSegment_StripsEscapes(t *testing.T) {
	data := []byte("\x1b[2J\x1b[1;32m> \x1b[0mfix it\n\x1b]0;window title\x07output\n")
	turns := Segment(data)

	joined := ""
	for _, tn := range turns {
		joined += tn.Text + "\n"
	}
	if strings.Contains(joined, "\x1b") {
		t.Errorf("escape sequences survived cleaning: %q", joined)
	}
	if strings.Contains(joined, "window title") {
		t.Errorf("OSC payload survived cleaning: %q", joined)
	}
	if !strings.Contains(joined, "fix it") {
		t.Errorf("text content lost: %q", joined)
	}
}

func TestSegment_SkipsProgressNoise(t *testing.T) {
	data := []byte("> install deps\nResolving... 50%\nFetching... pkg\nDownloading... blob\ninstalled ok\n")
	turns := Segment(data)

	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if strings.Contains(turns[0].Text, "Resolving") || strings.Contains(turns[0].Text, "Fetching") {
		t.Errorf("progress noise survived: %q", turns[0].Text)
	}
	if !strings.Contains(turns[0].Text, "installed ok") {
		t.Errorf("real output lost: %q", turns[0].Text)
	}
}

func TestSegment_TruncatesLongLines(t *testing.T) {
	long := strings.Repeat("x", 1000)
	data := []byte("> paste blob\n" + long + "\n")
	turns := Segment(data)

	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if !strings.Contains(turns[0].Text, "chars truncated") {
		t.Errorf("long line not truncated")
	}
	for _, line := range strings.Split(turns[0].Text, "\n") {
		if len(line) > maxLineLen {
			t.Errorf("line of %d chars survived truncation", len(line))
		}
	}
}

func TestCleanLine_CarriageReturnOverwrite(t *testing.T) {
	// Spinner rewriting the same line; only the final render matters.
	got := CleanLine("spinning |\rspinning /\rspinning -\rdone")
	if got != "done" {
		t.Errorf("CleanLine = %q, want %q", got, "done")
	}
}

func TestCleanLine_ControlCharacters(t *testing.T) {
	got := CleanLine("a\x08b\x00c\x07d")
	if got != "abcd" {
		t.Errorf("CleanLine = %q, want %q", got, "abcd")
	}
}

func TestFile_ReadsAndSegments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	if err := os.WriteFile(path, []byte("> hello\nworld\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	turns, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if len(turns) != 1 {
		t.Errorf("expected 1 turn, got %d", len(turns))
	}
}

func TestFile_Missing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "nope.log")); err == nil {
		t.Error("expected error for missing log")
	}
}
