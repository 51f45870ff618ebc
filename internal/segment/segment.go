// Package segment deterministically partitions a raw terminal session log
// into ordered turns, one per user-input/tool-output exchange.
package segment

import (
	"fmt"
	"os"
	"strings"
)

// RawTurn is an ordered slice of the raw log attributed to one exchange.
// Start and End are byte offsets into the raw (uncleaned) log.
type RawTurn struct {
	Index int
	Start int
	End   int
	Text  string // cleaned text, escape sequences and bulk noise removed
}

// Markers that open a fresh block of human-authored input.
var promptMarkers = []string{"> ", "❯ "}

// Substrings identifying progress noise that carries no narrative value.
var noiseMarkers = []string{"Resolving...", "Fetching...", "Downloading..."}

const (
	maxLineLen  = 300
	keepPrefix  = 100
	keepSuffix  = 100
)

// File reads and segments a raw session log.
func File(path string) ([]RawTurn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session log: %w", err)
	}
	return Segment(data), nil
}

type rawLine struct {
	start   int // byte offset of first byte in raw log
	end     int // byte offset one past the line (excluding \n)
	cleaned string
}

// Segment splits raw log bytes into turns. Deterministic for identical
// input: no randomness, no wall clock. An empty log yields an empty
// sequence; a non-empty log with no detected boundaries yields a single
// turn spanning the entire content, and unmatched trailing output is
// folded into the final turn.
func Segment(data []byte) []RawTurn {
	if len(data) == 0 {
		return nil
	}

	lines := splitLines(data)

	// Boundary line indexes: transitions back to human-authored input.
	var boundaries []int
	for i, ln := range lines {
		if isPromptLine(ln.cleaned) {
			boundaries = append(boundaries, i)
		}
	}

	// Line groups: [0..b0), [b0..b1), ..., [bn..len). The group before the
	// first boundary holds whatever output preceded the first prompt.
	var groups [][]rawLine
	prev := 0
	for _, b := range boundaries {
		if b > prev {
			groups = append(groups, lines[prev:b])
		}
		prev = b
	}
	groups = append(groups, lines[prev:])

	turns := make([]RawTurn, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		turns = append(turns, RawTurn{
			Index: len(turns),
			Start: g[0].start,
			End:   g[len(g)-1].end,
			Text:  renderTurn(g),
		})
	}
	return turns
}

func splitLines(data []byte) []rawLine {
	var lines []rawLine
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			if i == len(data) && i == start {
				break // no trailing partial line
			}
			lines = append(lines, rawLine{
				start:   start,
				end:     i,
				cleaned: CleanLine(string(data[start:i])),
			})
			start = i + 1
		}
	}
	return lines
}

func isPromptLine(cleaned string) bool {
	trimmed := strings.TrimSpace(cleaned)
	for _, m := range promptMarkers {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	return false
}

// renderTurn joins cleaned lines, skipping progress noise and truncating
// extremely long lines (base64 blobs, minified code) that would swamp the
// analyzer without informing it.
func renderTurn(lines []rawLine) string {
	var b strings.Builder
	for _, ln := range lines {
		text := ln.cleaned
		if isNoise(text) {
			continue
		}
		if len(text) > maxLineLen {
			omitted := len(text) - keepPrefix - keepSuffix
			text = fmt.Sprintf("%s ... [%d chars truncated] ... %s",
				text[:keepPrefix], omitted, text[len(text)-keepSuffix:])
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}
	return b.String()
}

func isNoise(line string) bool {
	for _, m := range noiseMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}
