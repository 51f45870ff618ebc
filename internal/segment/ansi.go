package segment

import (
	"regexp"
	"strings"
)

// CSI sequences first (so ESC-[ consumes its parameters), then OSC with
// either BEL or ST terminators, then bare two-byte escapes.
var ansiPattern = regexp.MustCompile("\x1b" + `(?:\[[0-?]*[ -/]*[@-~]|\][^\x07\x1b]*(?:\x07|\x1b\\)?|[@-Z\\^_\[\]])`)

// control characters other than newline and carriage return
var controlPattern = regexp.MustCompile(`[\x00-\x09\x0b\x0c\x0e-\x1f\x7f]`)

// CleanLine strips terminal escape sequences and control noise from one
// line of raw log output. Carriage-return overwrites are collapsed to the
// final rendering, which is what the user actually saw.
func CleanLine(line string) string {
	line = strings.TrimSuffix(line, "\r")
	line = ansiPattern.ReplaceAllString(line, "")
	line = controlPattern.ReplaceAllString(line, "")

	// Keep only the text after the last carriage return: spinners and
	// progress bars rewrite the same line many times.
	if idx := strings.LastIndexByte(line, '\r'); idx >= 0 {
		line = line[idx+1:]
	}
	return line
}
