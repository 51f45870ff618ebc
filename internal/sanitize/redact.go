// Package sanitize scrubs credentials from transcript text before it is
// sent to the analysis endpoint. Raw logs on disk are left untouched.
package sanitize

import "regexp"

const placeholder = "[redacted]"

var secretPatterns = []*regexp.Regexp{
	// Provider API keys (OpenAI, Anthropic, GitHub, Slack).
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}\b`),
	regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{16,}\b`),
	regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`),
	regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`),
	// AWS access key IDs.
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	// Bearer tokens in pasted headers or curl output.
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]{16,}=*`),
	// Env assignments of anything that looks like a credential variable.
	regexp.MustCompile(`(?i)\b(\w*(?:api_?key|token|secret|password|passwd)\w*\s*[=:]\s*)\S+`),
}

// Redact replaces credential-shaped substrings with a placeholder.
func Redact(text string) string {
	out := text
	for i, p := range secretPatterns {
		if i == len(secretPatterns)-1 {
			// Keep the variable name, drop only the value.
			out = p.ReplaceAllString(out, "${1}"+placeholder)
			continue
		}
		out = p.ReplaceAllString(out, placeholder)
	}
	return out
}
