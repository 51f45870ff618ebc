package analyze

import (
	"fmt"
	"strings"

	"github.com/calebh/contextmap/internal/segment"
)

// Transcript budget sent per request. The tail is what matters most for
// reconstructing the latest work, so truncation drops the oldest turns.
const maxTranscriptChars = 80000

const systemPrompt = `You analyze terminal coding session transcripts and reconstruct the chain of intent linking prompt to prompt.

Respond with valid JSON only. No markdown, no explanation. Schema:
{
  "steps": [
    {
      "intent": "What the user wanted at this point. Short text.",
      "action": "What was concretely done. Short text.",
      "outcome": "success | failure | partial",
      "artifacts": ["relative/file/paths", ...],
      "trigger": "Why the work moved on from the PREVIOUS step. Empty for the first step."
    }
  ],
  "anchor": {
    "current_state": "1-3 sentences. Where things stand right now.",
    "next_steps": ["Actionable next step", ...],
    "open_concerns": ["Unresolved worry or risk", ...]
  }
}

Rules:
- One step per meaningful prompt/iteration. Group trivial follow-ups. Target 3-20 steps.
- outcome: exactly one of success, failure, partial.
- artifacts: files created or modified in that step, at most 10. Omit what you cannot see in the transcript.
- trigger: the connective tissue between consecutive steps. Required for every step after the first.
- Only mention files, commands, and outcomes present in the transcript. Never invent.`

func buildMessages(turns []segment.RawTurn) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(turns)},
	}
}

func buildUserPrompt(turns []segment.RawTurn) string {
	var b strings.Builder
	b.WriteString("=== SESSION TRANSCRIPT ===\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "\n--- turn %d ---\n", t.Index+1)
		b.WriteString(t.Text)
		b.WriteByte('\n')
	}
	return tail(b.String(), maxTranscriptChars)
}

// buildCorrective quotes the schema violation back to the model so the
// retry can repair it.
func buildCorrective(violation string) chatMessage {
	return chatMessage{
		Role: "user",
		Content: fmt.Sprintf(
			"Your previous response violated the required schema: %s\n"+
				"Respond again with the complete corrected JSON document. JSON only.",
			violation),
	}
}

func tail(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := text[len(text)-maxChars:]
	if idx := strings.IndexByte(cut, '\n'); idx >= 0 && idx < maxChars/2 {
		cut = cut[idx+1:]
	}
	return "[...earlier transcript truncated]\n" + cut
}
