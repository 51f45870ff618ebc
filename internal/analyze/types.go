package analyze

import "fmt"

// ErrorKind distinguishes the unrecoverable analysis failures.
type ErrorKind int

const (
	// KindMalformed means the model never produced schema-valid output
	// within the retry budget.
	KindMalformed ErrorKind = iota
	// KindUnreachable means the endpoint could not be reached or timed out.
	KindUnreachable
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed output"
	case KindUnreachable:
		return "endpoint unreachable"
	default:
		return "unknown"
	}
}

// Error is an unrecoverable analysis failure. The session that triggered
// it stays eligible for a later re-analysis pass.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analysis failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// API request/response types for OpenAI-compatible chat completions.

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type respFormat struct {
	Type string `json:"type"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// analysisJSON is the structured payload the model must return.
type analysisJSON struct {
	Steps  []stepJSON `json:"steps"`
	Anchor anchorJSON `json:"anchor"`
}

type stepJSON struct {
	Intent    string   `json:"intent"`
	Action    string   `json:"action"`
	Outcome   string   `json:"outcome"`
	Artifacts []string `json:"artifacts"`
	// Trigger explains why the work moved on from the previous step.
	// Required for every step after the first, ignored on the first.
	Trigger string `json:"trigger"`
}

type anchorJSON struct {
	CurrentState string   `json:"current_state"`
	NextSteps    []string `json:"next_steps"`
	OpenConcerns []string `json:"open_concerns"`
}
