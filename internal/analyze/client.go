// Package analyze sends a segmented transcript to the configured LLM
// endpoint and turns the response into the canonical step/transition/anchor
// model, validating and repairing it along the way.
package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/calebh/contextmap/internal/config"
	"github.com/calebh/contextmap/internal/evolution"
	"github.com/calebh/contextmap/internal/segment"
)

// Run analyzes a session's turns. It issues one request, validates the
// structured response, and on a schema violation retries up to
// cfg.MaxRetries times with a corrective follow-up quoting the violation.
// Failures are typed *Error: KindUnreachable for transport problems,
// KindMalformed when the retry budget is exhausted.
//
// Run never mutates persisted state; the result is handed to the merge
// engine by the caller.
func Run(ctx context.Context, cfg config.LLMConfig, sessionID string, turns []segment.RawTurn) (*evolution.SessionResult, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("no turns to analyze")
	}

	messages := buildMessages(turns)

	var lastViolation error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		content, err := complete(ctx, cfg, messages)
		if err != nil {
			return nil, &Error{Kind: KindUnreachable, Err: err}
		}

		payload, err := parsePayload(content)
		if err == nil {
			err = validate(payload)
		}
		if err == nil {
			return toResult(sessionID, payload), nil
		}

		lastViolation = err
		messages = append(messages,
			chatMessage{Role: "assistant", Content: content},
			buildCorrective(err.Error()),
		)
	}

	return nil, &Error{Kind: KindMalformed, Err: lastViolation}
}

// complete performs one chat-completions round trip and returns the
// assistant message content.
func complete(ctx context.Context, cfg config.LLMConfig, messages []chatMessage) (string, error) {
	reqBody := chatRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: 0.3,
		ResponseFormat: &respFormat{
			Type: "json_object",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}

// parsePayload extracts the analysis JSON from the assistant content,
// tolerating markdown fences some models wrap around it.
func parsePayload(content string) (analysisJSON, error) {
	var a analysisJSON
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	if err := json.Unmarshal([]byte(trimmed), &a); err != nil {
		return a, fmt.Errorf("response is not valid JSON: %v", err)
	}
	return a, nil
}
