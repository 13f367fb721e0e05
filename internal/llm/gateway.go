// Package llm turns a decomposition prompt into a validated list of subtasks
// using a pluggable chat-completion backend.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const systemPrompt = "Return all responses as valid, well-formed JSON. " +
	"When asked for a list, return a JSON array. " +
	"Do not wrap the JSON in code blocks and do not add any other text."

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z]*\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// Subtask is one proposed child task.
type Subtask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Backend sends a single chat-style prompt to a provider and returns the
// completion text.
type Backend interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ErrEmptyCompletion is returned when the provider answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// UpstreamError reports that the provider could not be reached or failed.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a completion that is not a JSON array of
// {title, description} objects.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed LLM response: " + e.Reason
}

func malformed(format string, args ...interface{}) error {
	return &MalformedResponseError{Reason: fmt.Sprintf(format, args...)}
}

// Gateway is stateless; it is safe for concurrent use if its backend is.
type Gateway struct {
	backend Backend
}

func NewGateway(backend Backend) *Gateway {
	return &Gateway{backend: backend}
}

// Decompose sends prompt to the backend once and validates the answer.
func (g *Gateway) Decompose(ctx context.Context, prompt string) ([]Subtask, error) {
	text, err := g.backend.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, &UpstreamError{Provider: g.backend.Name(), Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &UpstreamError{Provider: g.backend.Name(), Err: ErrEmptyCompletion}
	}
	return ParseSubtasks(text)
}

// ParseSubtasks validates a completion into subtasks. Every element must
// carry non-empty title and description strings.
func ParseSubtasks(text string) ([]Subtask, error) {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return nil, malformed("empty response")
	}
	if !strings.HasPrefix(cleaned, "[") {
		return nil, malformed("expected a JSON array")
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, malformed("not a JSON array of objects: %v", err)
	}

	subtasks := make([]Subtask, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, malformed("item %d is not an object", i)
		}
		title, err := requiredString(item, "title")
		if err != nil {
			return nil, malformed("item %d: %v", i, err)
		}
		description, err := requiredString(item, "description")
		if err != nil {
			return nil, malformed("item %d: %v", i, err)
		}
		subtasks = append(subtasks, Subtask{Title: title, Description: description})
	}

	return subtasks, nil
}

// StripCodeFence removes a surrounding markdown code fence such as ```json ... ```.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func requiredString(item map[string]json.RawMessage, field string) (string, error) {
	raw, ok := item[field]
	if !ok {
		return "", fmt.Errorf("missing %s", field)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%s must be a string", field)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is empty", field)
	}
	return value, nil
}
