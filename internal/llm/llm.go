// Package llm defines the chat message model, the completion client
// interface, and the error taxonomy shared by provider implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry in a conversation transcript.
// Immutable once created.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest carries everything a provider needs for one exchange.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Client is a minimal interface for making LLM completion calls.
// Implementations provide the actual HTTP transport to a specific provider.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Sentinel errors for the well-known HTTP failure classes.
var (
	ErrUnauthorized = errors.New("authentication failed")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrBadRequest   = errors.New("bad request")

	// ErrEmptyCompletion means the provider answered 200 with no choices.
	ErrEmptyCompletion = errors.New("no choices in response")
)

// APIError is any other non-200 response. Message prefers the provider's
// nested error.message field and falls back to the raw response body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}
