// Package chat holds the conversation session: the in-memory transcript,
// the completion settings, and the one submit-and-wait exchange per turn
// that the interactive loop drives.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/termchat/termchat/internal/llm"
)

// apology is returned when the provider answers successfully but with
// no completion choices.
const apology = "I'm sorry, I couldn't generate a response."

// Archive persists completed exchanges. A session works without one;
// archive errors are logged and never fail a turn.
type Archive interface {
	CreateConversation(model string) (string, error)
	AddMessage(conversationID, role, content string) error
}

// Config holds the completion settings for a session.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64

	// MaxHistory bounds how many transcript messages are sent per
	// request. 0 sends the full transcript.
	MaxHistory int

	// Credential is the API key, held only so Describe can show a
	// masked tail. It is never sent or logged by the session.
	Credential string
}

// Snapshot is a read-only view of the session for display.
type Snapshot struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Messages    int

	// Credential is the masked API key; the full value never leaves
	// the config.
	Credential string
}

// Session owns the transcript. It is not safe for concurrent use; the
// interactive loop is its only caller.
type Session struct {
	client llm.Client
	cfg    Config

	transcript []llm.Message

	archive        Archive
	conversationID string
}

// New creates a session around the given completion client.
func New(client llm.Client, cfg Config) *Session {
	return &Session{client: client, cfg: cfg}
}

// AttachArchive enables persistence of completed exchanges. A new
// archived conversation is created lazily on the first exchange.
func (s *Session) AttachArchive(a Archive) {
	s.archive = a
}

// Submit appends text as a user message, sends the transcript to the
// provider, and appends the assistant reply on success. Every failure
// is mapped to a human-readable string; the caller never sees an error.
// On failure the user message stays in the transcript and no assistant
// message is appended.
func (s *Session) Submit(ctx context.Context, text string) string {
	s.transcript = append(s.transcript, llm.Message{Role: llm.RoleUser, Content: text})

	reply, err := s.client.Complete(ctx, llm.CompletionRequest{
		Model:       s.cfg.Model,
		Messages:    s.window(),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return displayError(err)
	}

	s.transcript = append(s.transcript, llm.Message{Role: llm.RoleAssistant, Content: reply})
	s.persist(text, reply)
	return reply
}

// Reset clears the transcript. The next exchange starts a new archived
// conversation.
func (s *Session) Reset() {
	s.transcript = nil
	s.conversationID = ""
}

// SetModel replaces the model identifier. Validation against the
// allow-list is the caller's job.
func (s *Session) SetModel(name string) {
	s.cfg.Model = name
}

// Describe returns a read-only snapshot of the current configuration
// and transcript length.
func (s *Session) Describe() Snapshot {
	return Snapshot{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Messages:    len(s.transcript),
		Credential:  maskSecret(s.cfg.Credential),
	}
}

// History returns a copy of the transcript.
func (s *Session) History() []llm.Message {
	return append([]llm.Message(nil), s.transcript...)
}

// Load replaces the transcript with an archived conversation. Further
// exchanges continue in a fresh archived conversation.
func (s *Session) Load(msgs []llm.Message) {
	s.transcript = append([]llm.Message(nil), msgs...)
	s.conversationID = ""
}

// window returns the transcript slice to send, honouring MaxHistory.
func (s *Session) window() []llm.Message {
	if s.cfg.MaxHistory <= 0 || len(s.transcript) <= s.cfg.MaxHistory {
		return s.transcript
	}
	return s.transcript[len(s.transcript)-s.cfg.MaxHistory:]
}

// persist writes a completed exchange to the archive, if any.
func (s *Session) persist(userText, reply string) {
	if s.archive == nil {
		return
	}
	if s.conversationID == "" {
		id, err := s.archive.CreateConversation(s.cfg.Model)
		if err != nil {
			log.Warn().Err(err).Msg("archive: creating conversation")
			return
		}
		s.conversationID = id
	}
	if err := s.archive.AddMessage(s.conversationID, llm.RoleUser, userText); err != nil {
		log.Warn().Err(err).Msg("archive: saving user message")
		return
	}
	if err := s.archive.AddMessage(s.conversationID, llm.RoleAssistant, reply); err != nil {
		log.Warn().Err(err).Msg("archive: saving assistant message")
	}
}

// maskSecret masks a secret string, showing only the first 4 and last 4
// characters.
func maskSecret(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// displayError maps the llm error taxonomy to the strings shown in the
// terminal.
func displayError(err error) string {
	switch {
	case errors.Is(err, llm.ErrUnauthorized):
		return "Authentication failed. Please check your API key."
	case errors.Is(err, llm.ErrRateLimited):
		return "Rate limit exceeded. Please wait a moment and try again."
	case errors.Is(err, llm.ErrBadRequest):
		return "Bad request. Please check your message format."
	case errors.Is(err, llm.ErrEmptyCompletion):
		return apology
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return "Error: " + err.Error()
}
