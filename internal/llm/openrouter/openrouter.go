// Package openrouter implements llm.Client against an OpenAI-style
// chat completions endpoint. OpenRouter is the default target but any
// endpoint speaking the same protocol works.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/termchat/termchat/internal/llm"
)

// DefaultEndpoint is the OpenRouter chat completions URL.
const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// Client implements llm.Client over a chat completions endpoint.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// New creates a client for the given endpoint and bearer credential.
// Endpoint defaults to OpenRouter if empty; timeout defaults to 2 minutes
// if zero or negative. One attempt per call, no retries.
func New(endpoint, apiKey string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	reqBody := map[string]any{
		"model":       req.Model,
		"messages":    req.Messages,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}

	start := time.Now()
	if err := c.doJSONRoundTrip(ctx, reqBody, &result); err != nil {
		return "", err
	}
	log.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Dur("elapsed", time.Since(start)).
		Msg("completion round trip")

	if len(result.Choices) == 0 {
		return "", llm.ErrEmptyCompletion
	}
	return result.Choices[0].Message.Content, nil
}

func (c *Client) doJSONRoundTrip(ctx context.Context, reqBody, respBody any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// classifyStatus maps a non-200 response to the llm error taxonomy.
func classifyStatus(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return llm.ErrUnauthorized
	case http.StatusTooManyRequests:
		return llm.ErrRateLimited
	case http.StatusBadRequest:
		return llm.ErrBadRequest
	}
	return &llm.APIError{Status: status, Message: errorMessage(body)}
}

// errorMessage extracts the nested error.message field when the body is
// a JSON error payload, falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return string(body)
}
