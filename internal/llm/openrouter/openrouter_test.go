package openrouter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/termchat/termchat/internal/llm"
	"github.com/termchat/termchat/internal/llm/openrouter"
)

// newTestClient returns a client pointed at a stub server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *openrouter.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return openrouter.New(srv.URL, "test-key", 5*time.Second)
}

func testRequest() llm.CompletionRequest {
	return llm.CompletionRequest{
		Model: "test/model",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "hello"},
		},
		MaxTokens:   100,
		Temperature: 0.7,
	}
}

// ---------------------------------------------------------------------------
// Success path
// ---------------------------------------------------------------------------

func TestComplete(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	})

	reply, err := client.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "hi" {
		t.Errorf("reply = %q, want %q", reply, "hi")
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", gotContentType, "application/json")
	}
	if gotBody["model"] != "test/model" {
		t.Errorf("model = %v, want test/model", gotBody["model"])
	}
	if gotBody["max_tokens"] != float64(100) {
		t.Errorf("max_tokens = %v, want 100", gotBody["max_tokens"])
	}
	if gotBody["temperature"] != 0.7 {
		t.Errorf("temperature = %v, want 0.7", gotBody["temperature"])
	}
	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("messages = %v, want 1 entry", gotBody["messages"])
	}
}

func TestComplete_FirstChoiceWins(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"first"}},{"message":{"content":"second"}}]}`))
	})

	reply, err := client.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "first" {
		t.Errorf("reply = %q, want %q", reply, "first")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), testRequest())
	if !errors.Is(err, llm.ErrEmptyCompletion) {
		t.Errorf("err = %v, want ErrEmptyCompletion", err)
	}
}

// ---------------------------------------------------------------------------
// Status code classification
// ---------------------------------------------------------------------------

func TestComplete_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, llm.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, llm.ErrRateLimited},
		{"bad request", http.StatusBadRequest, llm.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.Complete(context.Background(), testRequest())
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestComplete_OtherStatusWithErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	})

	_, err := client.Complete(context.Background(), testRequest())

	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *llm.APIError", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", apiErr.Status)
	}
	if apiErr.Message != "model overloaded" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "model overloaded")
	}
}

func TestComplete_OtherStatusRawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream down"))
	})

	_, err := client.Complete(context.Background(), testRequest())

	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *llm.APIError", err)
	}
	if apiErr.Message != "upstream down" {
		t.Errorf("Message = %q, want raw body", apiErr.Message)
	}
}

// ---------------------------------------------------------------------------
// Transport and parse failures
// ---------------------------------------------------------------------------

func TestComplete_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := openrouter.New(url, "test-key", time.Second)
	_, err := client.Complete(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected transport error, got nil")
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure classified as APIError: %v", err)
	}
}

func TestComplete_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := client.Complete(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestComplete_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, testRequest())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
