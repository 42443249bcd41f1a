package history_test

import (
	"path/filepath"
	"testing"

	"github.com/termchat/termchat/internal/history"
)

// newTestStore creates a Store backed by a temporary SQLite database.
func newTestStore(t *testing.T) *history.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := history.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// ---------------------------------------------------------------------------
// Store creation
// ---------------------------------------------------------------------------

func TestNewStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "new.db")
	store, err := history.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewStore_InvalidPath(t *testing.T) {
	if _, err := history.NewStore("/no/such/dir/test.db"); err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
}

// ---------------------------------------------------------------------------
// Conversations
// ---------------------------------------------------------------------------

func TestCreateConversation(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateConversation("test/model")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if id == "" {
		t.Fatal("CreateConversation returned empty ID")
	}

	other, err := store.CreateConversation("test/model")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if other == id {
		t.Errorf("conversation IDs collide: %q", id)
	}
}

func TestConversations_NewestFirstWithCounts(t *testing.T) {
	store := newTestStore(t)

	first, err := store.CreateConversation("model-a")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	second, err := store.CreateConversation("model-b")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.AddMessage(first, "user", "hello"); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	convs, err := store.Conversations()
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convs))
	}
	if convs[0].ID != second {
		t.Errorf("newest conversation = %q, want %q", convs[0].ID, second)
	}
	if convs[0].Messages != 0 {
		t.Errorf("empty conversation count = %d, want 0", convs[0].Messages)
	}
	if convs[1].Messages != 2 {
		t.Errorf("message count = %d, want 2", convs[1].Messages)
	}
	if convs[1].Model != "model-a" {
		t.Errorf("model = %q, want model-a", convs[1].Model)
	}
}

func TestConversations_Empty(t *testing.T) {
	store := newTestStore(t)

	convs, err := store.Conversations()
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("got %d conversations, want 0", len(convs))
	}
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func TestAddAndGetMessages(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateConversation("test/model")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	exchanges := []struct{ role, content string }{
		{"user", "hello"},
		{"assistant", "hi there"},
		{"user", "how are you?"},
		{"assistant", "fine"},
	}
	for _, e := range exchanges {
		if err := store.AddMessage(id, e.role, e.content); err != nil {
			t.Fatalf("AddMessage(%q): %v", e.content, err)
		}
	}

	msgs, err := store.Messages(id)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != len(exchanges) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(exchanges))
	}
	for i, e := range exchanges {
		if msgs[i].Role != e.role || msgs[i].Content != e.content {
			t.Errorf("messages[%d] = %s:%q, want %s:%q",
				i, msgs[i].Role, msgs[i].Content, e.role, e.content)
		}
		if msgs[i].ConversationID != id {
			t.Errorf("messages[%d].ConversationID = %q, want %q", i, msgs[i].ConversationID, id)
		}
	}
}

func TestMessages_IsolatedPerConversation(t *testing.T) {
	store := newTestStore(t)

	a, _ := store.CreateConversation("test/model")
	b, _ := store.CreateConversation("test/model")

	if err := store.AddMessage(a, "user", "in a"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := store.AddMessage(b, "user", "in b"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	msgs, err := store.Messages(a)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "in a" {
		t.Errorf("conversation a messages = %v, want just 'in a'", msgs)
	}
}

func TestMessages_UnknownConversation(t *testing.T) {
	store := newTestStore(t)

	msgs, err := store.Messages("nope")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages, want 0", len(msgs))
	}
}
