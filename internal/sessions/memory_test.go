package sessions

import (
	"context"
	"testing"

	"github.com/astrarelay/astra/pkg/models"
)

func TestMemoryStoreConversationLifecycle(t *testing.T) {
	store := NewMemoryStore()
	sessionID := SessionKey("api", "private", "user")

	conv, err := store.NewConversation(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	if conv.ID == "" {
		t.Fatalf("expected conversation id to be assigned")
	}

	loaded, err := store.GetConversation(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if loaded.UserID != sessionID {
		t.Fatalf("expected user id %q, got %q", sessionID, loaded.UserID)
	}

	if err := store.UpdateConversationTitle(context.Background(), conv.ID, "updated"); err != nil {
		t.Fatalf("UpdateConversationTitle() error = %v", err)
	}

	updated, err := store.GetConversation(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if updated.Title != "updated" {
		t.Fatalf("expected title to update")
	}

	if err := store.DeleteConversation(context.Background(), sessionID, conv.ID); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if _, err := store.GetConversation(context.Background(), conv.ID); err != ErrConversationNotFound {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestMemoryStoreCurrentConversationAutoCreates(t *testing.T) {
	store := NewMemoryStore()
	sessionID := SessionKey("api", "private", "user")

	id, err := store.CurrentConversationID(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("CurrentConversationID() error = %v", err)
	}
	if id == "" {
		t.Fatalf("expected a conversation id to be created")
	}

	again, err := store.CurrentConversationID(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("CurrentConversationID() error = %v", err)
	}
	if again != id {
		t.Fatalf("expected current conversation to be stable, got %q then %q", id, again)
	}
}

func TestMemoryStoreAppendAndGetHistory(t *testing.T) {
	store := NewMemoryStore()
	sessionID := SessionKey("api", "private", "user")

	conv, err := store.NewConversation(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}

	entry := models.HistoryEntry{Role: models.RoleUser, Content: "hello"}
	if err := store.AppendMessage(context.Background(), conv.ID, entry); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	history, err := store.GetHistory(context.Background(), conv.ID, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(history))
	}
	if history[0].Content != "hello" {
		t.Fatalf("expected content %q, got %q", "hello", history[0].Content)
	}
}

func TestMemoryStoreSwitchConversation(t *testing.T) {
	store := NewMemoryStore()
	sessionID := SessionKey("api", "private", "user")

	first, err := store.NewConversation(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	second, err := store.NewConversation(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}

	if err := store.SwitchConversation(context.Background(), sessionID, first.ID); err != nil {
		t.Fatalf("SwitchConversation() error = %v", err)
	}

	current, err := store.CurrentConversationID(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("CurrentConversationID() error = %v", err)
	}
	if current != first.ID {
		t.Fatalf("expected current conversation %q, got %q", first.ID, current)
	}
	_ = second
}
