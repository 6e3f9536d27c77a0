package sessions

import (
	"context"
	"testing"

	"github.com/astrarelay/astra/pkg/models"
)

func TestMemoryMessageStoreGetOrCreateIsIdempotent(t *testing.T) {
	store := NewMemoryMessageStore()
	ctx := context.Background()
	key := SessionKey("telegram", "private", "user-1")

	first, err := store.GetOrCreate(ctx, key, "astra", models.ChannelTelegram, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	second, err := store.GetOrCreate(ctx, key, "astra", models.ChannelTelegram, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same session id, got %s and %s", first.ID, second.ID)
	}
}

func TestMemoryMessageStoreAppendAndGetHistory(t *testing.T) {
	store := NewMemoryMessageStore()
	ctx := context.Background()
	session, _ := store.GetOrCreate(ctx, "k", "astra", models.ChannelCLI, "c")

	for _, content := range []string{"hi", "how are you"} {
		err := store.AppendMessage(ctx, session.ID, &models.Message{
			SessionID: session.ID,
			Role:      models.RoleUser,
			Content:   content,
		})
		if err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
	}

	history, err := store.GetHistory(ctx, session.ID, 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Content != "hi" || history[1].Content != "how are you" {
		t.Fatalf("unexpected history order: %+v", history)
	}
}

func TestMemoryMessageStoreDeleteClearsKeyAndHistory(t *testing.T) {
	store := NewMemoryMessageStore()
	ctx := context.Background()
	session, _ := store.GetOrCreate(ctx, "k", "astra", models.ChannelCLI, "c")
	_ = store.AppendMessage(ctx, session.ID, &models.Message{SessionID: session.ID, Role: models.RoleUser, Content: "hi"})

	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, session.ID); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.GetByKey(ctx, "k"); err != ErrSessionNotFound {
		t.Fatalf("expected key to be cleared, got %v", err)
	}
	history, _ := store.GetHistory(ctx, session.ID, 0)
	if len(history) != 0 {
		t.Fatalf("expected empty history after delete, got %d", len(history))
	}
}
