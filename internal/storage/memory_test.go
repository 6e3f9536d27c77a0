package storage

import (
	"context"
	"testing"
)

func TestMemoryPreferenceStoreGetDefault(t *testing.T) {
	store := NewMemoryPreferenceStore()

	value, err := store.Get(context.Background(), "missing", "fallback")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "fallback" {
		t.Fatalf("expected fallback value, got %v", value)
	}
}

func TestMemoryPreferenceStorePutGet(t *testing.T) {
	store := NewMemoryPreferenceStore()
	ctx := context.Background()

	if err := store.Put(ctx, "wake-prefix", "/bot"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	value, err := store.Get(ctx, "wake-prefix", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "/bot" {
		t.Fatalf("expected /bot, got %v", value)
	}
}

func TestMemoryPreferenceStorePutStructuredValue(t *testing.T) {
	store := NewMemoryPreferenceStore()
	ctx := context.Background()

	allowed := []any{"read_file", "write_file"}
	if err := store.Put(ctx, "allowed-tools", allowed); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	value, err := store.Get(ctx, "allowed-tools", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	list, ok := value.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected 2-element slice, got %#v", value)
	}
}

func TestMemoryPreferenceStoreDelete(t *testing.T) {
	store := NewMemoryPreferenceStore()
	ctx := context.Background()

	if err := store.Put(ctx, "k", "v"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	value, err := store.Get(ctx, "k", "default")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "default" {
		t.Fatalf("expected default after delete, got %v", value)
	}
}

func TestMemoryPreferenceStoreDeleteMissingIsNotError(t *testing.T) {
	store := NewMemoryPreferenceStore()
	if err := store.Delete(context.Background(), "nonexistent"); err != nil {
		t.Fatalf("Delete() of missing key should not error, got %v", err)
	}
}
