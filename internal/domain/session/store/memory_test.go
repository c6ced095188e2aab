package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"papla-server-go/internal/domain/session/model"
)

func TestMemoryStoreBasicLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{
		TTL:    time.Second,
		Memory: &MemoryConfig{GCInterval: 10 * time.Millisecond},
	})
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	info := model.Info{
		ID:       "session-basic",
		APIKey:   "papla-key",
		Provider: "papla",
		ClipDir:  "/data/sessions/session-basic/clips",
		Metadata: map[string]any{"client": "web"},
	}

	if err := store.Save(ctx, info); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	stored, err := store.Get(ctx, info.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.ID != info.ID || stored.APIKey != info.APIKey {
		t.Fatalf("unexpected session info: %+v", stored)
	}
	if stored.ExpiresAt == nil {
		t.Fatalf("expected expiry to be stamped on save")
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != info.ID {
		t.Fatalf("expected list to include session: %v", ids)
	}

	if err := store.Remove(ctx, info.ID); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := store.Get(ctx, info.ID); err == nil {
		t.Fatalf("expected missing session after removal")
	}
}

func TestMemoryStoreRejectsEmptyID(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{})
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	err := store.Save(ctx, model.Info{})
	if err == nil || !strings.Contains(err.Error(), "session id required") {
		t.Fatalf("expected id validation error, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{
		TTL:    10 * time.Millisecond,
		Memory: &MemoryConfig{GCInterval: time.Hour},
	})
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	if err := store.Save(ctx, model.Info{ID: "short-lived"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, err := store.Get(ctx, "short-lived"); err == nil {
		t.Fatalf("expected expired session error")
	}

	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired returned error: %v", err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats["total"].(int) != 0 {
		t.Fatalf("expected cleanup to drop expired session, stats: %v", stats)
	}
}
