package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"papla-server-go/internal/domain/session/model"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		TTL: time.Second,
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	info := model.Info{
		ID:       "redis-session",
		APIKey:   "papla-key",
		Provider: "papla",
		ClipDir:  "/data/sessions/redis-session/clips",
	}
	if err := store.Save(ctx, info); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := store.Get(ctx, info.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != info.ID || got.APIKey != info.APIKey {
		t.Fatalf("unexpected session: %+v", got)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 || list[0] != info.ID {
		t.Fatalf("unexpected list: %v", list)
	}

	if err := store.Remove(ctx, info.ID); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, err := store.Get(ctx, info.ID); err == nil {
		t.Fatalf("expected missing session after removal")
	}
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		TTL: time.Minute,
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	if err := store.Save(ctx, model.Info{ID: "ttl-session"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "ttl-session"); err == nil {
		t.Fatalf("expected session to expire with redis TTL")
	}
}
