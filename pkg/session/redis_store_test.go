package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupMiniredis(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStoreFromClient(client, "test", 0)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestRedisStore_LoadMissingKey(t *testing.T) {
	store := setupMiniredis(t)
	ctx := context.Background()

	msgs, err := store.Load(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty history, got %d messages", len(msgs))
	}
}

func TestRedisStore_AppendAndLoad(t *testing.T) {
	store := setupMiniredis(t)
	ctx := context.Background()

	first := Message{Role: RoleUser, Content: "hello", Timestamp: time.Now().UTC().Truncate(time.Second)}
	msgs, err := store.Append(ctx, "proj-1", first)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	second := Message{Role: RoleAssistant, Content: "hi there"}
	msgs, err = store.Append(ctx, "proj-1", second)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hello" || msgs[1].Content != "hi there" {
		t.Errorf("order not preserved: %+v", msgs)
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Errorf("roles not preserved: %+v", msgs)
	}
}

func TestRedisStore_AppendOnlyOrdering(t *testing.T) {
	store := setupMiniredis(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := store.Append(ctx, "proj", Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	msgs, err := store.Load(ctx, "proj")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i, msg := range msgs {
		if msg.Content != fmt.Sprintf("m%d", i) {
			t.Fatalf("position %d holds %q", i, msg.Content)
		}
	}
}

func TestRedisStore_SaveReplaces(t *testing.T) {
	store := setupMiniredis(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, "proj", Message{Role: RoleUser, Content: "old"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := store.Save(ctx, "proj", []Message{
		{Role: RoleUser, Content: "new-1"},
		{Role: RoleAssistant, Content: "new-2"},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	msgs, err := store.Load(ctx, "proj")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "new-1" || msgs[1].Content != "new-2" {
		t.Errorf("Save did not replace log: %+v", msgs)
	}
}

func TestRedisStore_NamespaceIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	chat := NewRedisStoreFromClient(client, "chat", 0)
	ops := NewRedisStoreFromClient(client, "assistant", 0)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if _, err := chat.Append(ctx, "slug", Message{Role: RoleUser, Content: "visitor"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	msgs, err := ops.Load(ctx, "slug")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("namespaces collided: %d messages leaked", len(msgs))
	}
}

func TestRedisStore_Closed(t *testing.T) {
	store := setupMiniredis(t)
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := store.Load(ctx, "any"); err != ErrStoreClosed {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}
