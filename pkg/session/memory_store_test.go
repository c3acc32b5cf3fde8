package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLoadMissingKey(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	msgs, err := store.Load(context.Background(), "absent")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMemoryStoreAppendOrdering(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	_, err := store.Append(ctx, "k", Message{Role: RoleUser, Content: "one"})
	require.NoError(t, err)
	msgs, err := store.Append(ctx, "k", Message{Role: RoleAssistant, Content: "two"})
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
}

func TestMemoryStoreCopyOnRead(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	_, err := store.Append(ctx, "k", Message{Role: RoleUser, Content: "original"})
	require.NoError(t, err)

	msgs, err := store.Load(ctx, "k")
	require.NoError(t, err)
	msgs[0].Content = "mutated"

	again, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}

func TestMemoryStoreSaveReplaces(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	_, err := store.Append(ctx, "k", Message{Role: RoleUser, Content: "old"})
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "k", []Message{{Role: RoleUser, Content: "new"}}))

	msgs, err := store.Load(ctx, "k")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "new", msgs[0].Content)
}

func TestMemoryStoreRejectsInvalidKeys(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	for _, key := range []string{"", "a/b", `a\b`, "a..b"} {
		_, err := store.Append(ctx, key, Message{Role: RoleUser, Content: "x"})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.Load(context.Background(), "k")
	assert.ErrorIs(t, err, ErrStoreClosed)
}
