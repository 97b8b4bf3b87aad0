package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "conversations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_KeyIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.Handle("a")
	require.NoError(t, err)
	b, err := s.Handle("b")
	require.NoError(t, err)

	require.NoError(t, a.Append(ctx, core.NewUserTurn("hello")))
	require.NoError(t, b.Append(ctx, core.NewUserTurn("hi")))

	turnsA, err := a.Read(ctx, 0)
	require.NoError(t, err)
	require.Len(t, turnsA, 1)
	assert.Equal(t, "hello", turnsA[0].Content)

	turnsB, err := b.Read(ctx, 0)
	require.NoError(t, err)
	require.Len(t, turnsB, 1)
	assert.Equal(t, "hi", turnsB[0].Content)
}

func TestStore_ReadOrderAndWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h, err := s.Handle("chat")
	require.NoError(t, err)

	for _, msg := range []string{"first", "second", "third", "fourth"} {
		require.NoError(t, h.Append(ctx, core.NewUserTurn(msg)))
	}

	// Most recent first, bounded by window.
	turns, err := h.Read(ctx, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "fourth", turns[0].Content)
	assert.Equal(t, "third", turns[1].Content)

	// window <= 0 returns everything.
	all, err := h.Read(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "fourth", all[0].Content)
	assert.Equal(t, "first", all[3].Content)

	// Sequence numbers are strictly decreasing in read order.
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].Seq, all[i].Seq)
	}
}

func TestStore_AppendPairIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h, err := s.Handle("chat")
	require.NoError(t, err)

	// A request's user and assistant turns land in one call with
	// consecutive sequence numbers.
	require.NoError(t, h.Append(ctx,
		core.NewUserTurn("question"),
		core.NewAssistantTurn("answer"),
	))

	turns, err := h.Read(ctx, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "answer", turns[0].Content)
	assert.Equal(t, "question", turns[1].Content)
	assert.Equal(t, turns[1].Seq+1, turns[0].Seq)

	// Appending nothing is a no-op.
	require.NoError(t, h.Append(ctx))
	turns, err = h.Read(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestStore_HandleCaching(t *testing.T) {
	s := openTestStore(t)

	h1, err := s.Handle("same")
	require.NoError(t, err)
	h2, err := s.Handle("same")
	require.NoError(t, err)
	assert.Same(t, h1, h2)
}

func TestStore_EmptyKeyRejected(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Handle("")
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store_key", cfgErr.Setting)
}

func TestOpen_UnwritablePath(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root: permission bits are not enforced")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	_, err := Open(filepath.Join(dir, "nested", "conversations.db"))
	var storageErr *core.StorageUnavailableError
	require.ErrorAs(t, err, &storageErr)
}

func TestStore_KeySanitization(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h, err := s.Handle("weird-key.with/chars")
	require.NoError(t, err)
	require.NoError(t, h.Append(ctx, core.NewUserTurn("ok")))

	turns, err := h.Read(ctx, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func TestStore_SanitizedKeyCollisionRejected(t *testing.T) {
	s := openTestStore(t)

	// "a-b" and "a_b" both fold to table conv_a_b; handing out both would
	// merge their histories.
	_, err := s.Handle("a-b")
	require.NoError(t, err)

	_, err = s.Handle("a_b")
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store_key", cfgErr.Setting)
	assert.Equal(t, "a_b", cfgErr.Value)

	// The original key keeps working and stays cached.
	h, err := s.Handle("a-b")
	require.NoError(t, err)
	assert.Equal(t, "a-b", h.Key())
}

func TestInMemory_ReadReturnsCopies(t *testing.T) {
	m := NewInMemory("mem")
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, core.NewUserTurn("one")))
	require.NoError(t, m.Append(ctx, core.NewUserTurn("two")))

	turns, err := m.Read(ctx, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[0].Content)

	turns[0].Content = "mutated"
	again, err := m.Read(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "two", again[0].Content)
}
