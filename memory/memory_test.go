package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_RememberAndRecall(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Remember("a", "prefers dark mode", nil))
	require.NoError(t, s.Remember("a", "works in UTC", map[string]any{"kind": "tz"}))
	require.NoError(t, s.Remember("b", "unrelated snippet", nil))

	results, err := s.Recall("a", "dark", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "prefers dark mode", results[0].Content)
	assert.Equal(t, 1.0, results[0].Score)

	// Empty query matches everything under the key, bounded by limit.
	all, err := s.Recall("a", "", 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Keys never leak into each other.
	other, err := s.Recall("b", "dark", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInMemoryStore_Forget(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Remember("a", "temporary note", nil))

	results, err := s.Recall("a", "", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, s.Forget("a", results[0].ID))
	results, err = s.Recall("a", "", 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.Error(t, s.Forget("a", "mem_missing"))
}
