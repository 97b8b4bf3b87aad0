package store

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentforge/core"
)

// InMemory is a volatile Conversation implementation storing turns in a
// process local slice. It is safe for concurrent access and best suited for
// tests or ephemeral demo setups. Returned slices are copies to prevent
// external mutation of internal state.
type InMemory struct {
	key   string
	mu    sync.RWMutex
	turns []core.Turn
	seq   int64
}

// NewInMemory constructs an empty in-memory conversation for a store key.
func NewInMemory(storeKey string) *InMemory {
	return &InMemory{key: storeKey}
}

// Key returns the store key this conversation is bound to.
func (m *InMemory) Key() string { return m.key }

// Append adds turns assigning consecutive sequence numbers. All turns of one
// call land together.
func (m *InMemory) Append(_ context.Context, turns ...core.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, turn := range turns {
		m.seq++
		turn.Seq = m.seq
		if turn.Timestamp.IsZero() {
			turn.Timestamp = time.Now().UTC()
		}
		m.turns = append(m.turns, turn)
	}
	return nil
}

// Read returns up to window turns, most recent first (window <= 0 means all).
func (m *InMemory) Read(_ context.Context, window int) ([]core.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.turns)
	if window > 0 && window < n {
		n = window
	}
	out := make([]core.Turn, 0, n)
	for i := len(m.turns) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.turns[i])
	}
	return out, nil
}
