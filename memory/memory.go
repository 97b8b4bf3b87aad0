// Package memory provides long-lived memory snippets scoped by store key.
// Agents whose include-memories flag is set recall relevant snippets at
// answer time and prepend them to the prompt. The in-memory implementation
// below suits tests and single-process deployments; back Search with an
// embeddings index for production recall.
package memory

import (
	"fmt"
	"strings"
	"sync"
)

// SearchResult is one recalled memory snippet with its relevance score.
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}

// Store persists and recalls memory snippets per store key.
type Store interface {
	Remember(storeKey, content string, metadata map[string]any) error
	Recall(storeKey, query string, limit int) ([]SearchResult, error)
	Forget(storeKey, memoryID string) error
}

// snippet is the internal representation persisted by InMemoryStore.
type snippet struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// InMemoryStore is a process-local Store. Recall is a linear scan with
// case-insensitive substring matching assigning a constant score of 1.0 to
// every hit. Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	storage map[string][]snippet // store key -> snippets in insertion order
}

// NewInMemoryStore creates a new in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{storage: make(map[string][]snippet)}
}

// Remember appends a new snippet generating a simple incremental id.
func (m *InMemoryStore) Remember(storeKey, content string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("mem_%d", len(m.storage[storeKey]))
	m.storage[storeKey] = append(m.storage[storeKey], snippet{ID: id, Content: content, Metadata: metadata})
	return nil
}

// Recall returns up to limit snippets matching the query, in insertion order.
// An empty query matches everything.
func (m *InMemoryStore) Recall(storeKey, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	results := make([]SearchResult, 0, limit)
	for _, s := range m.storage[storeKey] {
		if limit > 0 && len(results) >= limit {
			break
		}
		if q == "" || strings.Contains(strings.ToLower(s.Content), q) {
			md := make(map[string]any, len(s.Metadata))
			for k, v := range s.Metadata {
				md[k] = v
			}
			results = append(results, SearchResult{ID: s.ID, Content: s.Content, Score: 1.0, Metadata: md})
		}
	}
	return results, nil
}

// Forget removes a snippet by id.
func (m *InMemoryStore) Forget(storeKey, memoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snippets := m.storage[storeKey]
	for i, s := range snippets {
		if s.ID == memoryID {
			m.storage[storeKey] = append(snippets[:i], snippets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("memory not found")
}
