package store

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process Store. Documents are copied on the way in and out
// so callers cannot mutate stored state.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

func (m *Memory) Save(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = *doc
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]*Document, error) {
	m.mu.RLock()
	out := make([]*Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, &d)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error  { return nil }
func (m *Memory) Close(context.Context) error { return nil }

var _ Store = (*Memory)(nil)
