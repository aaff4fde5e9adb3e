// Package rect provides measured sizes of rendered graph elements.
//
// Layout needs the intrinsic size of leaf nodes, the height of each node's
// header content and the size of every edge label. These come from a
// [Provider], keyed by element ID: node IDs, [ContentID] of a node, and edge
// IDs. Measurements may arrive asynchronously; [Provider.OnRect] notifies a
// waiter once the geometry of an element is available.
package rect

import "sync"

// Size is a measured width and height in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Provider reports measured element sizes.
type Provider interface {
	// GetRect returns the current size of id.
	GetRect(id string) (Size, bool)

	// ReadRect returns the last known size of id without waiting.
	ReadRect(id string) (Size, bool)

	// OnRect calls fn once the size of id is available. If it already is,
	// fn runs before OnRect returns. The returned function unregisters fn.
	OnRect(id string, fn func(Size)) (cancel func())

	// DeleteRect releases the measurement retained for id.
	DeleteRect(id string)
}

// ContentID returns the element ID of a node's header content region.
func ContentID(nodeID string) string { return nodeID + ":content" }

// Store is an in-memory Provider. Measurements are pushed with [Store.SetRect].
// It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	rects     map[string]Size
	listeners map[string]map[uint64]func(Size)
	nextID    uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		rects:     make(map[string]Size),
		listeners: make(map[string]map[uint64]func(Size)),
	}
}

// SetRect records the size of id and notifies pending listeners.
func (s *Store) SetRect(id string, size Size) {
	s.mu.Lock()
	s.rects[id] = size
	pending := s.listeners[id]
	delete(s.listeners, id)
	s.mu.Unlock()

	for _, fn := range pending {
		fn(size)
	}
}

// GetRect implements Provider.
func (s *Store) GetRect(id string) (Size, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rects[id]
	return r, ok
}

// ReadRect implements Provider. The store has no pending state, so it
// returns the same value as GetRect.
func (s *Store) ReadRect(id string) (Size, bool) { return s.GetRect(id) }

// OnRect implements Provider.
func (s *Store) OnRect(id string, fn func(Size)) func() {
	s.mu.Lock()
	if r, ok := s.rects[id]; ok {
		s.mu.Unlock()
		fn(r)
		return func() {}
	}
	s.nextID++
	key := s.nextID
	if s.listeners[id] == nil {
		s.listeners[id] = make(map[uint64]func(Size))
	}
	s.listeners[id][key] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[id], key)
		if len(s.listeners[id]) == 0 {
			delete(s.listeners, id)
		}
	}
}

// DeleteRect implements Provider.
func (s *Store) DeleteRect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rects, id)
}

// Len returns the number of stored measurements.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rects)
}

var _ Provider = (*Store)(nil)
