// Package sync is the client-side synchronization engine: it keeps a local
// projection of store state converged with the authoritative store despite
// duplicated or out-of-order change-feed deliveries, and reconciles
// optimistic local mutations against confirmed results.
package sync

import "sync"

// Mirror is a keyed local collection mirroring one store table.
//
// All three apply operations are defensive merges, so replaying the feed or
// receiving events out of order converges to the same collection:
//
//   - insert for a present id acts as an update, never an error
//   - update for an unknown id acts as an insert (missed-event recovery)
//   - delete for an unknown id is a no-op
type Mirror[T any] struct {
	mu    sync.RWMutex
	id    func(T) string
	items map[string]T
}

// NewMirror creates a mirror using id to key entities.
func NewMirror[T any](id func(T) string) *Mirror[T] {
	return &Mirror[T]{
		id:    id,
		items: make(map[string]T),
	}
}

// ApplyInsert merges an inserted entity. Idempotent: a duplicate insert for
// an id already present replaces the stored value.
func (m *Mirror[T]) ApplyInsert(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[m.id(v)] = v
}

// ApplyUpdate merges an updated entity, inserting when the id is unknown.
func (m *Mirror[T]) ApplyUpdate(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[m.id(v)] = v
}

// ApplyDelete removes an entity by id if present.
func (m *Mirror[T]) ApplyDelete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
}

// Replace swaps the whole collection for a fresh snapshot.
func (m *Mirror[T]) Replace(items []T) {
	next := make(map[string]T, len(items))
	for _, v := range items {
		next[m.id(v)] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = next
}

// Get returns the entity with the given id.
func (m *Mirror[T]) Get(id string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[id]
	return v, ok
}

// List returns all entities in unspecified order.
func (m *Mirror[T]) List() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, v)
	}
	return out
}

// Len returns the number of entities held.
func (m *Mirror[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
