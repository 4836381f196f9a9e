// Package csync has the locked containers shared by the backend session
// registries.
package csync

import "sync"

// Map is a mutex-guarded map for low-contention bookkeeping, such as
// pending control requests keyed by id.
type Map[K comparable, V any] struct {
	mu    sync.RWMutex
	inner map[K]V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{inner: make(map[K]V)}
}

func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	m.inner[key] = value
	m.mu.Unlock()
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.inner[key]
	return v, ok
}

func (m *Map[K, V]) Del(key K) {
	m.mu.Lock()
	delete(m.inner, key)
	m.mu.Unlock()
}

// Take removes and returns the entry in one locked step, so two resolvers
// racing on the same id cannot both claim it.
func (m *Map[K, V]) Take(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.inner[key]
	if ok {
		delete(m.inner, key)
	}
	return v, ok
}
