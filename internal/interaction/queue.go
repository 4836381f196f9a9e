// Package interaction buffers the two protocols where the assistant waits
// on the human: permission requests and question batches. Each keeps an
// ordered queue per session; only the head is surfaced, later arrivals stay
// buffered until the head resolves.
package interaction

import "sync"

// Queue is an ordered, id-keyed buffer. Pushing a duplicate id is a no-op
// so a re-delivered request can never surface twice.
type Queue[T any] struct {
	mu    sync.Mutex
	order []string
	items map[string]T
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{items: make(map[string]T)}
}

// Push appends the item unless its id is already queued.
func (q *Queue[T]) Push(id string, item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.items[id]; ok {
		return false
	}
	q.items[id] = item
	q.order = append(q.order, id)
	return true
}

// Head returns the oldest queued item without removing it.
func (q *Queue[T]) Head() (string, T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.order) == 0 {
		return "", zero, false
	}
	id := q.order[0]
	return id, q.items[id], true
}

// Get returns the item for id, queued at any position.
func (q *Queue[T]) Get(id string) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	return item, ok
}

// Remove deletes the item for id and returns it. Removing an unknown id is
// a no-op, which makes double-resolution harmless.
func (q *Queue[T]) Remove(id string) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	delete(q.items, id)
	for i, queued := range q.order {
		if queued == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return item, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
