// Package pubsub fans state-change notices out to in-process subscribers.
package pubsub

import (
	"context"
	"sync"
)

// EventType says whether the payload is new or a mutation of known state.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
)

// Event pairs a payload with its lifecycle stage.
type Event[T any] struct {
	Type    EventType
	Payload T
}

// subscriberBuffer absorbs bursts from the session loop; a subscriber that
// falls further behind misses events rather than stalling the publisher.
const subscriberBuffer = 64

// Broker delivers every published event to every live subscriber.
// Delivery is best effort and never blocks Publish.
type Broker[T any] struct {
	mu   sync.RWMutex
	subs map[chan Event[T]]struct{}
	done chan struct{}
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[chan Event[T]]struct{}),
		done: make(chan struct{}),
	}
}

// Subscribe registers for future events. The returned channel closes when
// ctx is done or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	ch := make(chan Event[T], subscriberBuffer)
	b.subs[ch] = struct{}{}

	go func() {
		<-ctx.Done()

		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		close(ch)
	}()

	return ch
}

// Publish sends payload to every subscriber whose buffer has room.
func (b *Broker[T]) Publish(t EventType, payload T) {
	b.mu.RLock()
	select {
	case <-b.done:
		b.mu.RUnlock()
		return
	default:
	}

	subs := make([]chan Event[T], 0, len(b.subs))
	for ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()

	evt := Event[T]{Type: t, Payload: payload}
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			// Full buffer means a stalled reader; dropping keeps the
			// session loop moving.
		}
	}
}

// Shutdown closes every subscriber channel. Further publishes are no-ops.
func (b *Broker[T]) Shutdown() {
	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
}
