package pubsub

import (
	"context"
	"testing"
	"time"
)

func TestBrokerDeliversToSubscribers(t *testing.T) {
	b := NewBroker[string]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)

	b.Publish(UpdatedEvent, "hello")

	select {
	case ev := <-ch:
		if ev.Type != UpdatedEvent || ev.Payload != "hello" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBrokerContextCancelClosesChannel(t *testing.T) {
	b := NewBroker[int]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected a closed channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel did not close after cancel")
	}
}

func TestBrokerShutdown(t *testing.T) {
	b := NewBroker[int]()
	ch := b.Subscribe(context.Background())

	b.Shutdown()
	b.Shutdown() // idempotent

	if _, ok := <-ch; ok {
		t.Error("shutdown should close subscriber channels")
	}

	// Subscribing or publishing afterwards must not panic or block.
	late := b.Subscribe(context.Background())
	if _, ok := <-late; ok {
		t.Error("post-shutdown subscription should be closed")
	}
	b.Publish(CreatedEvent, 1)
}

func TestBrokerNeverBlocksPublisher(t *testing.T) {
	b := NewBroker[int]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)

	// Nobody drains ch; overflow past the buffer must be dropped, not
	// block this goroutine.
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(UpdatedEvent, i)
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}
