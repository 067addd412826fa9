package eventbus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"quorum/internal/domain"
)

func newEvent(t domain.EventType) domain.Event {
	return domain.Event{Type: t, Timestamp: time.Now(), ActionID: "act-1"}
}

func TestPublishTyped(t *testing.T) {
	bus := New(nil)

	var started, completed atomic.Int32
	bus.Subscribe(domain.EventActionStarted, func(_ context.Context, e domain.Event) {
		started.Add(1)
	})
	bus.Subscribe(domain.EventActionCompleted, func(_ context.Context, e domain.Event) {
		completed.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventActionStarted))
	bus.Publish(context.Background(), newEvent(domain.EventActionCompleted))
	bus.Close()

	if started.Load() != 1 || completed.Load() != 1 {
		t.Fatalf("expected 1/1, got %d/%d", started.Load(), completed.Load())
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := New(nil)

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventActionStarted))
	bus.Publish(context.Background(), newEvent(domain.EventRouterTerminated))
	bus.Close()

	if got.Load() != 2 {
		t.Fatalf("expected 2, got %d", got.Load())
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New(nil)

	var got atomic.Int32
	unsub := bus.Subscribe(domain.EventActionError, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})
	unsub()

	bus.Publish(context.Background(), newEvent(domain.EventActionError))
	bus.Close()

	if got.Load() != 0 {
		t.Fatalf("expected 0 after unsubscribe, got %d", got.Load())
	}
}

func TestPanickingSubscriberIsContained(t *testing.T) {
	bus := New(nil)

	var got atomic.Int32
	bus.Subscribe(domain.EventActionStarted, func(_ context.Context, _ domain.Event) {
		panic("subscriber crash")
	})
	bus.Subscribe(domain.EventActionStarted, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventActionStarted))
	bus.Close()

	if got.Load() != 1 {
		t.Fatalf("healthy subscriber should still run, got %d", got.Load())
	}
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	bus := New(nil)

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) { got.Add(1) })

	bus.Close()
	bus.Publish(context.Background(), newEvent(domain.EventActionStarted))

	if got.Load() != 0 {
		t.Fatalf("expected no delivery after close, got %d", got.Load())
	}
}
