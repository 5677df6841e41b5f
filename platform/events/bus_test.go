package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishSyncRunsHandlersInOrderAndJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var order []int
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 1)
		return errors.New("first failed")
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 2)
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if err == nil {
		t.Fatal("expected joined error from first handler")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected both handlers in order, got %v", order)
	}
}

func TestPublishDeliversAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var calls atomic.Int32
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		calls.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: BaseEvent{Timestamp: time.Now()}})
	cancel()
	bus.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(nil)
	if err := bus.PublishSync(context.Background(), testEvent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDrainWaitsForInFlightHandlers(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var done atomic.Bool
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if err := bus.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if !done.Load() {
		t.Fatal("expected handler to finish before Drain returned")
	}
}

func TestDrainGivesUpWhenContextEnds(t *testing.T) {
	bus := NewInMemoryBus(nil)
	release := make(chan struct{})
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		<-release
		return nil
	}))
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := bus.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(release)
	bus.Wait()
}
