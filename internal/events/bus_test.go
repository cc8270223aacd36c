package events

import (
	"context"
	"testing"
	"time"
)

func TestPublishFansOut(t *testing.T) {
	bus := NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := bus.Subscribe(ctx)
	b := bus.Subscribe(ctx)
	bus.Publish(Event{Type: CourseTransitioned, Data: map[string]any{"course_id": 1}})

	for i, ch := range []<-chan Event{a, b} {
		select {
		case evt := <-ch:
			if evt.Type != CourseTransitioned || evt.ID == "" || evt.At.IsZero() {
				t.Fatalf("subscriber %d: unexpected event %+v", i, evt)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no event", i)
		}
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	bus := NewBus(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = bus.Subscribe(ctx)
	bus.Publish(Event{Type: SubmissionGraded})
	bus.Publish(Event{Type: SubmissionGraded})
	if got := bus.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped delivery, got %d", got)
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	bus := NewBus(1)
	ctx, cancel := context.WithCancel(context.Background())
	ch := bus.Subscribe(ctx)
	if bus.Subscribers() != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed")
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("subscriber not removed")
	}
}
