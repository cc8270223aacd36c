// Package events fans domain events out to live subscribers (SSE clients).
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"academihub.org/internal/ids"
)

const (
	CourseTransitioned = "course.transitioned"
	EnrollmentCreated  = "enrollment.created"
	EnrollmentUpdated  = "enrollment.updated"
	SubmissionCreated  = "submission.created"
	SubmissionGraded   = "submission.graded"
)

// Event is one published occurrence. Data must be JSON-encodable.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Bus is an in-process pub/sub. Slow subscribers miss events rather than
// block publishers.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	next    int
	buffer  int
	dropped atomic.Uint64
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe registers a subscriber. The channel is closed once ctx ends.
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish stamps the event with an id and time when missing and delivers it
// to every subscriber with room in its buffer.
func (b *Bus) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = ids.New()
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped counts deliveries skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }
