// Package events provides typed sweep lifecycle events and a small
// in-process bus that fans them out to subscribers (the websocket progress
// stream, primarily).
package events

import (
	"sync"
	"time"

	"github.com/aristath/harmonia/internal/modules/trajectory"
)

// EventType identifies the kind of a sweep event.
type EventType string

const (
	// SweepStarted fires when a run begins sampling.
	SweepStarted EventType = "sweep_started"
	// SampleRecorded fires for every recorded (or skipped) sample.
	SampleRecorded EventType = "sample_recorded"
	// SweepCompleted fires when a run finishes, with its classification.
	SweepCompleted EventType = "sweep_completed"
	// SweepFailed fires when a run aborts on a fatal error.
	SweepFailed EventType = "sweep_failed"
)

// Event is a single sweep lifecycle notification.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`

	// SampleRecorded fields.
	SampleIndex  int                `json:"sample_index,omitempty"`
	SampleTotal  int                `json:"sample_total,omitempty"`
	Sample       *trajectory.Sample `json:"sample,omitempty"`

	// SweepCompleted / SweepFailed fields.
	Label   string `json:"label,omitempty"`
	Skipped int    `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Bus fans events out to subscribers. Slow subscribers drop events rather
// than stall a sweep.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns its channel plus an
// unsubscribe function. The channel is buffered; events overflowing the
// buffer are dropped for that subscriber.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subscribers[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
}

// Publish delivers an event to all subscribers without blocking.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			// Subscriber is lagging, drop the event for it.
		}
	}
}
