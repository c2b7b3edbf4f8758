package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Publish(Event{Type: SweepStarted, RunID: "run-1"})

	select {
	case e := <-ch:
		assert.Equal(t, SweepStarted, e.Type)
		assert.Equal(t, "run-1", e.RunID)
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()

	unsubscribe()

	_, open := <-ch
	assert.False(t, open)

	// A second unsubscribe must be a no-op.
	unsubscribe()
}

func TestBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the subscriber buffer; Publish must never stall.
		for i := 0; i < 1000; i++ {
			bus.Publish(Event{Type: SampleRecorded, RunID: "run-1", SampleIndex: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	first, stopFirst := bus.Subscribe()
	second, stopSecond := bus.Subscribe()
	defer stopFirst()
	defer stopSecond()

	bus.Publish(Event{Type: SweepCompleted, RunID: "run-2", Label: "converging"})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case e := <-ch:
			require.Equal(t, SweepCompleted, e.Type)
			assert.Equal(t, "converging", e.Label)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}
