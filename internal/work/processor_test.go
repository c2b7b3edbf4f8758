package work

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(registry *Registry, completion *CompletionTracker) *Processor {
	return NewProcessorWithTimeout(registry, completion, time.Second, zerolog.Nop())
}

func TestProcessorTrigger(t *testing.T) {
	registry := NewRegistry()
	completion := NewCompletionTracker()

	executed := atomic.Bool{}
	registry.Register(&WorkType{
		ID: "test:work",
		FindSubjects: func() []string {
			return []string{""}
		},
		Execute: func(ctx context.Context, subject string) error {
			executed.Store(true)
			return nil
		},
	})

	p := newTestProcessor(registry, completion)
	go p.Run()
	defer p.Stop()

	p.Trigger()
	time.Sleep(100 * time.Millisecond)

	assert.True(t, executed.Load())
	_, done := completion.GetCompletion("test:work", "")
	assert.True(t, done)
}

func TestProcessorDependencyOrdering(t *testing.T) {
	registry := NewRegistry()
	completion := NewCompletionTracker()

	var mu sync.Mutex
	var order []string

	registry.Register(&WorkType{
		ID:       "test:first",
		Priority: PriorityLow,
		FindSubjects: func() []string {
			if _, done := completion.GetCompletion("test:first", ""); done {
				return nil
			}
			return []string{""}
		},
		Execute: func(ctx context.Context, subject string) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			return nil
		},
	})
	registry.Register(&WorkType{
		ID:        "test:second",
		DependsOn: []string{"test:first"},
		Priority:  PriorityHigh,
		FindSubjects: func() []string {
			if _, done := completion.GetCompletion("test:second", ""); done {
				return nil
			}
			return []string{""}
		},
		Execute: func(ctx context.Context, subject string) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		},
	})

	p := newTestProcessor(registry, completion)
	go p.Run()
	defer p.Stop()

	p.Trigger()
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// The higher-priority sweep waits for its dependency even though it is
	// scanned first.
	require.Equal(t, []string{"first", "second"}, order)
}

func TestProcessorRetriesFailedWork(t *testing.T) {
	registry := NewRegistry()
	completion := NewCompletionTracker()

	attempts := atomic.Int32{}
	returned := atomic.Bool{}
	registry.Register(&WorkType{
		ID: "test:flaky",
		FindSubjects: func() []string {
			if attempts.Load() > 0 {
				return nil
			}
			return []string{""}
		},
		Execute: func(ctx context.Context, subject string) error {
			if attempts.Add(1) == 1 {
				return errors.New("transient failure")
			}
			returned.Store(true)
			return nil
		},
	})

	p := newTestProcessor(registry, completion)
	go p.Run()
	defer p.Stop()

	p.Trigger()
	time.Sleep(100 * time.Millisecond)
	p.Trigger()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(2), attempts.Load())
	assert.True(t, returned.Load())
}

func TestProcessorIntervalStaleness(t *testing.T) {
	registry := NewRegistry()
	completion := NewCompletionTracker()

	runs := atomic.Int32{}
	wt := &WorkType{
		ID:       "test:interval",
		Interval: time.Hour,
		FindSubjects: func() []string {
			return []string{""}
		},
		Execute: func(ctx context.Context, subject string) error {
			runs.Add(1)
			return nil
		},
	}
	registry.Register(wt)

	p := newTestProcessor(registry, completion)
	go p.Run()
	defer p.Stop()

	p.Trigger()
	time.Sleep(100 * time.Millisecond)
	p.Trigger()
	time.Sleep(100 * time.Millisecond)

	// Second trigger is inside the interval and must not re-run.
	assert.Equal(t, int32(1), runs.Load())

	// Backdate the completion and the work becomes stale again.
	completion.MarkCompletedAt(NewWorkItem(wt, ""), time.Now().Add(-2*time.Hour))
	p.Trigger()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
}

func TestExecuteNow(t *testing.T) {
	registry := NewRegistry()
	completion := NewCompletionTracker()

	executed := atomic.Bool{}
	registry.Register(&WorkType{
		ID:       "test:manual",
		Interval: time.Hour,
		FindSubjects: func() []string {
			return nil
		},
		Execute: func(ctx context.Context, subject string) error {
			executed.Store(true)
			return nil
		},
	})

	p := newTestProcessor(registry, completion)

	require.NoError(t, p.ExecuteNow("test:manual", "scenario-1"))
	assert.True(t, executed.Load())
	_, done := completion.GetCompletion("test:manual", "scenario-1")
	assert.True(t, done)

	require.Error(t, p.ExecuteNow("test:unknown", ""))
}

func TestRegistryOrdering(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&WorkType{ID: "b:low", Priority: PriorityLow})
	registry.Register(&WorkType{ID: "a:high", Priority: PriorityHigh})
	registry.Register(&WorkType{ID: "a:low", Priority: PriorityLow})

	ordered := registry.ByPriority()
	require.Len(t, ordered, 3)
	assert.Equal(t, "a:high", ordered[0].ID)
	assert.Equal(t, "a:low", ordered[1].ID)
	assert.Equal(t, "b:low", ordered[2].ID)

	assert.Equal(t, 3, registry.Count())
	assert.Equal(t, []string{"a:high", "a:low", "b:low"}, registry.IDs())
}

func TestParseWorkID(t *testing.T) {
	typeID, subject := ParseWorkID("scenario:sweep:ref-fire-clash")
	assert.Equal(t, "scenario:sweep", typeID)
	assert.Equal(t, "ref-fire-clash", subject)

	typeID, subject = ParseWorkID("runs:prune")
	assert.Equal(t, "runs:prune", typeID)
	assert.Equal(t, "", subject)
}
