package work

import (
	"sync"
	"time"
)

// CompletionTracker tracks when work items were last completed. It drives
// interval staleness and dependency checks.
type CompletionTracker struct {
	completions map[string]time.Time
	mu          sync.RWMutex
}

// NewCompletionTracker creates a new completion tracker.
func NewCompletionTracker() *CompletionTracker {
	return &CompletionTracker{
		completions: make(map[string]time.Time),
	}
}

func completionKey(typeID, subject string) string {
	if subject == "" {
		return typeID
	}
	return typeID + ":" + subject
}

// MarkCompleted records that a work item has been completed.
func (t *CompletionTracker) MarkCompleted(item *WorkItem) {
	t.MarkCompletedAt(item, time.Now())
}

// MarkCompletedAt records a completion at a specific time. Used by tests.
func (t *CompletionTracker) MarkCompletedAt(item *WorkItem, completedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completions[completionKey(item.TypeID, item.Subject)] = completedAt
}

// GetCompletion returns when a work type/subject combination was last
// completed and whether it ever completed.
func (t *CompletionTracker) GetCompletion(typeID, subject string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	completedAt, exists := t.completions[completionKey(typeID, subject)]
	return completedAt, exists
}

// IsStale returns true when the work should run again: it never completed,
// its interval is zero (on-demand), or the interval has elapsed.
func (t *CompletionTracker) IsStale(typeID, subject string, interval time.Duration) bool {
	if interval == 0 {
		return true
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	completedAt, exists := t.completions[completionKey(typeID, subject)]
	if !exists {
		return true
	}
	return time.Since(completedAt) > interval
}

// Clear removes the completion record for a work type/subject so the next
// trigger re-runs it regardless of interval.
func (t *CompletionTracker) Clear(typeID, subject string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.completions, completionKey(typeID, subject))
}
