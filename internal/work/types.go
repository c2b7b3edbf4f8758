// Package work provides a single-lane background processor for sweep
// execution and store maintenance. Work types are registered once and
// generate work items on demand; items run one at a time so concurrent
// sweeps never compete for the same worker pool.
package work

import (
	"context"
	"strings"
	"time"
)

// WorkTimeout is the maximum duration a work item can run before being cancelled.
const WorkTimeout = 10 * time.Minute

// MaxRetries is the maximum number of times a failed work item will be retried.
const MaxRetries = 3

// Priority defines the execution priority of work types.
type Priority int

const (
	// PriorityLow is for maintenance work (pruning, backups).
	PriorityLow Priority = iota
	// PriorityMedium is for reference reverification sweeps.
	PriorityMedium
	// PriorityHigh is for operator-requested sweeps.
	PriorityHigh
)

// String returns a human-readable name for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// WorkType defines a type of work that can be executed.
type WorkType struct {
	// ID is the unique identifier for this work type (e.g., "scenario:sweep").
	ID string

	// DependsOn lists work type IDs that must complete before this work can
	// run. For per-scenario work, dependencies are scoped to the same subject.
	DependsOn []string

	// Interval is the minimum time between runs (0 = on-demand only).
	Interval time.Duration

	// Priority determines execution order when multiple work items are eligible.
	Priority Priority

	// FindSubjects returns subjects (scenario ids) that need this work.
	// Returns []string{""} for global work, nil if no work needed.
	FindSubjects func() []string

	// Execute performs the work for a given subject.
	// Subject is empty for global work, a scenario id otherwise.
	Execute func(ctx context.Context, subject string) error
}

// WorkItem represents a specific unit of work to be executed.
type WorkItem struct {
	// ID is the full work ID including subject (e.g., "scenario:sweep:ref-fire-clash").
	ID string

	// TypeID is the work type ID.
	TypeID string

	// Subject is the scenario id for per-scenario work, empty for global work.
	Subject string

	// Retries is the number of times this item has been retried.
	Retries int

	// CreatedAt is when this work item was created.
	CreatedAt time.Time
}

// NewWorkItem creates a new work item from a work type and subject.
func NewWorkItem(workType *WorkType, subject string) *WorkItem {
	id := workType.ID
	if subject != "" {
		id = workType.ID + ":" + subject
	}

	return &WorkItem{
		ID:        id,
		TypeID:    workType.ID,
		Subject:   subject,
		CreatedAt: time.Now(),
	}
}

// ParseWorkID extracts the work type ID and subject from a full work ID.
// Work type IDs have the form "category:type"; anything past the second
// colon is the subject.
func ParseWorkID(id string) (typeID string, subject string) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) <= 2 {
		return id, ""
	}
	return parts[0] + ":" + parts[1], parts[2]
}
