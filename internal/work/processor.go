package work

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Processor executes work items one at a time, respecting dependencies and
// intervals. Sweeps already parallelize internally, so a single lane keeps
// the machine predictable.
type Processor struct {
	registry   *Registry
	completion *CompletionTracker
	timeout    time.Duration
	log        zerolog.Logger

	trigger    chan struct{}
	done       chan struct{}
	stop       chan struct{}
	stopped    chan struct{}
	retryQueue []*WorkItem
	inFlight   map[string]bool
	mu         sync.Mutex
}

// NewProcessor creates a new work processor.
func NewProcessor(registry *Registry, completion *CompletionTracker, log zerolog.Logger) *Processor {
	return NewProcessorWithTimeout(registry, completion, WorkTimeout, log)
}

// NewProcessorWithTimeout creates a processor with a custom timeout. Used by tests.
func NewProcessorWithTimeout(registry *Registry, completion *CompletionTracker, timeout time.Duration, log zerolog.Logger) *Processor {
	return &Processor{
		registry:   registry,
		completion: completion,
		timeout:    timeout,
		log:        log.With().Str("service", "work").Logger(),
		trigger:    make(chan struct{}, 1),
		done:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
		inFlight:   make(map[string]bool),
	}
}

// Run starts the processor loop. Blocks until Stop is called.
func (p *Processor) Run() {
	defer close(p.stopped)

	for {
		select {
		case <-p.stop:
			return
		case <-p.trigger:
			p.processOne()
		case <-p.done:
			p.processOne()
		}
	}
}

// Stop stops the processor and waits for the loop to exit.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.stopped
}

// Trigger wakes up the processor to check for work. Non-blocking.
func (p *Processor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// ExecuteNow synchronously executes a work type, bypassing interval and
// dependency checks. Used for manual triggers via the API.
func (p *Processor) ExecuteNow(workTypeID string, subject string) error {
	wt := p.registry.Get(workTypeID)
	if wt == nil {
		return fmt.Errorf("unknown work type: %s", workTypeID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	item := NewWorkItem(wt, subject)
	if err := wt.Execute(ctx, item.Subject); err != nil {
		return err
	}
	p.completion.MarkCompleted(item)
	return nil
}

// processOne finds and executes the next eligible work item.
func (p *Processor) processOne() {
	p.mu.Lock()
	if len(p.inFlight) > 0 {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	item, wt := p.findNextWork()
	if item == nil {
		item, wt = p.popRetryQueue()
	}
	if item == nil {
		return
	}

	p.mu.Lock()
	p.inFlight[item.ID] = true
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.inFlight, item.ID)
			p.mu.Unlock()

			select {
			case p.done <- struct{}{}:
			default:
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		err := wt.Execute(ctx, item.Subject)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				p.log.Error().Str("work", item.ID).Msg("Work timed out")
			} else {
				p.log.Error().Err(err).Str("work", item.ID).Msg("Work failed")
			}

			item.Retries++
			if item.Retries < MaxRetries {
				p.pushRetryQueue(item)
			} else {
				p.log.Warn().Str("work", item.ID).Int("retries", item.Retries).Msg("Max retries reached, dropping")
			}
		} else {
			p.completion.MarkCompleted(item)
		}
	}()
}

// findNextWork finds the highest-priority eligible work item.
func (p *Processor) findNextWork() (*WorkItem, *WorkType) {
	for _, wt := range p.registry.ByPriority() {
		if wt.FindSubjects == nil {
			continue
		}
		for _, subject := range wt.FindSubjects() {
			if wt.Interval > 0 && !p.completion.IsStale(wt.ID, subject, wt.Interval) {
				continue
			}
			if !p.dependenciesMet(wt, subject) {
				continue
			}
			return NewWorkItem(wt, subject), wt
		}
	}
	return nil, nil
}

// dependenciesMet checks that every dependency completed at least once,
// scoped to the same subject for per-scenario work.
func (p *Processor) dependenciesMet(wt *WorkType, subject string) bool {
	for _, depID := range wt.DependsOn {
		if _, exists := p.completion.GetCompletion(depID, subject); !exists {
			return false
		}
	}
	return true
}

func (p *Processor) pushRetryQueue(item *WorkItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.retryQueue = append(p.retryQueue, item)
}

func (p *Processor) popRetryQueue() (*WorkItem, *WorkType) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.retryQueue) == 0 {
		return nil, nil
	}

	item := p.retryQueue[0]
	p.retryQueue = p.retryQueue[1:]

	wt := p.registry.Get(item.TypeID)
	if wt == nil {
		return nil, nil
	}
	return item, wt
}
