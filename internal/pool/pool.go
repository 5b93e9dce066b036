// Package pool executes batches of independent operations with bounded
// concurrency and per-operation timeouts. One operation's failure never
// aborts the batch: every submitted task produces exactly one outcome.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the lifecycle state of a task within a batch.
type Status string

const (
	// StatusRunning means the task's operation has started.
	StatusRunning Status = "running"
	// StatusFulfilled means the operation returned a value.
	StatusFulfilled Status = "fulfilled"
	// StatusRejected means the operation returned a terminal error.
	StatusRejected Status = "rejected"
	// StatusTimeout means the operation did not settle before its timeout.
	StatusTimeout Status = "timeout"
)

// Task is one unit submitted to the coordinator.
type Task struct {
	// ID identifies the task in outcomes and progress events.
	ID string
	// Priority orders execution; higher starts first. Ties keep input order.
	Priority int
	// Timeout bounds the operation. Zero means no timeout.
	Timeout time.Duration
	// Op is the operation to execute. It receives a context that is
	// cancelled when the timeout elapses; operations that ignore it are
	// abandoned, not forcibly stopped.
	Op func(ctx context.Context) (any, error)
}

// Outcome is the recorded result of one task.
type Outcome struct {
	ID       string
	Status   Status
	Value    any
	Err      error
	Duration time.Duration
}

// BatchSummary aggregates a finished batch.
type BatchSummary struct {
	Total     int
	Fulfilled int
	Rejected  int
	TimedOut  int
	Duration  time.Duration
}

// ProgressSink receives fire-and-forget execution events. Implementations
// must not block; a panicking sink is recovered and ignored so event
// emission can never affect outcomes.
type ProgressSink interface {
	// BatchStarted fires once before any task runs.
	BatchStarted(total int)
	// TaskStatus fires on every task status transition.
	TaskStatus(id string, status Status, err error)
	// BatchCompleted fires once after every task has an outcome.
	BatchCompleted(summary BatchSummary)
}

// NopSink is the default sink; it discards all events.
type NopSink struct{}

func (NopSink) BatchStarted(int)                 {}
func (NopSink) TaskStatus(string, Status, error) {}
func (NopSink) BatchCompleted(BatchSummary)      {}

var _ ProgressSink = NopSink{}

// DefaultMaxConcurrency bounds worker count when none is configured. Kept
// small to avoid overwhelming downstream systems.
const DefaultMaxConcurrency = 5

// Coordinator runs batches through a fixed-size worker pool.
type Coordinator struct {
	maxConcurrency int
	sink           ProgressSink
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSink sets the progress sink.
func WithSink(s ProgressSink) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sink = s
		}
	}
}

// New creates a Coordinator with the given concurrency bound.
// Non-positive values fall back to DefaultMaxConcurrency.
func New(maxConcurrency int, opts ...Option) *Coordinator {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	c := &Coordinator{
		maxConcurrency: maxConcurrency,
		sink:           NopSink{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs all tasks and returns one outcome per task, index-aligned
// with the (priority-sorted) submission order. It never returns early:
// the batch drains even when every task fails.
func (c *Coordinator) Execute(ctx context.Context, tasks []Task) []Outcome {
	started := time.Now()
	outcomes := make([]Outcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	queue := make([]Task, len(tasks))
	copy(queue, tasks)
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].Priority > queue[j].Priority
	})

	c.notify(func() { c.sink.BatchStarted(len(queue)) })

	workers := c.maxConcurrency
	if len(queue) < workers {
		workers = len(queue)
	}

	// Workers pull the next unstarted task via an atomic cursor; each
	// outcome slot is written by exactly one worker.
	var cursor atomic.Int64
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(queue) {
					return nil
				}
				outcomes[i] = c.run(ctx, queue[i])
			}
		})
	}
	_ = g.Wait()

	summary := BatchSummary{Total: len(queue), Duration: time.Since(started)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusFulfilled:
			summary.Fulfilled++
		case StatusTimeout:
			summary.TimedOut++
		default:
			summary.Rejected++
		}
	}
	c.notify(func() { c.sink.BatchCompleted(summary) })

	return outcomes
}

// result carries a settled operation across the timeout race.
type result struct {
	value any
	err   error
}

// run executes a single task with its timeout race and records the outcome.
func (c *Coordinator) run(ctx context.Context, t Task) Outcome {
	start := time.Now()
	c.notify(func() { c.sink.TaskStatus(t.ID, StatusRunning, nil) })

	opCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	done := make(chan result, 1)
	go func() {
		value, err := callSafely(opCtx, t.Op)
		done <- result{value: value, err: err}
	}()

	var out Outcome
	select {
	case res := <-done:
		out = Outcome{ID: t.ID, Value: res.value, Err: res.err, Duration: time.Since(start)}
		if res.err != nil {
			out.Status = StatusRejected
			out.Value = nil
		} else {
			out.Status = StatusFulfilled
		}
	case <-opCtx.Done():
		// The operation goroutine is abandoned; its buffered channel send
		// cannot leak it. Cooperative operations observe opCtx and stop.
		out = Outcome{ID: t.ID, Err: opCtx.Err(), Duration: time.Since(start)}
		if t.Timeout > 0 && errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			out.Status = StatusTimeout
		} else {
			out.Status = StatusRejected
		}
	}

	c.notify(func() { c.sink.TaskStatus(t.ID, out.Status, out.Err) })
	return out
}

// callSafely converts an operation panic into an error so a misbehaving
// task cannot take down the worker pool.
func callSafely(ctx context.Context, op func(context.Context) (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

// notify runs a sink callback, swallowing panics.
func (c *Coordinator) notify(f func()) {
	defer func() { _ = recover() }()
	f()
}
