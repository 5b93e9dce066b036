package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// recordingSink captures events for assertions. Safe for concurrent use.
type recordingSink struct {
	mu         sync.Mutex
	running    int
	maxRunning int
	statuses   map[string][]Status
	batches    []BatchSummary
	started    []int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{statuses: make(map[string][]Status)}
}

func (s *recordingSink) BatchStarted(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, total)
}

func (s *recordingSink) TaskStatus(id string, status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = append(s.statuses[id], status)
	switch status {
	case StatusRunning:
		s.running++
		if s.running > s.maxRunning {
			s.maxRunning = s.running
		}
	default:
		s.running--
	}
}

func (s *recordingSink) BatchCompleted(summary BatchSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, summary)
}

func TestExecuteAllOutcomes(t *testing.T) {
	c := New(3)

	var tasks []Task
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("t%d", i)
		fail := i%3 == 0 // 4 of 10 fail
		tasks = append(tasks, Task{
			ID: id,
			Op: func(ctx context.Context) (any, error) {
				if fail {
					return nil, errors.New("boom")
				}
				return id, nil
			},
		})
	}

	outcomes := c.Execute(context.Background(), tasks)
	if len(outcomes) != len(tasks) {
		t.Fatalf("expected %d outcomes, got %d", len(tasks), len(outcomes))
	}

	fulfilled, rejected := 0, 0
	seen := make(map[string]bool)
	for _, o := range outcomes {
		if seen[o.ID] {
			t.Errorf("task %s has more than one outcome", o.ID)
		}
		seen[o.ID] = true
		switch o.Status {
		case StatusFulfilled:
			fulfilled++
		case StatusRejected:
			rejected++
		default:
			t.Errorf("unexpected status %s for %s", o.Status, o.ID)
		}
	}
	if fulfilled != 6 || rejected != 4 {
		t.Errorf("expected 6 fulfilled / 4 rejected, got %d / %d", fulfilled, rejected)
	}
}

func TestExecuteBoundedConcurrency(t *testing.T) {
	sink := newRecordingSink()
	c := New(3, WithSink(sink))

	var tasks []Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, Task{
			ID: fmt.Sprintf("t%d", i),
			Op: func(ctx context.Context) (any, error) {
				time.Sleep(20 * time.Millisecond)
				return nil, nil
			},
		})
	}

	c.Execute(context.Background(), tasks)

	if sink.maxRunning > 3 {
		t.Errorf("observed %d concurrent tasks, limit is 3", sink.maxRunning)
	}
	if len(sink.started) != 1 || sink.started[0] != 10 {
		t.Errorf("expected one batch-started event with total 10, got %v", sink.started)
	}
	if len(sink.batches) != 1 || sink.batches[0].Fulfilled != 10 {
		t.Errorf("expected one completed batch with 10 fulfilled, got %+v", sink.batches)
	}
}

func TestExecuteTimeout(t *testing.T) {
	sink := newRecordingSink()
	c := New(2, WithSink(sink))

	tasks := []Task{
		{
			ID:      "slow",
			Timeout: 50 * time.Millisecond,
			Op: func(ctx context.Context) (any, error) {
				select {
				case <-time.After(time.Second):
					return "too late", nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			},
		},
		{
			ID: "fast",
			Op: func(ctx context.Context) (any, error) {
				time.Sleep(10 * time.Millisecond)
				return "done", nil
			},
		},
	}

	outcomes := c.Execute(context.Background(), tasks)

	byID := make(map[string]Outcome)
	for _, o := range outcomes {
		byID[o.ID] = o
	}
	if byID["slow"].Status != StatusTimeout {
		t.Errorf("expected slow task timeout, got %s", byID["slow"].Status)
	}
	if byID["fast"].Status != StatusFulfilled || byID["fast"].Value != "done" {
		t.Errorf("expected fast task fulfilled, got %+v", byID["fast"])
	}
	if sink.batches[0].TimedOut != 1 {
		t.Errorf("expected 1 timed-out in summary, got %d", sink.batches[0].TimedOut)
	}
}

func TestExecutePrioritySort(t *testing.T) {
	// One worker so execution order equals queue order.
	c := New(1)

	var mu sync.Mutex
	var order []string
	op := func(id string) func(context.Context) (any, error) {
		return func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil, nil
		}
	}

	tasks := []Task{
		{ID: "low", Priority: 1, Op: op("low")},
		{ID: "high", Priority: 10, Op: op("high")},
		{ID: "mid-a", Priority: 5, Op: op("mid-a")},
		{ID: "mid-b", Priority: 5, Op: op("mid-b")},
	}

	c.Execute(context.Background(), tasks)

	want := []string{"high", "mid-a", "mid-b", "low"}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestExecutePanicBecomesRejected(t *testing.T) {
	c := New(2)

	outcomes := c.Execute(context.Background(), []Task{
		{ID: "bad", Op: func(ctx context.Context) (any, error) { panic("kaboom") }},
		{ID: "good", Op: func(ctx context.Context) (any, error) { return 42, nil }},
	})

	byID := make(map[string]Outcome)
	for _, o := range outcomes {
		byID[o.ID] = o
	}
	if byID["bad"].Status != StatusRejected || byID["bad"].Err == nil {
		t.Errorf("expected panicking task rejected with error, got %+v", byID["bad"])
	}
	if byID["good"].Status != StatusFulfilled {
		t.Errorf("expected sibling unaffected, got %+v", byID["good"])
	}
}

func TestExecuteParentCancellation(t *testing.T) {
	c := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := c.Execute(ctx, []Task{
		{ID: "t1", Op: func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	})

	if outcomes[0].Status != StatusRejected {
		t.Errorf("cancelled parent context should reject, not timeout: %+v", outcomes[0])
	}
}

func TestExecuteEmptyBatch(t *testing.T) {
	c := New(4)
	outcomes := c.Execute(context.Background(), nil)
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes, got %d", len(outcomes))
	}
}

// A sink that panics must never affect outcomes.
type panickySink struct{ NopSink }

func (panickySink) TaskStatus(string, Status, error) { panic("sink bug") }

func TestExecuteSinkPanicIgnored(t *testing.T) {
	c := New(2, WithSink(panickySink{}))

	outcomes := c.Execute(context.Background(), []Task{
		{ID: "t1", Op: func(ctx context.Context) (any, error) { return "ok", nil }},
	})
	if outcomes[0].Status != StatusFulfilled {
		t.Errorf("sink panic affected outcome: %+v", outcomes[0])
	}
}
