package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/conduit/internal/graph"
	"github.com/ShayCichocki/conduit/internal/pool"
	"github.com/ShayCichocki/conduit/internal/retry"
	"github.com/ShayCichocki/conduit/pkg/models"
)

// TaskExecutor runs a single task given the outputs of its satisfied
// dependencies. The orchestrator treats the execution as opaque; callers
// provide whatever executor fits their task sources.
type TaskExecutor interface {
	Execute(ctx context.Context, task *models.Task, deps map[string]any) (any, error)
}

// TaskExecutorFunc adapts a function to the TaskExecutor interface.
type TaskExecutorFunc func(ctx context.Context, task *models.Task, deps map[string]any) (any, error)

// Execute implements TaskExecutor.
func (f TaskExecutorFunc) Execute(ctx context.Context, task *models.Task, deps map[string]any) (any, error) {
	return f(ctx, task, deps)
}

// planState is the lifecycle state of one plan execution.
type planState string

const (
	statePending   planState = "pending"
	stateRunning   planState = "running"
	stateCompleted planState = "completed"
	stateFailed    planState = "failed"
)

// Orchestrator executes plans. It is stateless between plan executions;
// all per-run state lives in a run value scoped to one Orchestrate call.
type Orchestrator struct {
	executor       TaskExecutor
	maxConcurrency int
	defaultTimeout time.Duration
	retryEnabled   bool
	basePolicy     retry.Policy
	classifier     retry.Classifier
	organizationID string
	eventBuffer    int
	emitter        *EventEmitter
	logger         *DebugLogger
	extraSink      pool.ProgressSink
}

// New creates an Orchestrator with the given executor and options.
func New(executor TaskExecutor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		executor:       executor,
		maxConcurrency: pool.DefaultMaxConcurrency,
		defaultTimeout: 2 * time.Minute,
		retryEnabled:   true,
		basePolicy:     retry.DefaultPolicy(),
		classifier:     retry.DefaultClassifier,
		eventBuffer:    100,
		logger:         NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.emitter = NewEventEmitter(o.eventBuffer)
	return o
}

// Events returns the channel for receiving orchestrator events.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// DroppedEventCount returns the number of events dropped due to a slow
// consumer.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.emitter.DroppedCount()
}

// Close closes the event channel. Call once no further plans will run.
func (o *Orchestrator) Close() {
	o.emitter.Close()
}

// run holds the mutable state of one plan execution. The results map and
// completed set are mutated only between group boundaries, never
// concurrently, so they need no locking.
type run struct {
	plan      *models.Plan
	groups    [][]string
	results   map[string]*models.TaskResult
	completed map[string]bool
	outputs   map[string]any
	state     planState
}

// Orchestrate executes a plan and returns the full execution report.
// It returns an error only for plan-structural problems (cyclic
// dependencies, unknown task IDs, malformed groups) detected before any
// task runs. Task-level failures never produce an error here; the
// report's Success flag and FailedTasks list are the source of truth.
func (o *Orchestrator) Orchestrate(ctx context.Context, plan *models.Plan) (*models.ExecutionReport, error) {
	started := time.Now()

	groups, err := o.validate(plan)
	if err != nil {
		return nil, err
	}

	if plan.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.Timeout)
		defer cancel()
	}

	r := &run{
		plan:      plan,
		groups:    groups,
		results:   make(map[string]*models.TaskResult, len(plan.Tasks)),
		completed: make(map[string]bool),
		outputs:   make(map[string]any),
		state:     stateRunning,
	}

	o.logger.Log("[orchestrate] plan %s: %d tasks in %d groups", plan.ID, len(plan.Tasks), len(groups))
	o.emit(Event{Type: EventJobStarted, PlanID: plan.ID, TotalTasks: len(plan.Tasks)})

	for gi, group := range groups {
		// Plan-level cancellation is honored between groups: no new
		// group starts, and tasks that never ran get synthesized results.
		if ctx.Err() != nil {
			o.recordUnstarted(r, groups[gi:], ctx.Err())
			break
		}

		o.executeGroup(ctx, r, gi, group)

		o.emit(Event{
			Type:           EventJobProgress,
			PlanID:         plan.ID,
			Group:          gi,
			CompletedTasks: len(r.results),
			TotalTasks:     len(plan.Tasks),
		})
	}

	report := o.buildReport(r, time.Since(started))

	if report.Success {
		r.state = stateCompleted
		o.emit(Event{Type: EventJobCompleted, PlanID: plan.ID, Summary: &report.Summary})
	} else {
		r.state = stateFailed
		o.emit(Event{Type: EventJobFailed, PlanID: plan.ID, Summary: &report.Summary})
	}
	o.logger.Log("[orchestrate] plan %s: %s in %s (failed=%d)",
		plan.ID, r.state, report.Duration, len(report.Summary.FailedTasks))

	return report, nil
}

// validate checks plan structure and returns the parallel groups to run.
// Declared groups are kept as-is (after membership validation); otherwise
// groups are derived from the dependency map.
func (o *Orchestrator) validate(plan *models.Plan) ([][]string, error) {
	if plan == nil {
		return nil, errors.New("plan is nil")
	}
	if plan.ID == "" {
		return nil, errors.New("plan has no id")
	}
	if !plan.Merge.Valid() {
		return nil, fmt.Errorf("unknown merge strategy %q", plan.Merge)
	}
	for _, t := range plan.Tasks {
		if t.ID == "" {
			return nil, errors.New("plan contains a task with no id")
		}
	}

	// Builds the graph (catching duplicate and unknown IDs) and proves
	// the dependency map acyclic before anything executes.
	g, err := graph.New(plan.TaskIDs(), plan.DependsOn)
	if err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", plan.ID, err)
	}
	derived, err := g.Layers()
	if err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", plan.ID, err)
	}

	if len(plan.Groups) == 0 {
		return derived, nil
	}

	seen := make(map[string]bool, len(plan.Tasks))
	for _, group := range plan.Groups {
		for _, id := range group {
			if plan.Task(id) == nil {
				return nil, fmt.Errorf("invalid plan %s: group references unknown task %s", plan.ID, id)
			}
			if seen[id] {
				return nil, fmt.Errorf("invalid plan %s: task %s belongs to more than one group", plan.ID, id)
			}
			seen[id] = true
		}
	}
	for _, t := range plan.Tasks {
		if !seen[t.ID] {
			return nil, fmt.Errorf("invalid plan %s: task %s not assigned to any group", plan.ID, t.ID)
		}
	}

	return plan.Groups, nil
}

// executeGroup runs one parallel group to completion, recording exactly
// one result per task in the group.
func (o *Orchestrator) executeGroup(ctx context.Context, r *run, gi int, group []string) {
	o.emit(Event{Type: EventExecutionStarted, PlanID: r.plan.ID, Group: gi, GroupSize: len(group)})
	o.logger.Log("[orchestrate] plan %s: group %d starting (%d tasks)", r.plan.ID, gi, len(group))

	// Attempt metadata is written by the op goroutine, which may outlive
	// its pool slot when a task times out, so access is mutex-guarded.
	metas := make(map[string]*attemptMeta, len(group))
	policies := make(map[string]retry.Policy, len(group))
	var poolTasks []pool.Task

	for _, id := range group {
		task := r.plan.Task(id)
		deps := r.plan.DependsOn[id]

		ok, missing := graph.CanExecute(deps, r.completed)
		if !ok {
			// Fail-forward: the dependent is skipped, siblings still run.
			r.results[id] = &models.TaskResult{
				TaskID: id,
				Source: task.Source,
				Err: &models.StructuredError{
					Code:    models.ErrCodeDependencyFailed,
					Message: fmt.Sprintf("unmet dependencies: %s", strings.Join(missing, ", ")),
				},
			}
			o.logger.Log("[orchestrate] plan %s: task %s skipped, unmet deps %v", r.plan.ID, id, missing)
			o.emit(Event{
				Type:   EventTaskProgress,
				PlanID: r.plan.ID,
				TaskID: id,
				Status: string(pool.StatusRejected),
				Err:    r.results[id].Err,
			})
			continue
		}

		depCtx := make(map[string]any, len(deps))
		for _, depID := range deps {
			depCtx[depID] = r.outputs[depID]
		}

		policy := o.effectivePolicy(r.plan, task)
		policies[id] = policy
		engine := retry.NewEngine(policy, retry.WithClassifier(o.classifier))

		meta := &attemptMeta{}
		metas[id] = meta

		op := func(opCtx context.Context) (any, error) {
			res, err := engine.Do(opCtx, func(attemptCtx context.Context) (any, error) {
				return o.executor.Execute(attemptCtx, task, depCtx)
			})
			meta.record(res)
			if err != nil {
				return nil, err
			}
			return res.Value, nil
		}

		timeout := task.Timeout
		if timeout == 0 {
			timeout = o.defaultTimeout
		}
		poolTasks = append(poolTasks, pool.Task{
			ID:       id,
			Priority: task.Priority,
			Timeout:  timeout,
			Op:       op,
		})
	}

	coordinator := pool.New(o.maxConcurrency, pool.WithSink(o.taskSink(r.plan.ID)))
	outcomes := coordinator.Execute(ctx, poolTasks)

	for _, out := range outcomes {
		task := r.plan.Task(out.ID)
		attempts, retried := metas[out.ID].snapshot()

		res := &models.TaskResult{
			TaskID:   out.ID,
			Source:   task.Source,
			Duration: out.Duration,
			Attempts: attempts,
			Retried:  retried,
		}

		switch out.Status {
		case pool.StatusFulfilled:
			res.Success = true
			res.Output = out.Value
			r.completed[out.ID] = true
			r.outputs[out.ID] = out.Value

		case pool.StatusTimeout:
			res.Err = &models.StructuredError{
				Code:      models.ErrCodeTimeout,
				Message:   fmt.Sprintf("task did not settle within %s", effectiveTimeout(task, o.defaultTimeout)),
				Retryable: policies[out.ID].RetryableKinds[retry.KindTimeout],
			}

		default: // rejected: terminal, retries already exhausted inside the op
			kind := o.classifier(out.Err)
			code := models.ErrCodeExecutionFailed
			if kind == retry.KindTimeout {
				code = models.ErrCodeTimeout
			}
			res.Err = &models.StructuredError{
				Code:      code,
				Message:   out.Err.Error(),
				Retryable: policies[out.ID].RetryableKinds[kind],
			}
		}

		r.results[out.ID] = res
	}

	o.emit(Event{Type: EventExecutionCompleted, PlanID: r.plan.ID, Group: gi, GroupSize: len(group)})
	o.logger.Log("[orchestrate] plan %s: group %d drained", r.plan.ID, gi)
}

// attemptMeta captures retry counters from an op goroutine that may
// outlive its pool slot after a timeout.
type attemptMeta struct {
	mu  sync.Mutex
	res retry.Result
}

func (m *attemptMeta) record(res *retry.Result) {
	m.mu.Lock()
	m.res = *res
	m.mu.Unlock()
}

func (m *attemptMeta) snapshot() (attempts int, retried bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.res.Attempts, m.res.Retried
}

// recordUnstarted synthesizes results for tasks in groups that never ran
// because the plan context ended. Every task still gets exactly one result.
func (o *Orchestrator) recordUnstarted(r *run, remaining [][]string, cause error) {
	code := models.ErrCodeExecutionFailed
	msg := "plan cancelled before task started"
	if errors.Is(cause, context.DeadlineExceeded) {
		code = models.ErrCodeTimeout
		msg = "plan timeout elapsed before task started"
	}

	for _, group := range remaining {
		for _, id := range group {
			if _, exists := r.results[id]; exists {
				continue
			}
			task := r.plan.Task(id)
			r.results[id] = &models.TaskResult{
				TaskID: id,
				Source: task.Source,
				Err:    &models.StructuredError{Code: code, Message: msg},
			}
		}
	}
	o.logger.Log("[orchestrate] plan %s: %s", r.plan.ID, msg)
}

// buildReport assembles the final execution report in plan order.
func (o *Orchestrator) buildReport(r *run, duration time.Duration) *models.ExecutionReport {
	summary := models.ReportSummary{
		TasksBySource: make(map[models.Source]int),
		GroupCount:    len(r.groups),
	}

	ordered := make([]*models.TaskResult, 0, len(r.plan.Tasks))
	for _, t := range r.plan.Tasks {
		summary.TasksBySource[t.Source]++
		res := r.results[t.ID]
		if res == nil {
			// Defensive: a task outside every group cannot happen after
			// validation, but a result must exist for each task.
			res = &models.TaskResult{
				TaskID: t.ID,
				Source: t.Source,
				Err:    &models.StructuredError{Code: models.ErrCodeExecutionFailed, Message: "task was never scheduled"},
			}
			r.results[t.ID] = res
		}
		ordered = append(ordered, res)
		if !res.Success {
			summary.FailedTasks = append(summary.FailedTasks, t.ID)
		}
		if res.Retried {
			summary.RetriedTasks = append(summary.RetriedTasks, t.ID)
		}
	}

	report := &models.ExecutionReport{
		PlanID:   r.plan.ID,
		Success:  len(summary.FailedTasks) == 0,
		Results:  r.results,
		Duration: duration,
		Summary:  summary,
	}

	// Strategy validity was checked up front, so Merge cannot fail here.
	merged, err := Merge(ordered, r.plan.Merge)
	if err == nil {
		report.Merged = merged
	}

	return report
}

// effectivePolicy layers plan and task retry overrides over the global
// policy; later layers win. With retry disabled every task gets exactly
// one attempt.
func (o *Orchestrator) effectivePolicy(plan *models.Plan, task *models.Task) retry.Policy {
	if !o.retryEnabled {
		p := o.basePolicy
		p.MaxAttempts = 1
		return p
	}
	p := applyOverride(o.basePolicy, plan.Retry)
	return applyOverride(p, task.Retry)
}

// applyOverride merges non-zero override fields onto a base policy.
func applyOverride(base retry.Policy, ov *models.RetryOverride) retry.Policy {
	if ov == nil {
		return base
	}
	p := base
	if ov.Preset != "" {
		p = retry.PolicyByName(ov.Preset)
	}
	if ov.MaxAttempts > 0 {
		p.MaxAttempts = ov.MaxAttempts
	}
	if ov.BaseDelay > 0 {
		p.BaseDelay = ov.BaseDelay
	}
	if ov.MaxDelay > 0 {
		p.MaxDelay = ov.MaxDelay
	}
	if ov.BackoffMultiplier > 0 {
		p.BackoffMultiplier = ov.BackoffMultiplier
	}
	if ov.JitterFactor > 0 {
		p.JitterFactor = ov.JitterFactor
	}
	if len(ov.RetryableKinds) > 0 {
		kinds := make(map[retry.Kind]bool, len(ov.RetryableKinds))
		for _, k := range ov.RetryableKinds {
			kinds[retry.Kind(k)] = true
		}
		p.RetryableKinds = kinds
	}
	return p
}

func effectiveTimeout(task *models.Task, fallback time.Duration) time.Duration {
	if task.Timeout > 0 {
		return task.Timeout
	}
	return fallback
}

// emit stamps and sends an event without ever blocking execution.
func (o *Orchestrator) emit(ev Event) {
	ev.OrganizationID = o.organizationID
	ev.Timestamp = time.Now()
	o.emitter.Emit(ev)
}

// taskSink bridges the worker pool's progress callbacks onto the
// orchestrator's event channel and the optional extra sink.
func (o *Orchestrator) taskSink(planID string) pool.ProgressSink {
	return &bridgeSink{o: o, planID: planID}
}

type bridgeSink struct {
	o      *Orchestrator
	planID string
}

func (s *bridgeSink) BatchStarted(total int) {
	if s.o.extraSink != nil {
		s.o.extraSink.BatchStarted(total)
	}
}

func (s *bridgeSink) TaskStatus(id string, status pool.Status, err error) {
	s.o.emit(Event{
		Type:   EventTaskProgress,
		PlanID: s.planID,
		TaskID: id,
		Status: string(status),
		Err:    err,
	})
	if s.o.extraSink != nil {
		s.o.extraSink.TaskStatus(id, status, err)
	}
}

func (s *bridgeSink) BatchCompleted(summary pool.BatchSummary) {
	if s.o.extraSink != nil {
		s.o.extraSink.BatchCompleted(summary)
	}
}
