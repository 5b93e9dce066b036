package orchestrator

import (
	"time"

	"github.com/ShayCichocki/conduit/internal/pool"
	"github.com/ShayCichocki/conduit/internal/retry"
)

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*Orchestrator)

// WithMaxConcurrency sets the worker pool size for each parallel group.
func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// WithDefaultTimeout sets the timeout applied to tasks that declare none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.defaultTimeout = d }
}

// WithRetryDisabled turns off the retry engine; every task gets exactly
// one attempt.
func WithRetryDisabled() Option {
	return func(o *Orchestrator) { o.retryEnabled = false }
}

// WithRetryPolicy sets the global retry policy. Plan and task overrides
// are layered on top of it.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) { o.basePolicy = p }
}

// WithClassifier sets the error classifier used by the retry engine and
// for mapping terminal errors into the caller-visible taxonomy.
func WithClassifier(c retry.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithOrganizationID tags all events from this orchestrator with a tenant
// identifier.
func WithOrganizationID(id string) Option {
	return func(o *Orchestrator) { o.organizationID = id }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

// WithProgressSink adds an extra sink receiving raw per-task progress from
// the worker pool, alongside the orchestrator's own event channel.
func WithProgressSink(s pool.ProgressSink) Option {
	return func(o *Orchestrator) { o.extraSink = s }
}
