// Package retry wraps asynchronous operations with bounded retry,
// exponential backoff, jitter, and error-kind classification.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy configures retry behavior. The three presets differ only in these
// fields; there are no separate code paths per preset.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Always at least 1.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps every computed delay, including retry-after hints.
	MaxDelay time.Duration
	// BackoffMultiplier is the exponential growth factor. May be
	// fractional for conservative growth.
	BackoffMultiplier float64
	// JitterFactor adds up to delay*JitterFactor of random noise (0..1).
	JitterFactor float64
	// RetryableKinds is the set of error kinds worth retrying.
	RetryableKinds map[Kind]bool
}

// DefaultPolicy returns the balanced preset.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.1,
		RetryableKinds: map[Kind]bool{
			KindTimeout:   true,
			KindRateLimit: true,
			KindNetwork:   true,
		},
	}
}

// AggressivePolicy returns a preset that retries more kinds, more often,
// with shorter delays.
func AggressivePolicy() Policy {
	return Policy{
		MaxAttempts:       5,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 1.5,
		JitterFactor:      0.2,
		RetryableKinds: map[Kind]bool{
			KindTimeout:     true,
			KindRateLimit:   true,
			KindNetwork:     true,
			KindToolFailure: true,
		},
	}
}

// ConservativePolicy returns a preset with few attempts and long delays,
// for downstreams that punish hammering.
func ConservativePolicy() Policy {
	return Policy{
		MaxAttempts:       2,
		BaseDelay:         2 * time.Second,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 3.0,
		JitterFactor:      0,
		RetryableKinds: map[Kind]bool{
			KindRateLimit: true,
			KindNetwork:   true,
		},
	}
}

// PolicyByName returns a named preset. Unknown names fall back to the
// default preset.
func PolicyByName(name string) Policy {
	switch name {
	case "aggressive":
		return AggressivePolicy()
	case "conservative":
		return ConservativePolicy()
	default:
		return DefaultPolicy()
	}
}

// Result records the outcome of a retried operation.
type Result struct {
	// Value is the operation's output on success.
	Value any
	// Attempts is the number of attempts made.
	Attempts int
	// Retried is true when more than one attempt was needed.
	Retried bool
}

// Engine executes operations under a retry policy.
type Engine struct {
	policy    Policy
	classify  Classifier
	randFloat func() float64
	sleep     func(context.Context, time.Duration) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier replaces the default error classifier.
func WithClassifier(c Classifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classify = c
		}
	}
}

// WithRandFloat replaces the jitter randomness source (for tests).
func WithRandFloat(f func() float64) Option {
	return func(e *Engine) { e.randFloat = f }
}

// WithSleep replaces the backoff sleep function (for tests).
func WithSleep(f func(context.Context, time.Duration) error) Option {
	return func(e *Engine) { e.sleep = f }
}

// NewEngine creates an Engine for the given policy. Invalid policy fields
// are clamped to sane values rather than rejected.
func NewEngine(policy Policy, opts ...Option) *Engine {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BackoffMultiplier <= 0 {
		policy.BackoffMultiplier = 1
	}
	if policy.JitterFactor < 0 {
		policy.JitterFactor = 0
	}
	if policy.JitterFactor > 1 {
		policy.JitterFactor = 1
	}

	e := &Engine{
		policy:    policy,
		classify:  DefaultClassifier,
		randFloat: rand.Float64,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy { return e.policy }

// Do invokes op until it succeeds, its error is non-retryable, or attempts
// are exhausted. The returned Result is non-nil even on failure so callers
// can record attempt metadata. The returned error is the operation's last
// error, untouched, so callers can classify it themselves.
func (e *Engine) Do(ctx context.Context, op func(context.Context) (any, error)) (*Result, error) {
	res := &Result{}

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		res.Retried = attempt > 1

		if err := ctx.Err(); err != nil {
			return res, err
		}

		value, err := op(ctx)
		if err == nil {
			res.Value = value
			return res, nil
		}

		kind := e.classify(err)
		if !e.policy.RetryableKinds[kind] || attempt >= e.policy.MaxAttempts {
			return res, err
		}

		delay := e.delayFor(attempt, err)
		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			return res, sleepErr
		}
	}
}

// Delay returns the computed backoff delay after the given attempt
// (1-indexed), without any retry-after hint applied.
func (e *Engine) Delay(attempt int) time.Duration {
	base := float64(e.policy.BaseDelay) * math.Pow(e.policy.BackoffMultiplier, float64(attempt-1))
	jitter := base * e.policy.JitterFactor * e.randFloat()

	delay := time.Duration(base + jitter)
	if delay < 0 {
		delay = 0
	}
	if e.policy.MaxDelay > 0 && delay > e.policy.MaxDelay {
		delay = e.policy.MaxDelay
	}
	return delay
}

// delayFor prefers an explicit retry-after hint over computed backoff.
// Hints are still capped by MaxDelay.
func (e *Engine) delayFor(attempt int, err error) time.Duration {
	if hint := hintFor(err); hint > 0 {
		if e.policy.MaxDelay > 0 && hint > e.policy.MaxDelay {
			return e.policy.MaxDelay
		}
		return hint
	}
	return e.Delay(attempt)
}

// sleepCtx blocks for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
