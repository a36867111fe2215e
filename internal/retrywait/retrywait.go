// Package retrywait runs an operation on a bounded fixed-interval schedule.
//
// Every polling loop in watchtap (HTTP readiness, in-container file waits,
// watch seeding) goes through Run so attempt counting and timeout accounting
// behave identically everywhere: up to Attempts tries, a constant Interval
// pause between consecutive failures, and no pause after the last try.
package retrywait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded fixed-interval schedule.
type Policy struct {
	Attempts int
	Interval time.Duration
}

// Validate rejects schedules that could spin or never run.
func (p Policy) Validate() error {
	if p.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", p.Attempts)
	}
	if p.Interval < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %s", p.Interval)
	}
	return nil
}

// Budget is the deterministic upper bound a full schedule may consume,
// counting one interval per attempt.
func (p Policy) Budget() time.Duration {
	return time.Duration(p.Attempts) * p.Interval
}

// Result describes a run that ended in success.
//
// Elapsed is budget accounting, not wall clock: attempt k consumed at most
// k intervals of the schedule.
type Result struct {
	Attempt int
	Elapsed time.Duration
}

// ExhaustedError reports that every attempt of a schedule failed.
type ExhaustedError struct {
	Attempts int
	Budget   time.Duration
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts (%s): %v", e.Attempts, e.Budget, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Permanent marks err as non-retryable: Run stops immediately and returns it.
func Permanent(err error) error { return backoff.Permanent(err) }

// Option adjusts how Run executes a schedule.
type Option func(*runner)

// WithTimer replaces the sleep timer between attempts.
// Production: the system timer. Testing: fake.Timer.
func WithTimer(t backoff.Timer) Option {
	return func(r *runner) { r.timer = t }
}

// OnAttempt registers a callback invoked after every attempt, including the
// final one. attempt is 1-based; err is nil on success.
func OnAttempt(fn func(attempt int, err error)) Option {
	return func(r *runner) { r.onAttempt = fn }
}

type runner struct {
	timer     backoff.Timer
	onAttempt func(attempt int, err error)
}

// Run executes op until it succeeds or the schedule is exhausted.
//
// The context cancels the loop between attempts and during sleeps; op is
// responsible for honoring it while running. Exhaustion returns an
// *ExhaustedError wrapping the last failure. An error wrapped with Permanent
// stops the schedule at once and is returned unwrapped.
func Run(ctx context.Context, p Policy, op func(context.Context) error, opts ...Option) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	var r runner
	for _, o := range opts {
		o(&r)
	}

	var (
		attempt   int
		permanent bool
	)
	wrapped := func() error {
		attempt++
		err := op(ctx)
		if r.onAttempt != nil {
			r.onAttempt(attempt, err)
		}
		var perm *backoff.PermanentError
		permanent = errors.As(err, &perm)
		return err
	}

	// Attempts-1 retries after the first try gives exactly Attempts tries,
	// and the schedule stops without sleeping once the last one fails.
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(p.Attempts-1))
	err := backoff.RetryNotifyWithTimer(wrapped, backoff.WithContext(b, ctx), nil, r.timer)
	if err == nil {
		return Result{Attempt: attempt, Elapsed: time.Duration(attempt) * p.Interval}, nil
	}
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
		return Result{}, err
	}
	if permanent {
		return Result{}, err
	}
	return Result{}, &ExhaustedError{Attempts: p.Attempts, Budget: p.Budget(), Last: err}
}
