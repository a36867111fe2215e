package fake

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var _ backoff.Timer = (*Timer)(nil)

// Timer implements backoff.Timer without real sleeping: every requested
// pause is recorded and the timer fires immediately. Lets retry schedules
// run to completion in tests while still exposing exactly which sleeps
// they asked for.
type Timer struct {
	mu     sync.Mutex
	sleeps []time.Duration
	c      chan time.Time
}

// NewTimer creates a Timer ready for use with retrywait.WithTimer.
func NewTimer() *Timer {
	return &Timer{c: make(chan time.Time, 1)}
}

func (t *Timer) Start(d time.Duration) {
	t.mu.Lock()
	t.sleeps = append(t.sleeps, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *Timer) Stop() {}

func (t *Timer) C() <-chan time.Time { return t.c }

// Sleeps returns the recorded pause durations in order.
func (t *Timer) Sleeps() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Duration, len(t.sleeps))
	copy(out, t.sleeps)
	return out
}

// SleepCount returns how many pauses the schedule requested.
func (t *Timer) SleepCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sleeps)
}
