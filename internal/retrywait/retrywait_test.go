package retrywait

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"watchtap/internal/adapter/fake"
)

func TestPolicyValidate(t *testing.T) {
	testCases := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{name: "valid", policy: Policy{Attempts: 30, Interval: 5 * time.Second}},
		{name: "single attempt", policy: Policy{Attempts: 1, Interval: time.Second}},
		{name: "zero attempts", policy: Policy{Attempts: 0, Interval: time.Second}, wantErr: true},
		{name: "negative attempts", policy: Policy{Attempts: -3, Interval: time.Second}, wantErr: true},
		{name: "zero interval", policy: Policy{Attempts: 5, Interval: 0}, wantErr: true},
		{name: "sub-second interval", policy: Policy{Attempts: 5, Interval: 200 * time.Millisecond}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestPolicyBudget(t *testing.T) {
	p := Policy{Attempts: 30, Interval: 5 * time.Second}
	if got, want := p.Budget(), 150*time.Second; got != want {
		t.Fatalf("Budget() = %s, want %s", got, want)
	}
}

func TestRunExhaustsSchedule(t *testing.T) {
	timer := fake.NewTimer()
	calls := 0
	boom := errors.New("still down")

	_, err := Run(context.Background(), Policy{Attempts: 4, Interval: 5 * time.Second},
		func(context.Context) error {
			calls++
			return boom
		},
		WithTimer(timer),
	)

	if calls != 4 {
		t.Errorf("op ran %d times, want 4", calls)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Run() error = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 4 {
		t.Errorf("exhausted.Attempts = %d, want 4", exhausted.Attempts)
	}
	if want := 20 * time.Second; exhausted.Budget != want {
		t.Errorf("exhausted.Budget = %s, want %s", exhausted.Budget, want)
	}
	if !errors.Is(err, boom) {
		t.Errorf("exhausted error does not wrap the last failure: %v", err)
	}

	// Three pauses for four attempts: none after the final failure.
	if got := timer.SleepCount(); got != 3 {
		t.Errorf("schedule slept %d times, want 3", got)
	}
	for i, d := range timer.Sleeps() {
		if d != 5*time.Second {
			t.Errorf("sleep %d = %s, want 5s", i, d)
		}
	}
}

func TestRunSucceedsMidSchedule(t *testing.T) {
	timer := fake.NewTimer()
	calls := 0

	res, err := Run(context.Background(), Policy{Attempts: 10, Interval: 2 * time.Second},
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		},
		WithTimer(timer),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if calls != 3 {
		t.Errorf("op ran %d times, want 3", calls)
	}
	if res.Attempt != 3 {
		t.Errorf("res.Attempt = %d, want 3", res.Attempt)
	}
	if want := 6 * time.Second; res.Elapsed != want {
		t.Errorf("res.Elapsed = %s, want %s", res.Elapsed, want)
	}
	if got := timer.SleepCount(); got != 2 {
		t.Errorf("schedule slept %d times, want 2", got)
	}
}

func TestRunSingleAttemptNeverSleeps(t *testing.T) {
	timer := fake.NewTimer()

	_, err := Run(context.Background(), Policy{Attempts: 1, Interval: 5 * time.Second},
		func(context.Context) error { return errors.New("down") },
		WithTimer(timer),
	)

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Run() error = %v, want *ExhaustedError", err)
	}
	if got := timer.SleepCount(); got != 0 {
		t.Errorf("schedule slept %d times, want 0", got)
	}
}

func TestRunFirstTrySuccess(t *testing.T) {
	timer := fake.NewTimer()

	res, err := Run(context.Background(), Policy{Attempts: 30, Interval: 5 * time.Second},
		func(context.Context) error { return nil },
		WithTimer(timer),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Attempt != 1 {
		t.Errorf("res.Attempt = %d, want 1", res.Attempt)
	}
	if want := 5 * time.Second; res.Elapsed != want {
		t.Errorf("res.Elapsed = %s, want %s", res.Elapsed, want)
	}
	if got := timer.SleepCount(); got != 0 {
		t.Errorf("schedule slept %d times, want 0", got)
	}
}

func TestRunPermanentStopsEarly(t *testing.T) {
	timer := fake.NewTimer()
	calls := 0
	fatal := errors.New("no such container")

	_, err := Run(context.Background(), Policy{Attempts: 10, Interval: time.Second},
		func(context.Context) error {
			calls++
			return Permanent(fatal)
		},
		WithTimer(timer),
	)

	if calls != 1 {
		t.Errorf("op ran %d times, want 1", calls)
	}
	if !errors.Is(err, fatal) {
		t.Fatalf("Run() error = %v, want %v", err, fatal)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Errorf("permanent failure classified as exhaustion: %v", err)
	}
}

func TestRunContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Run(ctx, Policy{Attempts: 10, Interval: time.Second},
		func(context.Context) error {
			calls++
			cancel()
			return errors.New("down")
		},
		WithTimer(fake.NewTimer()),
	)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("op ran %d times after cancel, want 1", calls)
	}
}

func TestRunReportsEveryAttempt(t *testing.T) {
	var seen []string
	calls := 0

	_, err := Run(context.Background(), Policy{Attempts: 3, Interval: time.Second},
		func(context.Context) error {
			calls++
			return fmt.Errorf("try %d", calls)
		},
		WithTimer(fake.NewTimer()),
		OnAttempt(func(attempt int, err error) {
			seen = append(seen, fmt.Sprintf("%d:%v", attempt, err))
		}),
	)
	if err == nil {
		t.Fatal("Run() error = nil, want exhaustion")
	}

	want := []string{"1:try 1", "2:try 2", "3:try 3"}
	if len(seen) != len(want) {
		t.Fatalf("observed %d attempts, want %d: %v", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("attempt %d recorded as %q, want %q", i+1, seen[i], want[i])
		}
	}
}

func TestRunRejectsInvalidPolicy(t *testing.T) {
	_, err := Run(context.Background(), Policy{Attempts: 0, Interval: time.Second},
		func(context.Context) error { return nil },
	)
	if err == nil {
		t.Fatal("Run() accepted a zero-attempt schedule")
	}
}
