// Package retry provides a bounded retry-with-exponential-backoff wrapper
// over any fallible operation. It carries no business logic: callers choose
// the attempt budget and delay schedule, and the wrapped operation decides
// what failure means.
package retry

import (
	"context"
	"math"
	"time"
)

// Policy describes a bounded retry schedule. The delay before retrying the
// attempt with index i (0-based) is BaseDelay * Multiplier^i, with no jitter.
// A Policy with Attempts=3, BaseDelay=1s, Multiplier=2 therefore waits
// 1s after the first failure and 2s after the second.
type Policy struct {
	Attempts   int
	BaseDelay  time.Duration
	Multiplier float64

	// sleep is swapped in tests to observe delays without real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Policy with the given budget. Attempts below 1 are treated as 1.
func New(attempts int, baseDelay time.Duration, multiplier float64) Policy {
	if attempts < 1 {
		attempts = 1
	}
	return Policy{Attempts: attempts, BaseDelay: baseDelay, Multiplier: multiplier}
}

// Do runs op up to p.Attempts times, sleeping between attempts per the
// policy's schedule. It returns the first successful result, or the error
// from the final attempt once the budget is exhausted. The context only
// interrupts the waits between attempts, never a running op.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var zero T
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for i := 0; i < p.Attempts; i++ {
		v, err := op()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i == p.Attempts-1 {
			break
		}
		if err := sleep(ctx, p.delay(i)); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// delay returns the wait after the failed attempt with index i.
func (p Policy) delay(i int) time.Duration {
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(i)))
}

// sleepCtx blocks for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
