package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

var ErrRetry = errors.New("retry")

// Backoff is a (blocking) function which returns when the next attempt may start.
//
// # Args
//
// - context: context. If context is canceled, Backoff should return ctx.Err().
//
// # Returns
//
// - error: nil if retry, non-nil if not.
type Backoff func(context.Context) error

// Policy describes a bounded exponential retry schedule.
//
// The first retry waits Initial, the n-th waits Initial * Multiplier^(n-1).
type Policy struct {
	// Attempts is the number of retries after the first try.
	Attempts int

	Initial    time.Duration
	Multiplier float64
}

// Delay returns how long to wait before the retry-th retry (1-origin).
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	m := p.Multiplier
	if m <= 0 {
		m = 1
	}
	return time.Duration(float64(p.Initial) * math.Pow(m, float64(retry-1)))
}

// Exhausted reports whether retry-th retry is beyond the budget.
func (p Policy) Exhausted(retry int) bool {
	return p.Attempts < retry
}

// Backoff returns a Backoff which follows the schedule of p and refuses once it is exhausted.
func (p Policy) Backoff() Backoff {
	retry := 0
	return func(ctx context.Context) error {
		retry += 1
		if p.Exhausted(retry) {
			return ErrRetry
		}
		return wait(ctx, p.Delay(retry))
	}
}

// StaticBackoff returns a Backoff function that waits for a fixed interval, forever.
var StaticBackoff = func(interval time.Duration) Backoff {
	return ExponentialBackoff(interval, 1)
}

// ExponentialBackoff returns a Backoff function that waits with exponential backoff.
//
// For N-th call, it waits for `initialInterval * r^N` or context to be done.
var ExponentialBackoff = func(initialInterval time.Duration, r float64) Backoff {
	interval := initialInterval
	return func(ctx context.Context) error {
		if err := wait(ctx, interval); err != nil {
			return err
		}
		interval = time.Duration(int64(float64(interval) * r))
		return nil
	}
}

func wait(ctx context.Context, d time.Duration) error {
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

// Blocking calls f, and calls it again after backoff while retryable(err) holds.
//
// # Args
//
// - ctx: context
//
// - b: backoff. When it returns an error (for example, its budget is exhausted),
// Blocking gives up and returns the last error of f.
//
// - retryable: decides whether an error returned by f is worth another attempt.
// nil means "only ErrRetry".
//
// - f: function to be called.
//
// # Returns
//
// - T: last return value of f
//
// - error: last error returned by f, or the context error.
func Blocking[T any](
	ctx context.Context, b Backoff, retryable func(error) bool, f func() (T, error),
) (T, error) {
	if retryable == nil {
		retryable = func(err error) bool { return errors.Is(err, ErrRetry) }
	}
	for {
		last, err := f()
		if err == nil {
			return last, nil
		}
		if !retryable(err) {
			return last, err
		}
		if berr := b(ctx); berr != nil {
			if errors.Is(berr, ErrRetry) {
				return last, err
			}
			return last, berr
		}
	}
}
