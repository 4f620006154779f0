// Package loop repeats a step with intervals until it breaks or its context is done.
//
// Task runners poll their queue with it.
package loop

import (
	"context"
	"fmt"
	"time"
)

// Next tells Start what to do after a step.
//
// The zero value is Continue(0).
type Next struct {
	err      error
	quit     bool
	interval time.Duration
}

func (n Next) String() string {
	switch {
	case n.err != nil:
		return fmt.Sprintf("[break] with error: %v", n.err)
	case n.quit:
		return "[break]"
	default:
		return fmt.Sprintf("[continue] after %s", n.interval)
	}
}

// Continue runs the next step after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break stops the loop. Start returns err.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Step receives the value returned by the previous step, or init at first.
type Step[T any] func(context.Context, T) (T, Next)

// Start calls step repeatedly until it returns Break or ctx is done.
//
// It returns the last value of step, and the error given to Break or ctx.Err().
// When ctx is done while waiting for an interval, the loop stops without another step.
func Start[T any](ctx context.Context, init T, step Step[T]) (T, error) {
	if err := ctx.Err(); err != nil {
		return init, err
	}

	value := init
	for {
		v, next := step(ctx, value)
		value = v
		if next.quit {
			return value, next.err
		}

		timer := time.NewTimer(next.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}
