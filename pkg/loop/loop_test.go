package loop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/loop"
)

func TestStart(t *testing.T) {
	t.Run("it repeats the step until it breaks", func(t *testing.T) {
		actual, err := loop.Start(context.Background(), 1, func(_ context.Context, v int) (int, loop.Next) {
			if 10 <= v+1 {
				return v + 1, loop.Break(nil)
			}
			return v + 1, loop.Continue(0)
		})
		if err != nil {
			t.Fatal(err)
		}
		if actual != 10 {
			t.Errorf("repeats too much/less. (actual, expected) = (%d, %d)", actual, 10)
		}
	})

	t.Run("when the step breaks with error, it returns the error and the last value", func(t *testing.T) {
		expectedErr := errors.New("queue is gone")
		actual, err := loop.Start(context.Background(), 0, func(_ context.Context, v int) (int, loop.Next) {
			if v == 3 {
				return v, loop.Break(expectedErr)
			}
			return v + 1, loop.Continue(0)
		})
		if !errors.Is(err, expectedErr) {
			t.Errorf("error: (actual, expected) = (%v, %v)", err, expectedErr)
		}
		if actual != 3 {
			t.Errorf("value: %d", actual)
		}
	})

	t.Run("when the context is done before starting, it does nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		actual, err := loop.Start(ctx, 1, func(_ context.Context, v int) (int, loop.Next) {
			t.Error("step is called")
			return v + 1, loop.Continue(0)
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatal(err)
		}
		if actual != 1 {
			t.Errorf("value: %d", actual)
		}
	})

	t.Run("when the context is done during an interval, it stops without waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		begin := time.Now()
		actual, err := loop.Start(ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
			cancel()
			return v + 1, loop.Continue(time.Hour)
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatal(err)
		}
		if actual != 1 {
			t.Errorf("value: %d", actual)
		}
		if elapsed := time.Since(begin); time.Minute < elapsed {
			t.Errorf("loop waits for the interval: %s", elapsed)
		}
	})
}
