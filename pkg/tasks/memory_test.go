package tasks_test

import (
	"context"
	"testing"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/tasks"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestMemoryQueue(t *testing.T) {
	t.Run("it claims the oldest pending task", func(t *testing.T) {
		ctx := context.Background()
		c := newClock()
		testee := tasks.NewMemory(c.Now)

		first, _ := testee.Submit(ctx, tasks.KindPromoterSignificance, []byte(`{"binding":1}`))
		testee.Submit(ctx, tasks.KindRankResponse, []byte(`{"promotersetsig":2}`))

		got, ok, err := testee.Claim(ctx, time.Minute)
		if err != nil || !ok {
			t.Fatalf("Claim: (%v, %v)", ok, err)
		}
		if got.ID != first.ID || got.Status != tasks.Running || got.Attempts != 1 {
			t.Errorf("unexpected claim: %+v", got)
		}
		if got.LeaseUntil == nil || !got.LeaseUntil.Equal(c.Now().Add(time.Minute)) {
			t.Errorf("unexpected lease: %v", got.LeaseUntil)
		}

		second, ok, err := testee.Claim(ctx, time.Minute)
		if err != nil || !ok || second.Kind != tasks.KindRankResponse {
			t.Errorf("unexpected claim: %+v, (%v, %v)", second, ok, err)
		}
		if _, ok, _ := testee.Claim(ctx, time.Minute); ok {
			t.Error("running tasks are claimed")
		}
	})

	t.Run("when the lease is over, the task is claimed again", func(t *testing.T) {
		ctx := context.Background()
		c := newClock()
		testee := tasks.NewMemory(c.Now)
		submitted, _ := testee.Submit(ctx, tasks.KindPromoterSignificance, []byte(`{}`))
		testee.Claim(ctx, time.Minute)

		c.Advance(time.Minute + time.Second)
		got, ok, err := testee.Claim(ctx, time.Minute)
		if err != nil || !ok {
			t.Fatalf("Claim: (%v, %v)", ok, err)
		}
		if got.ID != submitted.ID || got.Attempts != 2 {
			t.Errorf("unexpected claim: %+v", got)
		}
	})

	t.Run("when a task is retried, it waits until run_after", func(t *testing.T) {
		ctx := context.Background()
		c := newClock()
		testee := tasks.NewMemory(c.Now)
		submitted, _ := testee.Submit(ctx, tasks.KindPromoterSignificance, []byte(`{}`))
		testee.Claim(ctx, time.Minute)

		if err := testee.Retry(ctx, submitted.ID, "connection reset", c.Now().Add(15*time.Second)); err != nil {
			t.Fatal(err)
		}
		if _, ok, _ := testee.ClaimByID(ctx, submitted.ID, time.Minute); ok {
			t.Error("it is claimed before run_after")
		}
		c.Advance(15 * time.Second)
		got, ok, err := testee.ClaimByID(ctx, submitted.ID, time.Minute)
		if err != nil || !ok {
			t.Fatalf("ClaimByID: (%v, %v)", ok, err)
		}
		if got.LastError != "connection reset" || got.Attempts != 2 {
			t.Errorf("unexpected task: %+v", got)
		}
	})

	t.Run("when a task is done, it is not claimed anymore", func(t *testing.T) {
		ctx := context.Background()
		c := newClock()
		testee := tasks.NewMemory(c.Now)
		ok1, _ := testee.Submit(ctx, tasks.KindPromoterSignificance, []byte(`{}`))
		ng, _ := testee.Submit(ctx, tasks.KindPromoterSignificance, []byte(`{}`))
		testee.Claim(ctx, time.Minute)
		testee.Claim(ctx, time.Minute)

		if err := testee.Succeed(ctx, ok1.ID, []byte(`{"ids":[1]}`)); err != nil {
			t.Fatal(err)
		}
		if err := testee.Fail(ctx, ng.ID, "not found"); err != nil {
			t.Fatal(err)
		}
		c.Advance(time.Hour)
		if _, ok, _ := testee.Claim(ctx, time.Minute); ok {
			t.Error("finished task is claimed")
		}

		got, err := testee.Get(ctx, ok1.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != tasks.Succeeded || string(got.Result) != `{"ids":[1]}` || got.LeaseUntil != nil {
			t.Errorf("unexpected task: %+v", got)
		}
	})
}
