package garbage_test

import (
	"context"
	"errors"
	"testing"

	kpggbg "github.com/opst/yeastregulatorydb/pkg/db/postgres/garbage"
	"github.com/opst/yeastregulatorydb/pkg/db/postgres/pool/testenv"
	"github.com/opst/yeastregulatorydb/pkg/db/postgres/schema"
)

func TestGarbage(t *testing.T) {
	ctx := context.Background()
	poolBroaker := testenv.NewPoolBroaker(ctx, t)

	t.Run("when keys are put, they are popped in the order", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		if err := schema.New(pool, testenv.SchemaRepository()).Upgrade(ctx); err != nil {
			t.Fatal(err)
		}
		testee := kpggbg.New(pool, pool)
		if err := testee.Put(ctx, "binding/callingcards/1.qbed.gz", "", "binding/callingcards/1.qbed.gz"); err != nil {
			t.Fatal(err)
		}
		if err := testee.Put(ctx, "promotersetsig/callingcards/2.csv.gz"); err != nil {
			t.Fatal(err)
		}

		got := []string{}
		for {
			pop, err := testee.Pop(ctx, func(key string) error {
				got = append(got, key)
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			if !pop {
				break
			}
		}
		want := []string{"binding/callingcards/1.qbed.gz", "promotersetsig/callingcards/2.csv.gz"}
		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("popped = %v, want %v", got, want)
		}
	})

	t.Run("when the callback fails, the key stays", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		if err := schema.New(pool, testenv.SchemaRepository()).Upgrade(ctx); err != nil {
			t.Fatal(err)
		}
		testee := kpggbg.New(pool, pool)
		if err := testee.Put(ctx, "binding/callingcards/1.qbed.gz"); err != nil {
			t.Fatal(err)
		}

		expected := errors.New("fake error")
		pop, err := testee.Pop(ctx, func(string) error { return expected })
		if pop || !errors.Is(err, expected) {
			t.Errorf("unexpected result: (%v, %v)", pop, err)
		}

		var n int
		if err := pool.QueryRow(ctx, `select count(*) from "garbage"`).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("garbage rows = %d, want 1", n)
		}
	})

	t.Run("when there is nothing, the callback is not called", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		if err := schema.New(pool, testenv.SchemaRepository()).Upgrade(ctx); err != nil {
			t.Fatal(err)
		}
		testee := kpggbg.New(pool, pool)
		pop, err := testee.Pop(ctx, func(string) error { return errors.New("callback was used") })
		if pop || err != nil {
			t.Errorf("unexpected result: (%v, %v)", pop, err)
		}
	})
}
