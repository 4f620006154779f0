package schema_test

import (
	"context"
	"testing"

	"github.com/opst/yeastregulatorydb/pkg/db/postgres/pool/testenv"
	"github.com/opst/yeastregulatorydb/pkg/db/postgres/schema"
)

func TestSchema_Upgrade(t *testing.T) {
	ctx := context.Background()
	pool := testenv.NewPoolBroaker(ctx, t).GetPool(ctx, t)
	testee := schema.New(pool, testenv.SchemaRepository())

	if err := testee.Upgrade(ctx); err != nil {
		t.Fatal(err)
	}
	after, err := testee.Version(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if after != 3 {
		t.Errorf("version = %d, want 3", after)
	}

	t.Run("it is idempotent", func(t *testing.T) {
		if err := testee.Upgrade(ctx); err != nil {
			t.Fatal(err)
		}
		again, err := testee.Version(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if again != after {
			t.Errorf("version = %d, want %d", again, after)
		}
	})

	t.Run("a context of the up-to-date schema is alive", func(t *testing.T) {
		sctx, cancel := testee.Context(ctx)
		defer cancel()
		if err := sctx.Err(); err != nil {
			t.Errorf("context is done: %v", context.Cause(sctx))
		}
	})
}
