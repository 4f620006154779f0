package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/opst/yeastregulatorydb/internal/testutils/fixtures"
	"github.com/opst/yeastregulatorydb/pkg/blob"
	blobmem "github.com/opst/yeastregulatorydb/pkg/blob/memory"
	dbmem "github.com/opst/yeastregulatorydb/pkg/db/memory"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// flakyStore fails Delete while broken is set.
type flakyStore struct {
	*blobmem.Store
	broken bool
	calls  []string
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	f.calls = append(f.calls, key)
	if f.broken {
		return errors.New("fake error")
	}
	return f.Store.Delete(ctx, key)
}

// canonicalBroken fails Put to keys other than temporary ones while broken is set.
type canonicalBroken struct {
	*blobmem.Store
	broken bool
}

func (c *canonicalBroken) Put(ctx context.Context, key string, r io.Reader) error {
	if c.broken && !domain.IsTempKey(key) {
		return errors.New("fake error")
	}
	return c.Store.Put(ctx, key, r)
}

func TestDiscardAndSweep(t *testing.T) {
	t.Run("when a file can not be deleted, it is swept later", func(t *testing.T) {
		ctx := context.Background()
		d := dbmem.New()
		blobs := &flakyStore{Store: blobmem.New(), broken: true}
		for _, k := range []string{"binding/callingcards/1.qbed.gz", "promotersetsig/callingcards/2.csv.gz"} {
			if err := blob.PutBytes(ctx, blobs, k, []byte("content")); err != nil {
				t.Fatal(err)
			}
		}
		logger, hook := logtest.NewNullLogger()

		ingest.Discard(ctx, d, blobs, logger, "binding/callingcards/1.qbed.gz", "promotersetsig/callingcards/2.csv.gz")
		if n := len(hook.AllEntries()); n != 2 {
			t.Errorf("warnings = %d, want 2", n)
		}
		for _, e := range hook.AllEntries() {
			if e.Level != logrus.WarnLevel {
				t.Errorf("unexpected log: %v %s", e.Level, e.Message)
			}
		}

		if swept, err := ingest.Sweep(ctx, d, blobs); swept || err == nil {
			t.Errorf("sweep with broken store: (%v, %v)", swept, err)
		}

		blobs.broken = false
		swept := 0
		for {
			ok, err := ingest.Sweep(ctx, d, blobs)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				break
			}
			swept += 1
		}
		if swept != 2 {
			t.Errorf("swept = %d, want 2", swept)
		}
		if keys := blobs.Keys(""); len(keys) != 0 {
			t.Errorf("files remain: %v", keys)
		}
	})

	t.Run("when files are deleted, nothing is left as garbage", func(t *testing.T) {
		ctx := context.Background()
		d := dbmem.New()
		blobs := &flakyStore{Store: blobmem.New()}
		logger, hook := logtest.NewNullLogger()

		ingest.Discard(ctx, d, blobs, logger, "binding/callingcards/1.qbed.gz")
		if len(hook.AllEntries()) != 0 {
			t.Errorf("unexpected logs: %v", hook.AllEntries())
		}
		if ok, err := ingest.Sweep(ctx, d, blobs); ok || err != nil {
			t.Errorf("unexpected sweep: (%v, %v)", ok, err)
		}
	})
}

func TestRenameSweep(t *testing.T) {
	t.Run("when a file of a created record can not be moved, the record is kept and the file is moved by sweep", func(t *testing.T) {
		ctx := context.Background()
		d := dbmem.New()
		fixtures.Seed(ctx, t, d)
		blobs := &canonicalBroken{Store: blobmem.New(), broken: true}
		logger, hook := logtest.NewNullLogger()
		gate := ingest.New(d, blobs, ingest.Config{
			ChrFormat: "ucsc",
			Log:       logger,
			Now:       func() time.Time { return now },
		})

		ps, err := gate.CreatePromoterSet(ctx, "alice", ingest.PromoterSetRequest{
			Name:       "yiming",
			FileFormat: "bed6",
			File:       bed6(t, "yiming_promoters.bed.gz", []string{"chrI", "100", "200", "1", "0", "+"}),
		})
		if err != nil {
			t.Fatal(err)
		}
		if !domain.IsTempKey(ps.FileKey) {
			t.Errorf("file key = %s, want a temporary key", ps.FileKey)
		}
		if warned := len(hook.AllEntries()); warned == 0 {
			t.Error("no warning is logged")
		}

		if ok, err := ingest.Sweep(ctx, d, blobs); ok || err == nil {
			t.Errorf("sweep with broken store: (%v, %v)", ok, err)
		}

		blobs.broken = false
		if ok, err := ingest.Sweep(ctx, d, blobs); !ok || err != nil {
			t.Fatalf("unexpected sweep: (%v, %v)", ok, err)
		}
		got, err := d.PromoterSets().Get(ctx, ps.ID)
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("promoterset/%d.bed.gz", ps.ID); got.FileKey != want {
			t.Errorf("file key = %s, want %s", got.FileKey, want)
		}
		if keys := blobs.Keys(""); len(keys) != 1 || keys[0] != got.FileKey {
			t.Errorf("unexpected files: %v", keys)
		}
		if ok, err := ingest.Sweep(ctx, d, blobs); ok || err != nil {
			t.Errorf("unexpected sweep: (%v, %v)", ok, err)
		}
	})
}
