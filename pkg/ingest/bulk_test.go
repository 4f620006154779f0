package ingest_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/opst/yeastregulatorydb/internal/testutils/fixtures"
	"github.com/opst/yeastregulatorydb/pkg/db"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/ingest"

	tctx "github.com/opst/yeastregulatorydb/internal/testutils/context"
)

func tarOf(t *testing.T, uploads ...ingest.Upload) ingest.Upload {
	t.Helper()
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	for _, u := range uploads {
		if err := tw.WriteHeader(&tar.Header{
			Name: "uploads/" + u.Filename, Mode: 0o644, Size: int64(len(u.Content)), Typeflag: tar.TypeReg,
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(u.Content); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return ingest.Upload{Filename: "uploads.tar", Content: buf.Bytes()}
}

func csvOf(rows ...[]string) ingest.Upload {
	return ingest.Upload{Filename: "manifest.csv", Content: []byte(fixtures.Lines(",", rows...))}
}

func TestBulkBindings(t *testing.T) {
	header := []string{"regulator_symbol", "batch", "replicate", "source", "file"}

	t.Run("when all rows are valid, it creates all of them", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		got, err := e.gate.BulkBindings(ctx, "alice", ingest.Bulk{
			Manifest: csvOf(
				header,
				[]string{"HAP4", "run_1", "1", "callingcards", "hap4.qbed.gz"},
				[]string{"GCN4", "run_1", "1", "callingcards", "gcn4.qbed.gz"},
			),
			Archive: tarOf(
				t,
				qbed(t, "hap4.qbed.gz", []string{"chrI", "1", "2", "1", "+"}),
				qbed(t, "gcn4.qbed.gz", []string{"chrII", "1", "2", "1", "+"}, []string{"chrII", "5", "6", "1", "+"}),
			),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("unexpected result: %+v", got)
		}
		if got[0].Binding.Genomic != 1 || got[1].Binding.Genomic != 2 {
			t.Errorf("unexpected inserts: %+v, %+v", got[0].Binding.Inserts, got[1].Binding.Inserts)
		}
		if keys := tempKeys(e.blobs); len(keys) != 0 {
			t.Errorf("temporary files are left: %v", keys)
		}
	})

	t.Run("when some rows are invalid, it reports all of them and persists nothing", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		_, err := e.gate.BulkBindings(ctx, "alice", ingest.Bulk{
			Manifest: csvOf(
				header,
				[]string{"HAP4", "run_1", "1", "callingcards", "hap4.qbed.gz"},
				[]string{"GCN4", "run_1", "1", "callingcards", "gcn4.qbed.gz"},
				[]string{"GAL4", "run_1", "x", "callingcards", "gal4.qbed.gz"},
				[]string{"LEU3", "run_1", "1", "callingcards", "missing.qbed.gz"},
			),
			Archive: tarOf(
				t,
				qbed(t, "hap4.qbed.gz", []string{"chrI", "1", "2", "1", "+"}),
				qbed(t, "gcn4.qbed.gz", []string{"chrZZZ", "1", "2", "1", "+"}),
				qbed(t, "gal4.qbed.gz", []string{"chrI", "1", "2", "1", "+"}),
			),
		})
		var berr *ingest.BulkError
		if !errors.As(err, &berr) {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(err, xe.ErrValidation) {
			t.Errorf("bulk error is not a validation error")
		}
		rows := []int{}
		for _, r := range berr.Rows {
			rows = append(rows, r.Row)
		}
		if len(rows) != 3 || rows[0] != 1 || rows[1] != 2 || rows[2] != 3 {
			t.Errorf("unexpected rows: %v (%v)", rows, err)
		}

		bindings, err := e.db.Bindings().Find(ctx, db.BindingQuery{})
		if err != nil {
			t.Fatal(err)
		}
		if len(bindings) != 0 {
			t.Errorf("bindings are created: %+v", bindings)
		}
		if keys := e.blobs.Keys(""); len(keys) != 0 {
			t.Errorf("files are stored: %v", keys)
		}
	})

	t.Run("when two rows collide on the natural key, nothing is persisted", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		_, err := e.gate.BulkBindings(ctx, "alice", ingest.Bulk{
			Manifest: csvOf(
				header,
				[]string{"HAP4", "run_1", "1", "callingcards", "a.qbed.gz"},
				[]string{"HAP4", "run_1", "1", "callingcards", "b.qbed.gz"},
			),
			Archive: tarOf(
				t,
				qbed(t, "a.qbed.gz", []string{"chrI", "1", "2", "1", "+"}),
				qbed(t, "b.qbed.gz", []string{"chrI", "1", "2", "1", "+"}),
			),
		})
		if !errors.Is(err, xe.ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
		if keys := e.blobs.Keys(""); len(keys) != 0 {
			t.Errorf("files are stored: %v", keys)
		}
	})

	for name, testcase := range map[string]struct {
		manifest ingest.Upload
		field    string
	}{
		"without file column": {
			manifest: csvOf([]string{"regulator_symbol", "source"}, []string{"HAP4", "callingcards"}),
			field:    "csv_file",
		},
		"listing a file twice": {
			manifest: csvOf(
				header,
				[]string{"HAP4", "run_1", "1", "callingcards", "a.qbed.gz"},
				[]string{"GCN4", "run_1", "1", "callingcards", "a.qbed.gz"},
			),
			field: "csv_file",
		},
	} {
		t.Run("when the manifest is "+name+", it is rejected", func(t *testing.T) {
			ctx, cancel := tctx.WithTest(context.Background(), t)
			defer cancel()
			e := setup(ctx, t)

			_, err := e.gate.BulkBindings(ctx, "alice", ingest.Bulk{
				Manifest: testcase.manifest,
				Archive:  tarOf(t, qbed(t, "a.qbed.gz", []string{"chrI", "1", "2", "1", "+"})),
			})
			verr, ok := xe.AsValidationError(err)
			if !ok || verr.Field != testcase.field {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBulkExpressions(t *testing.T) {
	t.Run("it creates Expressions listed in the manifest", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		got, err := e.gate.BulkExpressions(ctx, "alice", ingest.Bulk{
			Manifest: csvOf(
				[]string{"regulator_locus_tag", "mechanism", "time", "source", "file"},
				[]string{"YKL109W", "tfko", "0", "kemmeren_tfko", "hap4.csv.gz"},
				[]string{"YEL009C", "tfko", "15", "kemmeren_tfko", "gcn4.csv.gz"},
			),
			Archive: tarOf(
				t,
				kemmeren(t, "hap4.csv.gz", []string{"1", "0.5", "0.4", "10", "0.01"}),
				kemmeren(t, "gcn4.csv.gz", []string{"1", "0.5", "0.4", "10", "0.01"}),
			),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[1].Time != 15 {
			t.Errorf("unexpected result: %+v", got)
		}
	})
}
