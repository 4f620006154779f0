package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/opst/yeastregulatorydb/internal/testutils/fixtures"
	"github.com/opst/yeastregulatorydb/pkg/blob"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/ingest"

	tctx "github.com/opst/yeastregulatorydb/internal/testutils/context"
)

func TestCreateExpression(t *testing.T) {
	t.Run("when a valid kemmeren file is uploaded, it creates an Expression", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		got, err := e.gate.CreateExpression(ctx, "alice", ingest.ExpressionRequest{
			RegulatorLocusTag: "YKL109W",
			Mechanism:         "tfko",
			Source:            "kemmeren_tfko",
			File: kemmeren(
				t, "hap4_kemmeren.csv.gz",
				[]string{"1", "0.5", "0.4", "10", "0.01"},
				[]string{"2", "-0.1", "-0.1", "9", "0.8"},
			),
		})
		if err != nil {
			t.Fatal(err)
		}
		if got.Control != domain.ControlUndefined || got.Restriction != "undefined" || got.Replicate != 1 {
			t.Errorf("defaults are not applied: %+v", got)
		}
		if want := fmt.Sprintf("expression/kemmeren_tfko/%d.csv.gz", got.ID); got.FileKey != want {
			t.Errorf("file key = %s, want %s", got.FileKey, want)
		}
	})

	t.Run("when mechanism is unknown, it is rejected before the file is read", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		_, err := e.gate.CreateExpression(ctx, "alice", ingest.ExpressionRequest{
			RegulatorSymbol: "HAP4",
			Mechanism:       "crispr",
			Source:          "kemmeren_tfko",
			File:            ingest.Upload{Filename: "broken.csv.gz"},
		})
		verr, ok := xe.AsValidationError(err)
		if !ok || verr.Field != "expression" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when a column of the format is missing, it is rejected", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		_, err := e.gate.CreateExpression(ctx, "alice", ingest.ExpressionRequest{
			RegulatorSymbol: "HAP4",
			Mechanism:       "tfko",
			Source:          "kemmeren_tfko",
			File: ingest.Upload{
				Filename: "hap4.csv.gz",
				Content:  fixtures.Gzip(t, "gene_id,M\n1,0.5\n"),
			},
		})
		verr, ok := xe.AsValidationError(err)
		if !ok || verr.Field != "Madj" {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestCreateBackground(t *testing.T) {
	t.Run("it counts hops without deduplication", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		bg, err := e.gate.CreateBackground(ctx, "alice", ingest.BackgroundRequest{
			Name:       "adh1",
			FileFormat: "qbed",
			File: qbed(
				t, "adh1_background.qbed.gz",
				[]string{"chrI", "100", "101", "1", "+"},
				[]string{"chrI", "100", "101", "1", "-"},
				[]string{"chrM", "7", "8", "3", "+"},
			),
		})
		if err != nil {
			t.Fatal(err)
		}
		if want := (domain.Inserts{Genomic: 2, Mito: 1}); bg.Inserts != want {
			t.Errorf("inserts = %+v, want %+v", bg.Inserts, want)
		}
		if bg.FileFormatID != e.seeded.Formats["qbed"].ID {
			t.Errorf("unexpected format: %d", bg.FileFormatID)
		}
		if want := fmt.Sprintf("callingcardsbackground/%d.qbed.gz", bg.ID); bg.FileKey != want {
			t.Errorf("file key = %s, want %s", bg.FileKey, want)
		}
	})

	t.Run("when the format is not registered, it is a schema error", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		_, err := e.gate.CreateBackground(ctx, "alice", ingest.BackgroundRequest{
			Name:       "adh1",
			FileFormat: "nosuchformat",
			File:       qbed(t, "adh1.qbed.gz", []string{"chrI", "100", "101", "1", "+"}),
		})
		if !errors.Is(err, xe.ErrSchema) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestCreatePromoterSet(t *testing.T) {
	t.Run("when the file is not genomic, it is rejected", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		_, err := e.gate.CreatePromoterSet(ctx, "alice", ingest.PromoterSetRequest{
			Name:       "not_promoters",
			FileFormat: "harbison",
			File:       harbison(t, "x.csv.gz", []string{"1", "2.5", "0.001"}),
		})
		if !errors.Is(err, xe.ErrValidation) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it creates a PromoterSet", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		ps := promoterSet(ctx, t, e)
		if want := fmt.Sprintf("promoterset/%d.bed.gz", ps.ID); ps.FileKey != want {
			t.Errorf("file key = %s, want %s", ps.FileKey, want)
		}
		if ps.Uploader != "alice" {
			t.Errorf("unexpected uploader: %s", ps.Uploader)
		}
	})
}

func TestCreatePromoterSetSig(t *testing.T) {
	t.Run("when the binding is missing, it is rejected", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)
		ps := promoterSet(ctx, t, e)

		_, err := e.gate.CreatePromoterSetSig(ctx, "alice", ingest.PromoterSetSigRequest{
			BindingID:  9999,
			PromoterID: ps.ID,
			File:       harbison(t, "x.csv.gz", []string{"1", "2.5", "0.001"}),
		})
		verr, ok := xe.AsValidationError(err)
		if !ok || verr.Field != "binding" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it creates a PromoterSetSig of an uploaded significance file", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)
		ps := promoterSet(ctx, t, e)

		b, err := e.gate.CreateBinding(ctx, "alice", ingest.BindingRequest{
			RegulatorSymbol: "GCN4",
			Source:          "callingcards",
			File:            qbed(t, "gcn4.qbed.gz", []string{"chrI", "150", "151", "1", "+"}),
		})
		if err != nil {
			t.Fatal(err)
		}

		sig, err := e.gate.CreatePromoterSetSig(ctx, "alice", ingest.PromoterSetSigRequest{
			BindingID:  b.Binding.ID,
			PromoterID: ps.ID,
			FileFormat: "harbison",
			File:       harbison(t, "gcn4_sig.csv.gz", []string{"1", "2.5", "0.001"}),
		})
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("promotersetsig/callingcards/%d.csv.gz", sig.ID); sig.FileKey != want {
			t.Errorf("file key = %s, want %s", sig.FileKey, want)
		}

		_, err = e.gate.CreatePromoterSetSig(ctx, "alice", ingest.PromoterSetSigRequest{
			BindingID:  b.Binding.ID,
			PromoterID: ps.ID,
			FileFormat: "harbison",
			File:       harbison(t, "gcn4_sig.csv.gz", []string{"1", "2.5", "0.001"}),
		})
		if !errors.Is(err, xe.ErrConflict) {
			t.Errorf("duplicated PromoterSetSig: %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	t.Run("it removes the record, derived records and their files", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)
		ps := promoterSet(ctx, t, e)

		b, err := e.gate.CreateBinding(ctx, "alice", ingest.BindingRequest{
			RegulatorSymbol: "GCN4",
			Source:          "callingcards",
			File:            qbed(t, "gcn4.qbed.gz", []string{"chrI", "150", "151", "1", "+"}),
		})
		if err != nil {
			t.Fatal(err)
		}
		sig, err := e.gate.CreatePromoterSetSig(ctx, "alice", ingest.PromoterSetSigRequest{
			BindingID:  b.Binding.ID,
			PromoterID: ps.ID,
			FileFormat: "harbison",
			File:       harbison(t, "gcn4_sig.csv.gz", []string{"1", "2.5", "0.001"}),
		})
		if err != nil {
			t.Fatal(err)
		}

		if err := e.gate.Delete(ctx, domain.CategoryBinding, b.Binding.ID); err != nil {
			t.Fatal(err)
		}

		if _, err := e.db.Bindings().Get(ctx, b.Binding.ID); !errors.Is(err, xe.ErrNotFound) {
			t.Errorf("binding remains: %v", err)
		}
		if _, err := e.db.PromoterSetSigs().Get(ctx, sig.ID); !errors.Is(err, xe.ErrNotFound) {
			t.Errorf("promotersetsig remains: %v", err)
		}
		for _, key := range []string{b.Binding.FileKey, sig.FileKey} {
			if ok, err := e.blobs.Exists(ctx, key); err != nil || ok {
				t.Errorf("file %s remains: (%v, %v)", key, ok, err)
			}
		}
		if ok, _ := e.blobs.Exists(ctx, ps.FileKey); !ok {
			t.Errorf("unrelated file is removed: %s", ps.FileKey)
		}
	})

	t.Run("when the record is missing, it is not found", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		err := e.gate.Delete(ctx, domain.CategoryExpression, 9999)
		if !errors.Is(err, xe.ErrNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestPersistAll(t *testing.T) {
	t.Run("when a record can not be created, no file and no record is left", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		boom := errors.New("boom")
		created := 0
		plan := func(fail bool) ingest.Plan {
			return ingest.Plan{
				Category: domain.CategoryPromoterSet,
				Basename: "p.bed.gz",
				Content:  []byte("content"),
				Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
					if fail {
						return 0, boom
					}
					ps, err := tx.PromoterSets().Create(ctx, domain.PromoterSet{
						Name: "p", FileFormatID: e.seeded.Formats["bed6"].ID, FileKey: tempKey,
					})
					created++
					return ps.ID, err
				},
				SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
					return d.PromoterSets().SetFile(ctx, id, key)
				},
			}
		}

		_, err := ingest.PersistAll(ctx, e.db, e.blobs, []ingest.Plan{plan(false), plan(true)})
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error: %v", err)
		}
		if created != 1 {
			t.Fatalf("the first plan is not tried")
		}
		if keys := e.blobs.Keys(""); len(keys) != 0 {
			t.Errorf("files are left: %v", keys)
		}
		sets, err := e.db.PromoterSets().List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(sets) != 0 {
			t.Errorf("records are left: %+v", sets)
		}
	})

	t.Run("when a file can not be moved after commit, it returns the id and the move is swept later", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		p := ingest.Plan{
			Category: domain.CategoryPromoterSet,
			Basename: "p.bed.gz",
			Content:  []byte("content"),
			Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
				ps, err := tx.PromoterSets().Create(ctx, domain.PromoterSet{
					Name: "p", FileFormatID: e.seeded.Formats["bed6"].ID, FileKey: tempKey,
				})
				return ps.ID, err
			},
			SetFile: func(context.Context, db.Database, int64, string) error {
				return errors.New("fake error")
			},
		}

		id, err := ingest.Persist(ctx, e.db, e.blobs, p)
		if !errors.Is(err, ingest.ErrUnfinalized) || !ingest.Committed(err) {
			t.Fatalf("unexpected error: %v", err)
		}
		if id == 0 {
			t.Fatal("id is dropped")
		}
		ps, err := e.db.PromoterSets().Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if !domain.IsTempKey(ps.FileKey) {
			t.Errorf("file key = %s, want a temporary key", ps.FileKey)
		}

		if ok, err := ingest.Sweep(ctx, e.db, e.blobs); !ok || err != nil {
			t.Fatalf("unexpected sweep: (%v, %v)", ok, err)
		}
		ps, err = e.db.PromoterSets().Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("promoterset/%d.bed.gz", id); ps.FileKey != want {
			t.Errorf("file key = %s, want %s", ps.FileKey, want)
		}
		content, err := blob.ReadAll(ctx, e.blobs, ps.FileKey)
		if err != nil {
			t.Fatal(err)
		}
		if string(content) != "content" {
			t.Errorf("content = %s", content)
		}
		for _, k := range e.blobs.Keys("") {
			if domain.IsTempKey(k) {
				t.Errorf("temporary file remains: %s", k)
			}
		}
		if ok, err := ingest.Sweep(ctx, e.db, e.blobs); ok || err != nil {
			t.Errorf("unexpected sweep: (%v, %v)", ok, err)
		}
	})

	t.Run("Finalize can be retried after it is done", func(t *testing.T) {
		ctx, cancel := tctx.WithTest(context.Background(), t)
		defer cancel()
		e := setup(ctx, t)

		ps := promoterSet(ctx, t, e)
		p := ingest.Plan{
			Category: domain.CategoryPromoterSet,
			Basename: "yiming_promoters.bed.gz",
			SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
				return d.PromoterSets().SetFile(ctx, id, key)
			},
		}
		key, err := ingest.Finalize(ctx, e.db, e.blobs, p, ps.ID, "promoterset/tmp-gone.bed.gz")
		if err != nil {
			t.Fatal(err)
		}
		if key != ps.FileKey {
			t.Errorf("key = %s, want %s", key, ps.FileKey)
		}
	})
}
