package memory_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/db/memory"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
)

type fixture struct {
	db         *memory.DB
	format     fileformat.FileFormat
	source     domain.DataSource
	regulator  domain.Regulator
	promoter   domain.PromoterSet
	expression domain.Expression
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	d := memory.New()
	stamp := domain.NewStamp("tester", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	ff, err := d.FileFormats().Create(ctx, fileformat.BED6())
	if err != nil {
		t.Fatal(err)
	}
	ds, err := d.References().CreateDataSource(ctx, domain.DataSource{
		Name: "mitra_cc", Lab: "mitra", Assay: "callingcards", Workflow: "nf_core_callingcards",
		FileFormatID: ff.ID, Stamp: stamp,
	})
	if err != nil {
		t.Fatal(err)
	}
	gf, err := d.References().CreateGenomicFeature(ctx, domain.GenomicFeature{
		Chr: "chrII", Start: 1, End: 100, LocusTag: "YBR289W", Symbol: "SNF5",
	})
	if err != nil {
		t.Fatal(err)
	}
	reg, err := d.References().GetOrCreateRegulator(ctx, gf.ID, stamp)
	if err != nil {
		t.Fatal(err)
	}
	ps, err := d.PromoterSets().Create(ctx, domain.PromoterSet{
		Name: "yiming", FileFormatID: ff.ID, FileKey: "promoterset/1.bed.gz", Stamp: stamp,
	})
	if err != nil {
		t.Fatal(err)
	}
	expr, err := d.Expressions().Create(ctx, domain.Expression{
		RegulatorID: reg.ID, Batch: "b1", Replicate: 1,
		Control: domain.ControlUndefined, Mechanism: domain.MechanismZEV, Restriction: "undefined",
		SourceID: ds.ID, FileKey: "expression/mcisaac/2.csv.gz", Stamp: stamp,
	})
	if err != nil {
		t.Fatal(err)
	}
	return fixture{db: d, format: ff, source: ds, regulator: reg, promoter: ps, expression: expr}
}

func TestBindings(t *testing.T) {
	ctx := context.Background()

	t.Run("when the natural key is taken, it conflicts", func(t *testing.T) {
		f := setup(t)
		b := domain.Binding{RegulatorID: f.regulator.ID, Batch: "b1", Replicate: 1, SourceID: f.source.ID}
		if _, err := f.db.Bindings().Create(ctx, b); err != nil {
			t.Fatal(err)
		}
		if _, err := f.db.Bindings().Create(ctx, b); !errors.Is(err, xe.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it creates unreviewed QC with a Binding", func(t *testing.T) {
		f := setup(t)
		b, err := f.db.Bindings().Create(ctx, domain.Binding{RegulatorID: f.regulator.ID, Batch: "b1", Replicate: 1, SourceID: f.source.ID})
		if err != nil {
			t.Fatal(err)
		}
		qc, err := f.db.Bindings().GetQC(ctx, b.ID)
		if err != nil {
			t.Fatal(err)
		}
		if qc.DataUsable != domain.Unreviewed || qc.RankRecall != domain.Unreviewed {
			t.Errorf("qc = %+v", qc)
		}

		qc.DataUsable = domain.Pass
		prev, err := f.db.Bindings().UpdateQC(ctx, qc)
		if err != nil {
			t.Fatal(err)
		}
		if prev.DataUsable != domain.Unreviewed {
			t.Errorf("previous = %+v", prev)
		}

		found, err := f.db.Bindings().Find(ctx, db.BindingQuery{Assay: "callingcards", DataUsable: domain.Pass})
		if err != nil {
			t.Fatal(err)
		}
		if len(found) != 1 || found[0].ID != b.ID {
			t.Errorf("found = %+v", found)
		}
		found, err = f.db.Bindings().Find(ctx, db.BindingQuery{Assay: "chipexo"})
		if err != nil {
			t.Fatal(err)
		}
		if len(found) != 0 {
			t.Errorf("found = %+v", found)
		}
	})

	t.Run("when it is deleted, derived records go with their keys", func(t *testing.T) {
		f := setup(t)
		b, err := f.db.Bindings().Create(ctx, domain.Binding{
			RegulatorID: f.regulator.ID, Batch: "b1", Replicate: 1, SourceID: f.source.ID,
			FileKey: "binding/mitra_cc/10.qbed.gz",
		})
		if err != nil {
			t.Fatal(err)
		}
		sig, err := f.db.PromoterSetSigs().Create(ctx, domain.PromoterSetSig{
			BindingID: b.ID, PromoterID: f.promoter.ID, FileFormatID: f.format.ID,
			FileKey: "promotersetsig/11.csv.gz",
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.db.RankResponses().Create(ctx, domain.RankResponse{
			PromoterSetSigID: sig.ID, ExpressionID: f.expression.ID, FileFormatID: f.format.ID,
			FileKey: "rankresponse/12.csv.gz",
		}); err != nil {
			t.Fatal(err)
		}

		keys, err := f.db.Bindings().Delete(ctx, b.ID)
		if err != nil {
			t.Fatal(err)
		}
		slices.Sort(keys)
		want := []string{"binding/mitra_cc/10.qbed.gz", "promotersetsig/11.csv.gz", "rankresponse/12.csv.gz"}
		if !slices.Equal(keys, want) {
			t.Errorf("keys = %v, want %v", keys, want)
		}
		if _, err := f.db.PromoterSetSigs().Get(ctx, sig.ID); !errors.Is(err, xe.ErrNotFound) {
			t.Errorf("promotersetsig remains: %v", err)
		}
		rrs, _ := f.db.RankResponses().Find(ctx, db.RankResponseQuery{})
		if len(rrs) != 0 {
			t.Errorf("rankresponses remain: %+v", rrs)
		}
	})
}

func TestPromoterSetSigs(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	b, err := f.db.Bindings().Create(ctx, domain.Binding{RegulatorID: f.regulator.ID, Batch: "b1", Replicate: 1, SourceID: f.source.ID})
	if err != nil {
		t.Fatal(err)
	}

	sig := domain.PromoterSetSig{BindingID: b.ID, PromoterID: f.promoter.ID, FileFormatID: f.format.ID}
	if _, err := f.db.PromoterSetSigs().Create(ctx, sig); err != nil {
		t.Fatal(err)
	}

	t.Run("when (binding, promoter, no background) is taken, it conflicts", func(t *testing.T) {
		if _, err := f.db.PromoterSetSigs().Create(ctx, sig); !errors.Is(err, xe.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it looks up by the exact combination", func(t *testing.T) {
		if _, err := f.db.PromoterSetSigs().Lookup(ctx, b.ID, f.promoter.ID, 0); err != nil {
			t.Error(err)
		}
		if _, err := f.db.PromoterSetSigs().Lookup(ctx, b.ID, f.promoter.ID, 999); !errors.Is(err, xe.ErrNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when the background is missing, it is not found", func(t *testing.T) {
		other := sig
		other.BackgroundID = 999
		if _, err := f.db.PromoterSetSigs().Create(ctx, other); !errors.Is(err, xe.ErrNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestAtomic(t *testing.T) {
	ctx := context.Background()

	t.Run("when fn fails, changes are discarded", func(t *testing.T) {
		f := setup(t)
		boom := errors.New("boom")
		err := f.db.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
			if _, err := tx.Bindings().Create(ctx, domain.Binding{
				RegulatorID: f.regulator.ID, Batch: "b1", Replicate: 1, SourceID: f.source.ID,
			}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error: %v", err)
		}
		found, err := f.db.Bindings().Find(ctx, db.BindingQuery{})
		if err != nil {
			t.Fatal(err)
		}
		if len(found) != 0 {
			t.Errorf("binding remains: %+v", found)
		}
	})

	t.Run("it commits changes of fn, and a nested Atomic joins", func(t *testing.T) {
		f := setup(t)
		err := f.db.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
			return tx.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
				_, err := tx.Bindings().Create(ctx, domain.Binding{
					RegulatorID: f.regulator.ID, Batch: "b1", Replicate: 1, SourceID: f.source.ID,
				})
				return err
			})
		})
		if err != nil {
			t.Fatal(err)
		}
		found, err := f.db.Bindings().Find(ctx, db.BindingQuery{RegulatorID: f.regulator.ID})
		if err != nil {
			t.Fatal(err)
		}
		if len(found) != 1 {
			t.Errorf("found = %+v", found)
		}
	})
}

func TestReferences(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	t.Run("it finds a feature by locus tag or symbol", func(t *testing.T) {
		for name, testcase := range map[string]struct{ locusTag, symbol string }{
			"by locus tag": {locusTag: "YBR289W"},
			"by symbol":    {symbol: "SNF5"},
		} {
			t.Run(name, func(t *testing.T) {
				gf, err := f.db.References().FindGenomicFeature(ctx, testcase.locusTag, testcase.symbol)
				if err != nil {
					t.Fatal(err)
				}
				if gf.LocusTag != "YBR289W" {
					t.Errorf("feature = %+v", gf)
				}
			})
		}
	})

	t.Run("it returns the existing regulator of a feature", func(t *testing.T) {
		reg, err := f.db.References().GetOrCreateRegulator(ctx, f.regulator.GenomicFeatureID, domain.Stamp{})
		if err != nil {
			t.Fatal(err)
		}
		if reg.ID != f.regulator.ID {
			t.Errorf("regulator = %+v, want %+v", reg, f.regulator)
		}
	})
}
