package stages

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/klauspost/pgzip"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

// CombinedColumns is the header of ExportCombined.
var CombinedColumns = []string{
	"regulator_id", "regulator_locus_tag", "regulator_symbol",
	"target_id", "target_locus_tag", "target_symbol",
	"record_id", "effect", "pvalue",
}

// ExportCombined writes rows of all PromoterSetSig files matching q into w as a gzipped csv.
//
// Rows are read through the identifier, effect and pvalue columns of each file's format.
// A column the format declares as none is written as an empty cell.
func (s *Stages) ExportCombined(ctx context.Context, q db.PromoterSetSigQuery, w io.Writer) error {
	sigs, err := s.db.PromoterSetSigs().Find(ctx, q)
	if err != nil {
		return err
	}

	zw := pgzip.NewWriter(w)
	cw := csv.NewWriter(zw)
	if err := cw.Write(CombinedColumns); err != nil {
		return xe.Wrap(err)
	}

	refs := s.db.References()
	for _, sig := range sigs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sig.FileKey == "" {
			continue
		}
		if err := s.exportSig(ctx, refs, sig, cw); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return xe.Wrap(err)
	}
	return zw.Close()
}

func (s *Stages) exportSig(ctx context.Context, refs db.ReferenceInterface, sig domain.PromoterSetSig, cw *csv.Writer) error {
	ff, err := s.registry.ByID(ctx, sig.FileFormatID)
	if err != nil {
		return err
	}
	binding, err := s.db.Bindings().Get(ctx, sig.BindingID)
	if err != nil {
		return err
	}
	regulator, err := refs.GetRegulator(ctx, binding.RegulatorID)
	if err != nil {
		return err
	}
	t, err := s.readTable(ctx, sig.FileKey, ff)
	if err != nil {
		return err
	}

	var targets []string
	if ff.HasFeatureIdentifier() {
		targets, _ = t.Column(ff.FeatureIdentifierCol)
	}
	ids := []int64{regulator.GenomicFeatureID}
	for _, tg := range targets {
		if id, err := strconv.ParseInt(tg, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	features, err := refs.GetGenomicFeatures(ctx, ids)
	if err != nil {
		return err
	}
	regFeature := features[regulator.GenomicFeatureID]

	cell := func(row int, col string, has bool) string {
		if !has || !t.Has(col) {
			return ""
		}
		return t.Cell(row, col)
	}
	for row := 0; row < t.Len(); row++ {
		target := cell(row, ff.FeatureIdentifierCol, ff.HasFeatureIdentifier())
		var tf domain.GenomicFeature
		if id, err := strconv.ParseInt(target, 10, 64); err == nil {
			tf = features[id]
		}
		if err := cw.Write([]string{
			strconv.FormatInt(regulator.ID, 10), regFeature.LocusTag, regFeature.Symbol,
			target, tf.LocusTag, tf.Symbol,
			strconv.FormatInt(sig.ID, 10),
			cell(row, ff.EffectCol, ff.HasEffect()),
			cell(row, ff.PvalCol, ff.HasPvalue()),
		}); err != nil {
			return xe.Wrap(err)
		}
	}
	return nil
}
