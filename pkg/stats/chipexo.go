package stats

import (
	"math"
	"strconv"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/genomic"
	"github.com/opst/yeastregulatorydb/pkg/table"
)

// columns of ChIP-exo "allevents" tables.
const (
	ChipExoFoldCol = "YPD_log2Fold"
	ChipExoPCol    = "YPD_log2P"
)

// ChipExoHeader is the header of promoter significance tables of ChIP-exo.
var ChipExoHeader = []string{"chr", "start", "end", "name", "strand", "n_sig_peaks", "max_fc", "min_pval"}

// ChipExoPromoterSig scores promoters by the ChIP-exo events overlapping them.
//
// For each promoter, n_sig_peaks is the number of overlapping events,
// max_fc is the largest fold change (2^YPD_log2Fold) and min_pval is the smallest p-value
// (2^-YPD_log2P) among them. Promoters without events get max_fc 0 and min_pval 1.
func ChipExoPromoterSig(events *table.Table, promoters []Promoter, chrmap domain.ChrMap, chrFormat string) (*table.Table, error) {
	if !events.Has(ChipExoFoldCol, ChipExoPCol) {
		return nil, xe.Invalid("file", "chipexo events require columns `%s` and `%s`", ChipExoFoldCol, ChipExoPCol)
	}
	idx, err := newPromoterIndex(promoters, chrmap, chrFormat)
	if err != nil {
		return nil, err
	}

	folds, err := events.Floats(ChipExoFoldCol)
	if err != nil {
		return nil, xe.Invalid(ChipExoFoldCol, "%s", err)
	}
	logps, err := events.Floats(ChipExoPCol)
	if err != nil {
		return nil, xe.Invalid(ChipExoPCol, "%s", err)
	}

	type score struct {
		n     int64
		maxFC float64
		minP  float64
	}
	scores := make([]score, len(promoters))
	for i := range scores {
		scores[i] = score{minP: 1}
	}

	for n := range events.Rows {
		start, ok := genomic.ParseInt(events.Cell(n, "start"))
		if !ok {
			return nil, xe.Invalid("start", "row %d: %q is not an int", n, events.Cell(n, "start"))
		}
		end, ok := genomic.ParseInt(events.Cell(n, "end"))
		if !ok {
			return nil, xe.Invalid("end", "row %d: %q is not an int", n, events.Cell(n, "end"))
		}
		hits, known := idx.overlaps(events.Cell(n, "chr"), start, end)
		if !known {
			return nil, xe.Invalid("chr", "row %d: unknown contig %q", n, events.Cell(n, "chr"))
		}
		fc, p := math.Exp2(folds[n]), math.Exp2(-logps[n])
		for _, i := range hits {
			s := &scores[i]
			s.n += 1
			s.maxFC = math.Max(s.maxFC, fc)
			s.minP = math.Min(s.minP, p)
		}
	}

	out := table.New(ChipExoHeader...)
	for i, p := range promoters {
		s := scores[i]
		out.Append(
			p.Chr, strconv.FormatInt(p.Start, 10), strconv.FormatInt(p.End, 10), p.Name, p.Strand,
			strconv.FormatInt(s.n, 10), formatFloat(s.maxFC), formatFloat(s.minP),
		)
	}
	return out, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
