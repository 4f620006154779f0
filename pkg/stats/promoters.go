// Package stats computes promoter significance and rank response tables.
//
// Every function here is pure: tables in, tables out.
package stats

import (
	"github.com/biogo/store/interval"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/genomic"
	"github.com/opst/yeastregulatorydb/pkg/table"
)

// Promoter is a row of a promoter set. Name is the id of the target GenomicFeature.
type Promoter struct {
	Chr    string
	Start  int64
	End    int64
	Name   string
	Score  string
	Strand string
}

// region is a promoter in an interval tree. Ranges are half open.
type region struct {
	start, end int
	uid        uintptr
}

func (r region) Overlap(b interval.IntRange) bool {
	return r.start < b.End && b.Start < r.end
}

func (r region) ID() uintptr {
	return r.uid
}

func (r region) Range() interval.IntRange {
	return interval.IntRange{Start: r.start, End: r.end}
}

// point is a query of a single insertion or event.
type point struct {
	start, end int
}

func (p point) Overlap(b interval.IntRange) bool {
	return p.start < b.End && b.Start < p.end
}

// promoterIndex finds promoters overlapping a position.
type promoterIndex struct {
	promoters []Promoter
	trees     map[int64]*interval.IntTree // by contig id
	contigs   map[string]domain.Contig
}

// ReadPromoters reads a bed-like table having chr, start, end, name, score and strand.
func ReadPromoters(t *table.Table) ([]Promoter, error) {
	for _, col := range []string{"chr", "start", "end", "name"} {
		if !t.Has(col) {
			return nil, xe.Invalid(col, "promoter set lacks the column `%s`", col)
		}
	}
	hasScore, hasStrand := t.Has("score"), t.Has("strand")

	out := make([]Promoter, 0, t.Len())
	for n := range t.Rows {
		start, ok := genomic.ParseInt(t.Cell(n, "start"))
		if !ok {
			return nil, xe.Invalid("start", "row %d: %q is not an int", n, t.Cell(n, "start"))
		}
		end, ok := genomic.ParseInt(t.Cell(n, "end"))
		if !ok {
			return nil, xe.Invalid("end", "row %d: %q is not an int", n, t.Cell(n, "end"))
		}
		p := Promoter{Chr: t.Cell(n, "chr"), Start: start, End: end, Name: t.Cell(n, "name"), Strand: "*"}
		if hasScore {
			p.Score = t.Cell(n, "score")
		}
		if hasStrand {
			p.Strand = t.Cell(n, "strand")
		}
		out = append(out, p)
	}
	return out, nil
}

func newPromoterIndex(promoters []Promoter, chrmap domain.ChrMap, chrFormat string) (*promoterIndex, error) {
	contigs, err := chrmap.Index(chrFormat)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	idx := &promoterIndex{promoters: promoters, trees: map[int64]*interval.IntTree{}, contigs: contigs}
	for n, p := range promoters {
		c, ok := contigs[p.Chr]
		if !ok {
			return nil, xe.Invalid("chr", "promoter %s is on an unknown contig %q", p.Name, p.Chr)
		}
		tree, ok := idx.trees[c.ID]
		if !ok {
			tree = &interval.IntTree{}
			idx.trees[c.ID] = tree
		}
		if err := tree.Insert(region{start: int(p.Start), end: int(p.End), uid: uintptr(n)}, true); err != nil {
			return nil, xe.Wrap(err)
		}
	}
	for _, tree := range idx.trees {
		tree.AdjustRanges()
	}
	return idx, nil
}

// overlaps returns indices of promoters overlapping [start, end) on chr.
//
// ok is false if chr is not a contig of the chrmap.
func (idx *promoterIndex) overlaps(chr string, start, end int64) (hits []int, ok bool) {
	c, ok := idx.contigs[chr]
	if !ok {
		return nil, false
	}
	tree, found := idx.trees[c.ID]
	if !found {
		return nil, true
	}
	if end <= start {
		end = start + 1
	}
	for _, iv := range tree.Get(point{start: int(start), end: int(end)}) {
		hits = append(hits, int(iv.ID()))
	}
	return hits, true
}

// countHits counts rows of t overlapping each promoter.
//
// Rows on contigs which are not of type genomic are left out of total.
func (idx *promoterIndex) countHits(t *table.Table) (hits []int64, total int64, err error) {
	if !genomic.IsGenomic(t) {
		return nil, 0, xe.Invalid("chr", "the table does not have columns chr, start and end")
	}
	hits = make([]int64, len(idx.promoters))
	for n := range t.Rows {
		start, ok := genomic.ParseInt(t.Cell(n, "start"))
		if !ok {
			return nil, 0, xe.Invalid("start", "row %d: %q is not an int", n, t.Cell(n, "start"))
		}
		end, ok := genomic.ParseInt(t.Cell(n, "end"))
		if !ok {
			return nil, 0, xe.Invalid("end", "row %d: %q is not an int", n, t.Cell(n, "end"))
		}
		chr := t.Cell(n, "chr")
		overlapping, known := idx.overlaps(chr, start, end)
		if !known {
			return nil, 0, xe.Invalid("chr", "row %d: unknown contig %q", n, chr)
		}
		if idx.contigs[chr].Type == domain.Genomic {
			total += 1
		}
		for _, i := range overlapping {
			hits[i] += 1
		}
	}
	return hits, total, nil
}
