package genomic

import (
	"strconv"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/table"
)

// Dedup collapses rows sharing (chr, start, end) into the first of them.
//
// depth of collapsed rows is summed, and strand becomes "*" when the rows disagree.
// Rows keep the order of their first appearance. t is not modified.
func Dedup(t *table.Table) (*table.Table, error) {
	if !IsGenomic(t) {
		return nil, xe.Invalid("chr", "deduplication requires the columns `chr`, `start` and `end`; it has %v", t.Header)
	}
	ichr, istart, iend := t.Index("chr"), t.Index("start"), t.Index("end")
	idepth, istrand := t.Index("depth"), t.Index("strand")

	type key struct{ chr, start, end string }
	type group struct {
		row   []string
		depth int64
	}

	groups := map[key]*group{}
	order := []key{}
	for n, row := range t.Rows {
		k := key{row[ichr], row[istart], row[iend]}
		var depth int64
		if idepth >= 0 {
			d, ok := ParseInt(row[idepth])
			if !ok {
				return nil, xe.Invalid("depth", "row %d: %q is not an int", n, row[idepth])
			}
			depth = d
		}

		g, ok := groups[k]
		if !ok {
			groups[k] = &group{row: append([]string(nil), row...), depth: depth}
			order = append(order, k)
			continue
		}
		g.depth += depth
		if istrand >= 0 && g.row[istrand] != row[istrand] {
			g.row[istrand] = "*"
		}
	}

	out := table.New(t.Header...)
	out.Rows = make([][]string, 0, len(order))
	for _, k := range order {
		g := groups[k]
		if idepth >= 0 {
			g.row[idepth] = strconv.FormatInt(g.depth, 10)
		}
		out.Rows = append(out.Rows, g.row)
	}
	return out, nil
}

// CountHops tallies rows of t per contig type of chrmap.
//
// When dedup is true, rows are collapsed by Dedup before counting.
// Rows on contigs missing in chrmap are not counted.
// All three types are present in the result, even when zero.
func CountHops(t *table.Table, chrmap domain.ChrMap, chrFormat string, dedup bool) (domain.Inserts, error) {
	if t.Len() == 0 {
		return domain.Inserts{}, xe.Invalid("file", "the table is empty")
	}
	if !t.Has("chr") {
		return domain.Inserts{}, xe.Invalid("chr", "the table does not have a column `chr`")
	}
	index, err := chrmap.Index(chrFormat)
	if err != nil {
		return domain.Inserts{}, xe.Wrap(err)
	}

	if dedup {
		d, err := Dedup(t)
		if err != nil {
			return domain.Inserts{}, err
		}
		t = d
	}

	counts := domain.Inserts{}
	chrs, _ := t.Column("chr")
	for _, c := range chrs {
		contig, ok := index[c]
		if !ok {
			continue
		}
		switch contig.Type {
		case domain.Genomic:
			counts.Genomic++
		case domain.Mito:
			counts.Mito++
		case domain.Plasmid:
			counts.Plasmid++
		}
	}
	return counts, nil
}
