package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
)

// Admin is the user who seeds reference data.
const Admin = "admin"

// Seeded is reference data put by Seed.
type Seeded struct {
	// by name
	Formats map[string]fileformat.FileFormat

	// by name
	Sources map[string]domain.DataSource

	// by locus tag
	Features map[string]domain.GenomicFeature
}

// Genes are genomic features put by Seed: (locus tag, symbol, ucsc chr, start, end, strand).
var Genes = []struct {
	LocusTag string
	Symbol   string
	Chr      string
	Start    int64
	End      int64
	Strand   string
}{
	{"YKL109W", "HAP4", "chrXI", 234000, 235700, "+"},
	{"YEL009C", "GCN4", "chrV", 138900, 139750, "-"},
	{"YPL248C", "GAL4", "chrXVI", 79700, 82350, "-"},
	{"YLR451W", "LEU3", "chrXII", 1034000, 1036650, "+"},
	{"YAL001C", "TFC3", "chrI", 147590, 151170, "-"},
	{"YAL002W", "VPS8", "chrI", 143700, 147530, "+"},
	{"YAL003W", "EFB1", "chrI", 142170, 143160, "+"},
	{"YAL005C", "SSA1", "chrI", 139500, 141430, "-"},
	{"YAL007C", "ERP2", "chrI", 138340, 138990, "-"},
	{"YAL008W", "FUN14", "chrI", 136910, 137510, "+"},
}

// DataSources are put by Seed: (name, lab, assay, workflow, fileformat name).
var DataSources = []struct {
	Name       string
	Lab        string
	Assay      string
	Workflow   string
	FileFormat string
}{
	{"callingcards", "mitra", "callingcards", "nf_core_callingcards_dev", "qbed"},
	{"chipexo_pugh_allevents", "pugh", "chipexo", "rossi_2021", "chipexo_allevents"},
	{"harbison", "harbison", "chip", "harbison_2004", "harbison"},
	{"kemmeren_tfko", "kemmeren", "tfko", "kemmeren_2014", "kemmeren"},
	{"mcisaac_oe", "mcisaac", "overexpression", "mcisaac_2020", "mcisaac"},
}

// Seed puts formats, the ChrMap, data sources and genomic features into d.
func Seed(ctx context.Context, t *testing.T, d db.Database) Seeded {
	t.Helper()
	stamp := domain.NewStamp(Admin, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	out := Seeded{
		Formats:  map[string]fileformat.FileFormat{},
		Sources:  map[string]domain.DataSource{},
		Features: map[string]domain.GenomicFeature{},
	}
	for _, ff := range FileFormats(t) {
		created, err := d.FileFormats().Create(ctx, ff)
		if err != nil {
			t.Fatal(err)
		}
		out.Formats[created.Name] = created
	}

	if err := d.References().PutChrMap(ctx, ChrMap()); err != nil {
		t.Fatal(err)
	}

	for _, ds := range DataSources {
		created, err := d.References().CreateDataSource(ctx, domain.DataSource{
			Name:         ds.Name,
			Lab:          ds.Lab,
			Assay:        ds.Assay,
			Workflow:     ds.Workflow,
			FileFormatID: out.Formats[ds.FileFormat].ID,
			Description:  "none",
			Citation:     "none",
			Stamp:        stamp,
		})
		if err != nil {
			t.Fatal(err)
		}
		out.Sources[created.Name] = created
	}

	for _, g := range Genes {
		created, err := d.References().CreateGenomicFeature(ctx, domain.GenomicFeature{
			Chr:      g.Chr,
			Start:    g.Start,
			End:      g.End,
			Strand:   g.Strand,
			Type:     "gene",
			Biotype:  "protein_coding",
			LocusTag: g.LocusTag,
			Symbol:   g.Symbol,
			Source:   "sgd",
			Alias:    g.Symbol,
			Note:     "none",
		})
		if err != nil {
			t.Fatal(err)
		}
		out.Features[created.LocusTag] = created
	}
	return out
}
