// Package fixtures provides reference data and files for tests.
package fixtures

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"gopkg.in/yaml.v3"
)

//go:embed fileformats.yaml
var fileformatsYaml []byte

// FileFormats returns formats registered in the test database, without ids.
func FileFormats(t *testing.T) []fileformat.FileFormat {
	t.Helper()
	out := []fileformat.FileFormat{}
	if err := yaml.Unmarshal(fileformatsYaml, &out); err != nil {
		t.Fatal(err)
	}
	for _, ff := range out {
		if err := ff.Validate(); err != nil {
			t.Fatal(err)
		}
	}
	return out
}

// yeast contigs: (ucsc name, seqlength).
var yeast = []struct {
	ucsc      string
	refseq    string
	seqlength int64
}{
	{"chrI", "NC_001133.9", 230218},
	{"chrII", "NC_001134.8", 813184},
	{"chrIII", "NC_001135.5", 316620},
	{"chrIV", "NC_001136.10", 1531933},
	{"chrV", "NC_001137.3", 576874},
	{"chrVI", "NC_001138.5", 270161},
	{"chrVII", "NC_001139.9", 1090940},
	{"chrVIII", "NC_001140.6", 562643},
	{"chrIX", "NC_001141.2", 439888},
	{"chrX", "NC_001142.9", 745751},
	{"chrXI", "NC_001143.9", 666816},
	{"chrXII", "NC_001144.5", 1078177},
	{"chrXIII", "NC_001145.3", 924431},
	{"chrXIV", "NC_001146.8", 784333},
	{"chrXV", "NC_001147.6", 1091291},
	{"chrXVI", "NC_001148.4", 948066},
}

// ChrMap is the contig table of S. cerevisiae R64 with the 2-micron plasmid.
func ChrMap() domain.ChrMap {
	out := domain.ChrMap{}
	for n, c := range yeast {
		num := fmt.Sprint(n + 1)
		out = append(out, domain.Contig{
			ID:        int64(n + 1),
			Refseq:    c.refseq,
			Igenomes:  strings.TrimPrefix(c.ucsc, "chr"),
			Ensembl:   strings.TrimPrefix(c.ucsc, "chr"),
			Ucsc:      c.ucsc,
			Mitra:     c.refseq,
			Numbered:  num,
			Chr:       "chr" + num,
			Seqlength: c.seqlength,
			Type:      domain.Genomic,
		})
	}
	out = append(out,
		domain.Contig{
			ID: 17, Refseq: "NC_001224.1", Igenomes: "MT", Ensembl: "Mito", Ucsc: "chrM",
			Mitra: "NC_001224.1", Numbered: "17", Chr: "chr17", Seqlength: 85779, Type: domain.Mito,
		},
		domain.Contig{
			ID: 18, Refseq: "J01347.1", Igenomes: "2-micron", Ensembl: "2-micron", Ucsc: "2-micron",
			Mitra: "J01347.1", Numbered: "18", Chr: "chr18", Seqlength: 6318, Type: domain.Plasmid,
		},
	)
	return out
}

// Gzip compresses content.
func Gzip(t *testing.T, content string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := pgzip.NewWriter(buf)
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// Lines joins rows, each of which is cells joined with sep, with a trailing newline.
func Lines(sep string, rows ...[]string) string {
	b := new(strings.Builder)
	for _, r := range rows {
		b.WriteString(strings.Join(r, sep))
		b.WriteByte('\n')
	}
	return b.String()
}
