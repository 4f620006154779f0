package genomic_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"github.com/opst/yeastregulatorydb/pkg/genomic"
	"github.com/opst/yeastregulatorydb/pkg/table"
)

var chrmap = domain.ChrMap{
	{ID: 1, Ucsc: "chr1", Numbered: "1", Seqlength: 230218, Type: domain.Genomic},
	{ID: 2, Ucsc: "chr2", Numbered: "2", Seqlength: 813184, Type: domain.Genomic},
	{ID: 17, Ucsc: "chrM", Numbered: "17", Seqlength: 85779, Type: domain.Mito},
	{ID: 18, Ucsc: "plasmid_pRS", Numbered: "18", Seqlength: 5000, Type: domain.Plasmid},
}

var qbed = fileformat.Fields{
	{Name: "chr", Type: fileformat.TypeSpec{Kind: fileformat.Str}},
	{Name: "start", Type: fileformat.TypeSpec{Kind: fileformat.Int}},
	{Name: "end", Type: fileformat.TypeSpec{Kind: fileformat.Int}},
	{Name: "depth", Type: fileformat.TypeSpec{Kind: fileformat.Int}},
	{Name: "strand", Type: fileformat.TypeSpec{Kind: fileformat.Enum, Levels: []string{"+", "-", "*"}}},
}

func qbedOf(rows ...[]string) *table.Table {
	t := table.New("chr", "start", "end", "depth", "strand")
	for _, r := range rows {
		t.Append(r...)
	}
	return t
}

func TestValidateGenomic(t *testing.T) {
	type when struct {
		table *table.Table
	}
	type then struct {
		ok      bool
		field   string
		mention string
	}

	for name, testcase := range map[string]struct {
		when when
		then then
	}{
		"when all coordinates are in bounds, it passes": {
			when: when{table: qbedOf(
				[]string{"chr1", "100", "101", "3", "+"},
				[]string{"chr1", "230218", "230219", "1", "-"},
				[]string{"chrM", "0", "1", "1", "*"},
			)},
			then: then{ok: true},
		},
		"when start is 0, it passes": {
			when: when{table: qbedOf([]string{"chr1", "0", "10", "1", "+"})},
			then: then{ok: true},
		},
		"when chr is not in ChrMap, it names the chromosome": {
			when: when{table: qbedOf(
				[]string{"chrZZZ", "100", "101", "3", "+"},
				[]string{"chr1", "100", "101", "3", "+"},
			)},
			then: then{field: "chr", mention: "chrZZZ"},
		},
		"when start is after end, it fails": {
			when: when{table: qbedOf([]string{"chr1", "200", "101", "3", "+"})},
			then: then{field: "start", mention: "row 0"},
		},
		"when end exceeds seqlength + 1, it fails": {
			when: when{table: qbedOf([]string{"chr1", "230219", "230220", "3", "+"})},
			then: then{field: "end", mention: "(chr1, 230220)"},
		},
		"when start is negative, it fails": {
			when: when{table: qbedOf([]string{"chr2", "-5", "1", "3", "+"})},
			then: then{field: "end", mention: "(chr2, -5)"},
		},
		"when int column has decimals, it fails": {
			when: when{table: qbedOf([]string{"chr1", "1", "2", "1.5", "+"})},
			then: then{field: "depth", mention: "without decimal values"},
		},
		"when enum column has other level, it fails": {
			when: when{table: qbedOf([]string{"chr1", "1", "2", "1", "."})},
			then: then{field: "strand", mention: `"."`},
		},
		"when a coordinate column is missing, it fails": {
			when: when{table: func() *table.Table {
				t := table.New("chr", "start", "depth", "strand")
				t.Append("chr1", "1", "1", "+")
				return t
			}()},
			then: then{field: "chr", mention: "`end`"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := genomic.ValidateGenomic(testcase.when.table, chrmap, "ucsc", qbed)
			if testcase.then.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if !errors.Is(err, xe.ErrValidation) {
				t.Fatalf("expected validation error, but %v", err)
			}
			verr, _ := xe.AsValidationError(err)
			if verr.Field != testcase.then.field {
				t.Errorf("field = %s, want %s", verr.Field, testcase.then.field)
			}
			if msg := strings.Join(verr.Problems, "\n"); !strings.Contains(msg, testcase.then.mention) {
				t.Errorf("problems %q should mention %q", msg, testcase.then.mention)
			}
		})
	}

	t.Run("it coerces integral floats in int columns", func(t *testing.T) {
		tbl := qbedOf([]string{"chr1", "100.0", "101", "3.0", "+"})
		if err := genomic.ValidateGenomic(tbl, chrmap, "ucsc", qbed); err != nil {
			t.Fatal(err)
		}
		if got := tbl.Rows[0]; got[1] != "100" || got[3] != "3" {
			t.Errorf("not coerced: %v", got)
		}
	})

	t.Run("it uses the requested naming convention", func(t *testing.T) {
		tbl := qbedOf([]string{"1", "100", "101", "3", "+"})
		if err := genomic.ValidateGenomic(tbl, chrmap, "numbered", qbed); err != nil {
			t.Fatal(err)
		}
		if err := genomic.ValidateGenomic(tbl, chrmap, "ucsc", qbed); !errors.Is(err, xe.ErrValidation) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	fields := fileformat.Fields{
		{Name: "name", Type: fileformat.TypeSpec{Kind: fileformat.Str}},
		{Name: "log2fc", Type: fileformat.TypeSpec{Kind: fileformat.Float}},
	}

	t.Run("float columns accept empty cells", func(t *testing.T) {
		tbl := table.New("name", "log2fc")
		tbl.Append("YPL248C", "NA")
		tbl.Append("YBR020W", "-1.25")
		if err := genomic.Validate(tbl, fields); err != nil {
			t.Error(err)
		}
	})

	t.Run("declared columns are required", func(t *testing.T) {
		tbl := table.New("name")
		tbl.Append("YPL248C")
		err := genomic.Validate(tbl, fields)
		if verr, ok := xe.AsValidationError(err); !ok || verr.Field != "log2fc" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("non-numbers in float columns are rejected", func(t *testing.T) {
		tbl := table.New("name", "log2fc")
		tbl.Append("YPL248C", "high")
		if err := genomic.Validate(tbl, fields); !errors.Is(err, xe.ErrValidation) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestDedup(t *testing.T) {
	tbl := qbedOf(
		[]string{"chr1", "10", "11", "2", "+"},
		[]string{"chr2", "5", "6", "1", "+"},
		[]string{"chr1", "10", "11", "3", "-"},
		[]string{"chr1", "20", "21", "1", "-"},
		[]string{"chr1", "20", "21", "4", "-"},
	)

	got, err := genomic.Dedup(tbl)
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"chr1", "10", "11", "5", "*"},
		{"chr2", "5", "6", "1", "+"},
		{"chr1", "20", "21", "5", "-"},
	}
	if len(got.Rows) != len(want) {
		t.Fatalf("rows = %v, want %v", got.Rows, want)
	}
	for n := range want {
		if strings.Join(got.Rows[n], ",") != strings.Join(want[n], ",") {
			t.Errorf("row %d = %v, want %v", n, got.Rows[n], want[n])
		}
	}
	if tbl.Rows[0][3] != "2" {
		t.Error("source table is modified")
	}
}

func TestCountHops(t *testing.T) {
	tbl := qbedOf(
		[]string{"chr1", "10", "11", "2", "+"},
		[]string{"chr1", "10", "11", "3", "-"},
		[]string{"chr2", "5", "6", "1", "+"},
		[]string{"chrM", "5", "6", "1", "+"},
	)

	t.Run("it counts rows per contig type, with all types present", func(t *testing.T) {
		got, err := genomic.CountHops(tbl, chrmap, "ucsc", false)
		if err != nil {
			t.Fatal(err)
		}
		if want := (domain.Inserts{Genomic: 3, Mito: 1, Plasmid: 0}); got != want {
			t.Errorf("counts = %+v, want %+v", got, want)
		}
	})

	t.Run("it counts collapsed rows when deduplicating", func(t *testing.T) {
		got, err := genomic.CountHops(tbl, chrmap, "ucsc", true)
		if err != nil {
			t.Fatal(err)
		}
		if want := (domain.Inserts{Genomic: 2, Mito: 1}); got != want {
			t.Errorf("counts = %+v, want %+v", got, want)
		}
	})

	t.Run("counting is stable under deduplication", func(t *testing.T) {
		deduped, err := genomic.Dedup(tbl)
		if err != nil {
			t.Fatal(err)
		}
		a, err := genomic.CountHops(tbl, chrmap, "ucsc", true)
		if err != nil {
			t.Fatal(err)
		}
		b, err := genomic.CountHops(deduped, chrmap, "ucsc", true)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Errorf("count_hops(df) = %+v, count_hops(dedup(df)) = %+v", a, b)
		}
	})

	t.Run("empty table is an error", func(t *testing.T) {
		if _, err := genomic.CountHops(qbedOf(), chrmap, "ucsc", false); !errors.Is(err, xe.ErrValidation) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("table without chr is an error", func(t *testing.T) {
		nochr := table.New("start", "end")
		nochr.Append("1", "2")
		if _, err := genomic.CountHops(nochr, chrmap, "ucsc", false); !errors.Is(err, xe.ErrValidation) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
