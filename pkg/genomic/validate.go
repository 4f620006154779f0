// Package genomic checks tabular files against a FileFormat and the ChrMap.
package genomic

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"github.com/opst/yeastregulatorydb/pkg/table"
)

// problems reported per column are truncated to this.
const maxProblems = 5

// Columns which make a table genomic.
var Coordinates = []string{"chr", "start", "end"}

// IsGenomic reports whether t has all of the coordinate columns.
func IsGenomic(t *table.Table) bool {
	return t.Has(Coordinates...)
}

// ParseInt reads cell as an integer. Integral floats like "3.0" are accepted.
func ParseInt(cell string) (int64, bool) {
	cell = strings.TrimSpace(cell)
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// Validate checks columns of t against fields, coercing cells of int columns into the canonical form.
//
// Columns not declared in fields are left as they are.
// t is modified in place.
func Validate(t *table.Table, fields fileformat.Fields) error {
	for _, f := range fields {
		if err := validateColumn(t, f); err != nil {
			return err
		}
	}
	return nil
}

func validateColumn(t *table.Table, f fileformat.Field) error {
	idx := t.Index(f.Name)
	if idx < 0 {
		return xe.Invalid(f.Name, "column %s is missing; the file has %v", f.Name, t.Header)
	}

	var bad []string
	report := func(row int, cell string) {
		if len(bad) < maxProblems {
			bad = append(bad, fmt.Sprintf("row %d: %q", row, cell))
		}
	}

	failed := 0
	for n, row := range t.Rows {
		cell := row[idx]
		switch f.Type.Kind {
		case fileformat.Str:
		case fileformat.Int:
			i, ok := ParseInt(cell)
			if !ok {
				report(n, cell)
				failed++
				continue
			}
			row[idx] = strconv.FormatInt(i, 10)
		case fileformat.Float:
			if table.IsNull(cell) {
				continue
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
				report(n, cell)
				failed++
			}
		case fileformat.Enum:
			if !f.Type.Permits(cell) {
				report(n, cell)
				failed++
			}
		}
	}
	if failed == 0 {
		return nil
	}

	expect := "of type " + f.Type.String()
	switch f.Type.Kind {
	case fileformat.Int:
		expect = "an int, without decimal values or NaN"
	case fileformat.Enum:
		expect = f.Type.String()
	}
	return xe.WrapAsOuter(&xe.ValidationError{
		Field: f.Name,
		Problems: append(
			[]string{fmt.Sprintf("column %s must be %s; %d rows are not", f.Name, expect, failed)},
			bad...,
		),
	}, 1)
}

// ValidateGenomic checks coordinates of t against chrmap, then its columns against fields.
//
// chrFormat is the naming convention of the chr column, one of domain.ChrFormats.
func ValidateGenomic(t *table.Table, chrmap domain.ChrMap, chrFormat string, fields fileformat.Fields) error {
	if !IsGenomic(t) {
		return xe.Invalid(
			"chr", "a genomic file must have at least the columns `chr`, `start` and `end`; it has %v", t.Header,
		)
	}
	index, err := chrmap.Index(chrFormat)
	if err != nil {
		return xe.Wrap(err)
	}

	chrs, _ := t.Column("chr")
	if unknown := unknownChrs(chrs, index); len(unknown) != 0 {
		return xe.Invalid(
			"chr",
			"the following chromosomes in the file do not match any chromosomes in ChrMap for field %s: %s",
			chrFormat, strings.Join(unknown, ", "),
		)
	}

	for _, col := range []string{"start", "end"} {
		if err := validateColumn(t, fileformat.Field{Name: col, Type: fileformat.TypeSpec{Kind: fileformat.Int}}); err != nil {
			return err
		}
	}
	starts, err := t.Ints("start")
	if err != nil {
		return xe.Wrap(err)
	}
	ends, err := t.Ints("end")
	if err != nil {
		return xe.Wrap(err)
	}

	for n := range starts {
		if starts[n] > ends[n] {
			return xe.Invalid(
				"start", "`start` should always be before `end`; row %d has start %d and end %d",
				n, starts[n], ends[n],
			)
		}
	}

	type bounds struct{ min, max int64 }
	byChr := map[string]*bounds{}
	order := []string{}
	for n, chr := range chrs {
		b, ok := byChr[chr]
		if !ok {
			b = &bounds{min: starts[n], max: ends[n]}
			byChr[chr] = b
			order = append(order, chr)
		}
		b.min = min(b.min, starts[n])
		b.max = max(b.max, ends[n])
	}

	var outOfBounds []string
	for _, chr := range order {
		b := byChr[chr]
		if b.min < 0 {
			outOfBounds = append(outOfBounds, fmt.Sprintf("(%s, %d)", chr, b.min))
		}
		if seqlength := index[chr].Seqlength; b.max > seqlength+1 {
			outOfBounds = append(outOfBounds, fmt.Sprintf("(%s, %d)", chr, b.max))
		}
	}
	if len(outOfBounds) != 0 {
		return xe.Invalid(
			"end",
			"the following coordinates exceed the bounds of the corresponding chromosome for field %s: %s",
			chrFormat, strings.Join(outOfBounds, ", "),
		)
	}

	return Validate(t, fields)
}

func unknownChrs(chrs []string, index map[string]domain.Contig) []string {
	seen := map[string]struct{}{}
	unknown := []string{}
	for _, c := range chrs {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		if _, ok := index[c]; !ok {
			unknown = append(unknown, c)
		}
	}
	slices.Sort(unknown)
	return unknown
}
