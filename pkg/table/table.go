// Package table holds delimited text data as rows of named string cells.
//
// Cells keep their textual form; typed views are taken per column when needed.
package table

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type Table struct {
	Header []string
	Rows   [][]string
}

func New(header ...string) *Table {
	return &Table{Header: slices.Clone(header)}
}

// Append adds a row. Its length should equal the header's.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	return slices.Index(t.Header, col)
}

// Has reports whether all of cols are in the header.
func (t *Table) Has(cols ...string) bool {
	for _, c := range cols {
		if t.Index(c) < 0 {
			return false
		}
	}
	return true
}

func (t *Table) Column(col string) ([]string, bool) {
	i := t.Index(col)
	if i < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for n, row := range t.Rows {
		out[n] = row[i]
	}
	return out, true
}

// Cell returns the value of col in the row-th row.
func (t *Table) Cell(row int, col string) string {
	return t.Rows[row][t.Index(col)]
}

// Ints parses col as integers.
func (t *Table) Ints(col string) ([]int64, error) {
	values, ok := t.Column(col)
	if !ok {
		return nil, fmt.Errorf("column %s is missing", col)
	}
	out := make([]int64, len(values))
	for n, v := range values {
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", col, n, err)
		}
		out[n] = i
	}
	return out, nil
}

// Floats parses col as floating point numbers.
func (t *Table) Floats(col string) ([]float64, error) {
	values, ok := t.Column(col)
	if !ok {
		return nil, fmt.Errorf("column %s is missing", col)
	}
	out := make([]float64, len(values))
	for n, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", col, n, err)
		}
		out[n] = f
	}
	return out, nil
}

// Select returns a new table which has only cols, in that order.
//
// Missing columns are an error.
func (t *Table) Select(cols ...string) (*Table, error) {
	idx := make([]int, len(cols))
	for n, c := range cols {
		i := t.Index(c)
		if i < 0 {
			return nil, fmt.Errorf("column %s is missing", c)
		}
		idx[n] = i
	}
	out := New(cols...)
	out.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(idx))
		for n, i := range idx {
			cells[n] = row[i]
		}
		out.Rows = append(out.Rows, cells)
	}
	return out, nil
}

// Concat stacks tables which share the same header.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}
	out := New(tables[0].Header...)
	for _, t := range tables {
		if !slices.Equal(t.Header, out.Header) {
			return nil, fmt.Errorf("header mismatch: %v != %v", t.Header, out.Header)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}

var nulls = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "<NA>": {}, "#N/A": {},
	"NaN": {}, "nan": {}, "-nan": {}, "null": {}, "NULL": {}, "None": {},
}

// IsNull reports whether a cell holds no value.
func IsNull(cell string) bool {
	_, ok := nulls[strings.TrimSpace(cell)]
	return ok
}
