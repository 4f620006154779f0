package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/table"
	"github.com/opst/yeastregulatorydb/pkg/utils/archive"
)

// RowError is a problem of a row of a bulk upload manifest.
type RowError struct {
	// Row is the 0-based index of the data row in the manifest.
	Row  int
	File string
	Err  error
}

// BulkError collects problems of all rows of a bulk upload. It is a validation error.
type BulkError struct {
	Rows []RowError
}

func (e *BulkError) Error() string {
	lines := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		lines = append(lines, fmt.Sprintf("row %d (%s): %s", r.Row, r.File, r.Err))
	}
	return "bulk upload is rejected:\n" + strings.Join(lines, "\n")
}

func (e *BulkError) Unwrap() error {
	return xe.ErrValidation
}

// Bulk is a bulk upload: a manifest of records and an archive of their files.
type Bulk struct {
	// Manifest is a csv (optionally gzipped) with a column `file` of basenames in Archive.
	Manifest Upload

	// Archive is a tar or tar.gz.
	Archive Upload
}

type manifest struct {
	t     *table.Table
	files map[string][]byte
}

func (m manifest) cell(row int, col string) string {
	if !m.t.Has(col) {
		return ""
	}
	v := strings.TrimSpace(m.t.Cell(row, col))
	if table.IsNull(v) {
		return ""
	}
	return v
}

func (m manifest) integer(row int, col string) (int64, error) {
	v := m.cell(row, col)
	if v == "" {
		return 0, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, xe.Invalid(col, "not an integer: %q", v)
	}
	return i, nil
}

func (m manifest) number(row int, col string) (float64, error) {
	v := m.cell(row, col)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, xe.Invalid(col, "not a number: %q", v)
	}
	return f, nil
}

// upload is the file of the row.
func (m manifest) upload(row int) (Upload, error) {
	name := m.cell(row, "file")
	content, ok := m.files[name]
	if !ok {
		return Upload{}, xe.Invalid("file", "%q is not found in the archive", name)
	}
	return Upload{Filename: name, Content: content}, nil
}

func readManifest(b Bulk) (manifest, error) {
	var r io.Reader = bytes.NewReader(b.Manifest.Content)
	r, gz, err := table.Sniff(r)
	if errors.Is(err, table.ErrEmpty) {
		return manifest{}, xe.Invalid("csv_file", "manifest is empty")
	}
	if err != nil {
		return manifest{}, xe.Wrap(err)
	}
	if gz {
		zr, err := table.Decompress(r)
		if err != nil {
			return manifest{}, xe.Invalid("csv_file", "%s", err)
		}
		defer zr.Close()
		r = zr
	}
	t, err := table.Parse(r, ',')
	if err != nil {
		return manifest{}, xe.Invalid("csv_file", "%s", err)
	}
	if !t.Has("file") {
		return manifest{}, xe.Invalid("csv_file", "manifest should have a column `file`")
	}
	if t.Len() == 0 {
		return manifest{}, xe.Invalid("csv_file", "manifest has no rows")
	}

	names, _ := t.Column("file")
	seen := map[string]int{}
	for n, name := range names {
		if prev, ok := seen[name]; ok {
			return manifest{}, xe.Invalid("csv_file", "file %q is listed twice, at row %d and %d", name, prev, n)
		}
		seen[name] = n
	}

	files, err := archive.ReadFiles(bytes.NewReader(b.Archive.Content))
	if err != nil {
		return manifest{}, xe.Invalid("tarred_dir", "%s", err)
	}
	return manifest{t: t, files: files}, nil
}

// BulkBindings creates Bindings listed in the manifest.
//
// The manifest has columns of BindingRequest:
// regulator_locus_tag, regulator_symbol, batch, replicate, source, source_orig_id, strain, notes, promoter and file.
//
// All rows are validated before anything is persisted. When any row is invalid,
// it returns *BulkError describing all invalid rows. Valid uploads are saved in one transaction.
func (g *Gate) BulkBindings(ctx context.Context, user string, b Bulk) (_ []BindingCreated, err error) {
	defer func() { g.observe(domain.CategoryBinding, err) }()

	m, err := readManifest(b)
	if err != nil {
		return nil, err
	}

	preps := make([]prepared, 0, m.t.Len())
	rowErrs := []RowError{}
	for row := range m.t.Rows {
		p, err := func() (prepared, error) {
			rep, err := m.integer(row, "replicate")
			if err != nil {
				return prepared{}, err
			}
			promoter, err := m.integer(row, "promoter")
			if err != nil {
				return prepared{}, err
			}
			up, err := m.upload(row)
			if err != nil {
				return prepared{}, err
			}
			return g.prepareBinding(ctx, user, BindingRequest{
				RegulatorLocusTag: m.cell(row, "regulator_locus_tag"),
				RegulatorSymbol:   m.cell(row, "regulator_symbol"),
				Batch:             m.cell(row, "batch"),
				Replicate:         rep,
				Source:            m.cell(row, "source"),
				SourceOrigID:      m.cell(row, "source_orig_id"),
				Strain:            m.cell(row, "strain"),
				Notes:             m.cell(row, "notes"),
				PromoterID:        promoter,
				File:              up,
			})
		}()
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: row, File: m.cell(row, "file"), Err: err})
			continue
		}
		preps = append(preps, p)
	}
	if len(rowErrs) != 0 {
		return nil, &BulkError{Rows: rowErrs}
	}

	plans := make([]Plan, len(preps))
	for n, p := range preps {
		plans[n] = p.plan
	}
	ids, err := PersistAll(ctx, g.db, g.blobs, plans)
	if err = g.committed(err); err != nil {
		return nil, err
	}
	created := make([]BindingCreated, len(ids))
	for n, id := range ids {
		c, err := preps[n].load(ctx, id)
		if err != nil {
			return nil, err
		}
		created[n] = c
	}
	return created, nil
}

// BulkExpressions creates Expressions listed in the manifest.
//
// The manifest has columns of ExpressionRequest:
// regulator_locus_tag, regulator_symbol, batch, replicate, control, mechanism, restriction, time,
// strain, source, notes and file.
//
// Rows are validated and persisted as BulkBindings does.
func (g *Gate) BulkExpressions(ctx context.Context, user string, b Bulk) (_ []domain.Expression, err error) {
	defer func() { g.observe(domain.CategoryExpression, err) }()

	m, err := readManifest(b)
	if err != nil {
		return nil, err
	}

	plans := make([]Plan, 0, m.t.Len())
	rowErrs := []RowError{}
	for row := range m.t.Rows {
		p, err := func() (Plan, error) {
			rep, err := m.integer(row, "replicate")
			if err != nil {
				return Plan{}, err
			}
			tm, err := m.number(row, "time")
			if err != nil {
				return Plan{}, err
			}
			up, err := m.upload(row)
			if err != nil {
				return Plan{}, err
			}
			return g.prepareExpression(ctx, user, ExpressionRequest{
				RegulatorLocusTag: m.cell(row, "regulator_locus_tag"),
				RegulatorSymbol:   m.cell(row, "regulator_symbol"),
				Batch:             m.cell(row, "batch"),
				Replicate:         rep,
				Control:           m.cell(row, "control"),
				Mechanism:         m.cell(row, "mechanism"),
				Restriction:       m.cell(row, "restriction"),
				Time:              tm,
				Strain:            m.cell(row, "strain"),
				Source:            m.cell(row, "source"),
				Notes:             m.cell(row, "notes"),
				File:              up,
			})
		}()
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: row, File: m.cell(row, "file"), Err: err})
			continue
		}
		plans = append(plans, p)
	}
	if len(rowErrs) != 0 {
		return nil, &BulkError{Rows: rowErrs}
	}

	ids, err := PersistAll(ctx, g.db, g.blobs, plans)
	if err = g.committed(err); err != nil {
		return nil, err
	}
	created := make([]domain.Expression, len(ids))
	for n, id := range ids {
		e, err := g.db.Expressions().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		created[n] = e
	}
	return created, nil
}
