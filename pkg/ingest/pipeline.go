package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"github.com/opst/yeastregulatorydb/pkg/genomic"
	"github.com/opst/yeastregulatorydb/pkg/table"
	"github.com/sirupsen/logrus"
)

// State is how far an upload has gone through a Pipeline.
type State string

const (
	Received         State = "received"
	FormatResolved   State = "format_resolved"
	Decompressed     State = "decompressed"
	Parsed           State = "parsed"
	SchemaValidated  State = "schema_validated"
	GenomicValidated State = "genomic_validated"
	Counted          State = "counted"
	Persisted        State = "persisted"
)

// Upload is an uploaded file.
type Upload struct {
	Filename string
	Content  []byte
}

// Subject is an upload under validation. Validators read and fill it.
type Subject struct {
	Upload Upload

	// FileFormat is the name or id of the format given by the uploader. Empty if not given.
	FileFormat string

	// Source is the DataSource of the record, if any.
	Source *domain.DataSource

	// Dedup tells the hop counter to collapse same-coordinate rows.
	Dedup bool

	State   State
	Format  fileformat.FileFormat
	Plain   []byte
	Table   *table.Table
	Inserts *domain.Inserts
}

// Validator is a step of a Pipeline.
type Validator interface {
	Validate(ctx context.Context, s *Subject) error
}

// Pipeline runs Validators in order. The first failure stops it.
type Pipeline []Validator

func (p Pipeline) Run(ctx context.Context, s *Subject) error {
	if s.State == "" {
		s.State = Received
	}
	for _, v := range p {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.Validate(ctx, s); err != nil {
			return xe.WrapWithNote("after "+string(s.State), err)
		}
	}
	return nil
}

// ChrMapSource provides the contig table.
type ChrMapSource interface {
	ChrMap(ctx context.Context) (domain.ChrMap, error)
}

// FormatResolver picks the FileFormat: the explicit one, the one of the DataSource, or BED6.
type FormatResolver struct {
	Registry *fileformat.Registry
	Log      logrus.FieldLogger
}

func (r FormatResolver) Validate(ctx context.Context, s *Subject) error {
	var ff fileformat.FileFormat
	var err error
	switch {
	case s.FileFormat != "":
		ff, err = r.Registry.Lookup(ctx, s.FileFormat)
	case s.Source != nil && s.Source.FileFormatID != 0:
		ff, err = r.Registry.ByID(ctx, s.Source.FileFormatID)
	default:
		r.Log.WithField("file", s.Upload.Filename).
			Warn("no fileformat is given. Assuming default BED6 format file fields")
		ff, err = r.Registry.Lookup(ctx, fileformat.BED6().Name)
		if errors.Is(err, xe.ErrSchema) {
			ff, err = fileformat.BED6(), nil
		}
	}
	if err != nil {
		return err
	}
	if err := ff.Validate(); err != nil {
		return err
	}
	s.Format = ff
	s.State = FormatResolved
	return nil
}

// Decompressor requires a gzip upload and inflates it.
type Decompressor struct{}

func (Decompressor) Validate(_ context.Context, s *Subject) error {
	if len(s.Upload.Content) == 0 {
		return xe.Invalid("file", "File is empty")
	}
	if !strings.HasSuffix(s.Upload.Filename, ".gz") {
		return xe.Invalid(
			"file",
			"all uploaded files are expected to be gzipped with a .gz extension, but it is %q. Gzip it and try again.",
			s.Upload.Filename,
		)
	}
	zr, err := table.Decompress(bytes.NewReader(s.Upload.Content))
	if err != nil {
		return xe.Invalid("file", "The file is not a valid gzipped file: %s", err)
	}
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return xe.Invalid("file", "The file is not a valid gzipped file: %s", err)
	}
	s.Plain = plain
	s.State = Decompressed
	return nil
}

// Parser reads the inflated content as a table with the separator of the format.
type Parser struct{}

func (Parser) Validate(_ context.Context, s *Subject) error {
	t, err := table.Parse(bytes.NewReader(s.Plain), s.Format.Separator.Rune())
	if errors.Is(err, table.ErrEmpty) {
		return xe.Invalid("file", "File is empty")
	}
	if err != nil {
		return xe.Invalid("file", "The file could not be parsed with separator %s: %s", s.Format.Separator.Name(), err)
	}
	if t.Len() == 0 {
		return xe.Invalid("file", "File has no rows")
	}
	s.Table = t
	s.State = Parsed
	return nil
}

// ColumnValidator checks the table against the format; genomic tables are checked against the ChrMap too.
type ColumnValidator struct {
	ChrMaps   ChrMapSource
	ChrFormat string
}

func (c ColumnValidator) Validate(ctx context.Context, s *Subject) error {
	if !genomic.IsGenomic(s.Table) {
		if err := genomic.Validate(s.Table, s.Format.Fields); err != nil {
			return err
		}
		s.State = SchemaValidated
		return nil
	}

	chrmap, err := c.ChrMaps.ChrMap(ctx)
	if err != nil {
		return err
	}
	if err := genomic.ValidateGenomic(s.Table, chrmap, c.ChrFormat, s.Format.Fields); err != nil {
		return err
	}
	s.State = GenomicValidated
	return nil
}

// HopCounter tallies insertions of tables having a depth column.
type HopCounter struct {
	ChrMaps   ChrMapSource
	ChrFormat string
}

func (h HopCounter) Validate(ctx context.Context, s *Subject) error {
	if !s.Table.Has("depth") {
		return nil
	}
	chrmap, err := h.ChrMaps.ChrMap(ctx)
	if err != nil {
		return err
	}
	inserts, err := genomic.CountHops(s.Table, chrmap, h.ChrFormat, s.Dedup)
	if err != nil {
		return err
	}
	s.Inserts = &inserts
	s.State = Counted
	return nil
}
