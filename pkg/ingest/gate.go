// Package ingest validates uploaded files and creates records owning them.
//
// An upload goes through an ordered Pipeline of Validators
// (format resolution, decompression, parsing, column validation and hop counting),
// and only a valid upload is persisted, by the two-phase save of PersistAll.
package ingest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/blob"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"github.com/opst/yeastregulatorydb/pkg/metrics"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// ChrFormat is the ChrMap column which chr values of uploads are written in.
	ChrFormat string

	// NullFileSources are names of DataSources whose Binding uploads are
	// pre-computed promoter significance files.
	NullFileSources []string

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics

	// Now is the clock. time.Now if nil.
	Now func() time.Time
}

type Gate struct {
	db       db.Database
	blobs    blob.Store
	registry *fileformat.Registry

	chrFormat string
	nullFile  map[string]struct{}

	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(database db.Database, blobs blob.Store, cfg Config) *Gate {
	g := &Gate{
		db:        database,
		blobs:     blobs,
		registry:  fileformat.NewRegistry(database.FileFormats()),
		chrFormat: cfg.ChrFormat,
		nullFile:  map[string]struct{}{},
		log:       cfg.Log,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
	}
	if g.chrFormat == "" {
		g.chrFormat = "ucsc"
	}
	for _, n := range cfg.NullFileSources {
		g.nullFile[n] = struct{}{}
	}
	if g.log == nil {
		g.log = logrus.StandardLogger()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Registry resolves FileFormats of the database of g.
func (g *Gate) Registry() *fileformat.Registry {
	return g.registry
}

// Pipeline is the validation steps of uploads, in order.
func (g *Gate) Pipeline() Pipeline {
	refs := g.db.References()
	return Pipeline{
		FormatResolver{Registry: g.registry, Log: g.log},
		Decompressor{},
		Parser{},
		ColumnValidator{ChrMaps: refs, ChrFormat: g.chrFormat},
		HopCounter{ChrMaps: refs, ChrFormat: g.chrFormat},
	}
}

// Validate runs the Pipeline on s.
func (g *Gate) Validate(ctx context.Context, s *Subject) error {
	return g.Pipeline().Run(ctx, s)
}

// IsNullFileSource tells whether Binding uploads of the source are significance files.
func (g *Gate) IsNullFileSource(src domain.DataSource) bool {
	_, ok := g.nullFile[src.Name]
	return ok
}

func (g *Gate) observe(entity domain.Category, err error) {
	g.metrics.Ingested(string(entity), outcomeOf(err))
	if err == nil {
		return
	}
	g.log.WithField("entity", entity).WithError(err).Info("upload is rejected")
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.Succeeded
	case errors.Is(err, xe.ErrValidation),
		errors.Is(err, xe.ErrSchema),
		errors.Is(err, xe.ErrConflict),
		errors.Is(err, xe.ErrNotFound):
		return metrics.Rejected
	default:
		return metrics.Failed
	}
}

// source resolves a DataSource by id or name.
func source(ctx context.Context, refs db.ReferenceInterface, nameOrID string) (domain.DataSource, error) {
	nameOrID = strings.TrimSpace(nameOrID)
	if nameOrID == "" {
		return domain.DataSource{}, xe.Invalid("source", "source is required")
	}

	var ds domain.DataSource
	var err error
	if id, perr := strconv.ParseInt(nameOrID, 10, 64); perr == nil {
		ds, err = refs.GetDataSource(ctx, id)
	} else {
		ds, err = refs.GetDataSourceByName(ctx, nameOrID)
	}
	if errors.Is(err, xe.ErrNotFound) {
		return domain.DataSource{}, xe.Invalid("source", "DataSource %q does not exist", nameOrID)
	}
	return ds, err
}

// feature resolves the GenomicFeature of a regulator. Exactly one of locusTag and symbol is required.
func feature(ctx context.Context, refs db.ReferenceInterface, locusTag, symbol string) (domain.GenomicFeature, error) {
	locusTag = strings.TrimSpace(locusTag)
	symbol = strings.TrimSpace(symbol)
	if (locusTag == "") == (symbol == "") {
		return domain.GenomicFeature{}, xe.Invalid(
			"regulator", "exactly one of regulator_locus_tag or regulator_symbol is required",
		)
	}

	gf, err := refs.FindGenomicFeature(ctx, locusTag, symbol)
	if errors.Is(err, xe.ErrNotFound) {
		if locusTag != "" {
			return domain.GenomicFeature{}, xe.Invalid("regulator_locus_tag", "no genomic feature has locus tag %q", locusTag)
		}
		return domain.GenomicFeature{}, xe.Invalid("regulator_symbol", "no genomic feature has symbol %q", symbol)
	}
	return gf, err
}

func registered(ff fileformat.FileFormat) error {
	if ff.ID == 0 {
		return xe.Schema(ff.Name, "fileformat is not registered")
	}
	return nil
}

func orDefault(s string, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func replicate(r int64) (int64, error) {
	switch {
	case r == 0:
		return 1, nil
	case r < 0:
		return 0, xe.Invalid("replicate", "replicate should be positive: %d", r)
	}
	return r, nil
}
