// Package stages computes records derived from uploaded ones.
//
// Each stage checks whether its output exists before computing it,
// so a stage interrupted or run twice does not duplicate records.
package stages

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/blob"
	"github.com/opst/yeastregulatorydb/pkg/db"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/opst/yeastregulatorydb/pkg/table"
	"github.com/sirupsen/logrus"
)

// names of output formats of promoter significance.
const (
	ChipExoPromoterSig      = "chipexo_promoter_sig"
	CallingCardsPromoterSig = "callingcards_promoter_sig"
	RankResponseFormat      = "rankresponse"
)

type Config struct {
	// ChrFormat is the ChrMap column which chr values of files are written in.
	ChrFormat string

	// PromoterSig maps names of DataSources to names of their promoter significance formats.
	PromoterSig map[string]string

	// BinSize is the width of rank bins of rank response.
	BinSize int

	// SignificanceBins is how many leading rank bins decide significant_response.
	SignificanceBins int

	Log logrus.FieldLogger

	// Now is the clock. time.Now if nil.
	Now func() time.Time
}

type Stages struct {
	db       db.Database
	blobs    blob.Store
	registry *fileformat.Registry
	conf     Config
	log      logrus.FieldLogger
	now      func() time.Time
}

func New(database db.Database, blobs blob.Store, conf Config) *Stages {
	s := &Stages{
		db:       database,
		blobs:    blobs,
		registry: fileformat.NewRegistry(database.FileFormats()),
		conf:     conf,
		log:      conf.Log,
		now:      conf.Now,
	}
	if s.conf.ChrFormat == "" {
		s.conf.ChrFormat = "ucsc"
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// OutputFormatOf returns the name of the promoter significance format of the DataSource, if any.
func (s *Stages) OutputFormatOf(source string) (string, bool) {
	f, ok := s.conf.PromoterSig[source]
	return f, ok
}

// readTable loads the file of key as a table of ff.
func (s *Stages) readTable(ctx context.Context, key string, ff fileformat.FileFormat) (*table.Table, error) {
	content, err := blob.ReadAll(ctx, s.blobs, key)
	if err != nil {
		return nil, err
	}
	t, err := table.ReadGzip(bytes.NewReader(content), ff.Separator.Rune())
	if err != nil {
		return nil, xe.WrapWithNote(key, err)
	}
	return t, nil
}

// done tells whether err means the output has been created by another run.
// committed clears err when records are saved and only moving their files is left to the sweep.
func (s *Stages) committed(err error) error {
	if err != nil && ingest.Committed(err) {
		s.log.WithError(err).Warn("record is saved, but its file is left to be moved")
		return nil
	}
	return err
}

func done(err error) bool {
	return errors.Is(err, xe.ErrConflict)
}
