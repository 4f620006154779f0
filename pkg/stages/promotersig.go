package stages

import (
	"context"
	"errors"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"github.com/opst/yeastregulatorydb/pkg/genomic"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/opst/yeastregulatorydb/pkg/stats"
	"github.com/opst/yeastregulatorydb/pkg/table"
	"github.com/sirupsen/logrus"
)

type PromoterSigRequest struct {
	BindingID int64
	User      string

	// OutputFormat is the name of the format to produce.
	// If empty, the format configured for the DataSource of the Binding.
	OutputFormat string

	// PromoterID is the PromoterSet to score. 0 means all of them.
	PromoterID int64

	// BackgroundID is the background of calling cards. 0 means all of them.
	BackgroundID int64

	// SkipDedup leaves hops of the Binding as they are.
	// Combined Bindings are deduplicated per replicate already.
	SkipDedup bool
}

// PromoterSignificance scores a Binding on PromoterSets, and returns ids of its PromoterSetSigs.
//
// One PromoterSetSig is made for each PromoterSet, and for calling cards, for each pair of
// PromoterSet and CallingCardsBackground. Existing ones are not computed again.
// A Binding without file has nothing to score; it returns no ids.
func (s *Stages) PromoterSignificance(ctx context.Context, req PromoterSigRequest) ([]int64, error) {
	log := s.log.WithFields(logrus.Fields{"binding_id": req.BindingID})

	binding, err := s.db.Bindings().Get(ctx, req.BindingID)
	if err != nil {
		return nil, err
	}
	if binding.FileKey == "" {
		log.Info("binding has no file. skip promoter significance")
		return nil, nil
	}
	src, err := s.db.References().GetDataSource(ctx, binding.SourceID)
	if err != nil {
		return nil, err
	}

	outName := req.OutputFormat
	if outName == "" {
		name, ok := s.OutputFormatOf(src.Name)
		if !ok {
			return nil, xe.Invalid("output_format", "no promoter significance format is configured for %s", src.Name)
		}
		outName = name
	}
	if outName != ChipExoPromoterSig && outName != CallingCardsPromoterSig {
		return nil, xe.Invalid("output_format", "unknown promoter significance format: %s", outName)
	}
	outFF, err := s.registry.Lookup(ctx, outName)
	if err != nil {
		return nil, err
	}
	bindingFF, err := s.registry.ByID(ctx, src.FileFormatID)
	if err != nil {
		return nil, err
	}

	promotersets, err := s.promoterSets(ctx, req.PromoterID)
	if err != nil {
		return nil, err
	}
	backgrounds := []domain.CallingCardsBackground{{}}
	if outName == CallingCardsPromoterSig {
		if backgrounds, err = s.backgrounds(ctx, req.BackgroundID); err != nil {
			return nil, err
		}
	}
	if len(promotersets) == 0 || len(backgrounds) == 0 {
		log.Warn("no promoter set or background to score with")
		return nil, nil
	}

	chrmap, err := s.db.References().ChrMap(ctx)
	if err != nil {
		return nil, err
	}
	hops, err := s.readTable(ctx, binding.FileKey, bindingFF)
	if err != nil {
		return nil, err
	}
	if outName == CallingCardsPromoterSig && !req.SkipDedup {
		if hops, err = genomic.Dedup(hops); err != nil {
			return nil, err
		}
	}

	ids := []int64{}
	for _, ps := range promotersets {
		psFF, err := s.registry.ByID(ctx, ps.FileFormatID)
		if err != nil {
			return nil, err
		}
		pt, err := s.readTable(ctx, ps.FileKey, psFF)
		if err != nil {
			return nil, err
		}
		promoters, err := stats.ReadPromoters(pt)
		if err != nil {
			return nil, err
		}

		for _, bg := range backgrounds {
			id, err := s.promoterSig(ctx, sigInput{
				req: req, binding: binding, source: src, out: outFF,
				promoterset: ps, promoters: promoters, background: bg,
				hops: hops, chrmap: chrmap,
			})
			if err != nil {
				return ids, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type sigInput struct {
	req         PromoterSigRequest
	binding     domain.Binding
	source      domain.DataSource
	out         fileformat.FileFormat
	promoterset domain.PromoterSet
	promoters   []stats.Promoter
	background  domain.CallingCardsBackground
	hops        *table.Table
	chrmap      domain.ChrMap
}

func (s *Stages) promoterSig(ctx context.Context, in sigInput) (int64, error) {
	log := s.log.WithFields(logrus.Fields{
		"binding_id":    in.binding.ID,
		"promoterset":   in.promoterset.ID,
		"background":    in.background.ID,
		"output_format": in.out.Name,
	})
	sigs := s.db.PromoterSetSigs()
	if found, err := sigs.Lookup(ctx, in.binding.ID, in.promoterset.ID, in.background.ID); err == nil {
		log.WithField("promotersetsig_id", found.ID).Info("promoter significance exists already")
		return found.ID, nil
	} else if !errors.Is(err, xe.ErrNotFound) {
		return 0, err
	}

	var scored *table.Table
	var err error
	switch in.out.Name {
	case ChipExoPromoterSig:
		scored, err = stats.ChipExoPromoterSig(in.hops, in.promoters, in.chrmap, s.conf.ChrFormat)
	case CallingCardsPromoterSig:
		bgFF, ferr := s.registry.ByID(ctx, in.background.FileFormatID)
		if ferr != nil {
			return 0, ferr
		}
		bg, rerr := s.readTable(ctx, in.background.FileKey, bgFF)
		if rerr != nil {
			return 0, rerr
		}
		scored, err = stats.CallingCardsPromoterSig(in.hops, bg, in.promoters, in.chrmap, s.conf.ChrFormat)
	}
	if err != nil {
		return 0, err
	}
	content, err := scored.EncodeGzip(in.out.Separator.Rune())
	if err != nil {
		return 0, xe.Wrap(err)
	}

	sig := domain.PromoterSetSig{
		BindingID:    in.binding.ID,
		PromoterID:   in.promoterset.ID,
		BackgroundID: in.background.ID,
		FileFormatID: in.out.ID,
		Stamp:        domain.NewStamp(in.req.User, s.now()),
	}
	id, err := ingest.Persist(ctx, s.db, s.blobs, ingest.Plan{
		Category:   domain.CategoryPromoterSetSig,
		Identifier: in.source.Name,
		Basename:   in.out.Name + ".csv.gz",
		Content:    content,
		Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
			sg := sig
			sg.FileKey = tempKey
			created, err := tx.PromoterSetSigs().Create(ctx, sg)
			if err != nil {
				return 0, err
			}
			return created.ID, nil
		},
		SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
			return d.PromoterSetSigs().SetFile(ctx, id, key)
		},
	})
	err = s.committed(err)
	if done(err) {
		found, lerr := sigs.Lookup(ctx, in.binding.ID, in.promoterset.ID, in.background.ID)
		if lerr != nil {
			return 0, lerr
		}
		return found.ID, nil
	}
	if err != nil {
		return 0, err
	}
	log.WithField("promotersetsig_id", id).Info("promoter significance is created")
	return id, nil
}

func (s *Stages) promoterSets(ctx context.Context, id int64) ([]domain.PromoterSet, error) {
	if id == 0 {
		return s.db.PromoterSets().List(ctx)
	}
	ps, err := s.db.PromoterSets().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return []domain.PromoterSet{ps}, nil
}

func (s *Stages) backgrounds(ctx context.Context, id int64) ([]domain.CallingCardsBackground, error) {
	if id == 0 {
		return s.db.Backgrounds().List(ctx)
	}
	bg, err := s.db.Backgrounds().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return []domain.CallingCardsBackground{bg}, nil
}
