package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/genomic"
)

type BackgroundRequest struct {
	Name string

	// FileFormat is the name or id of the format. BED6 if empty.
	FileFormat string
	Notes      string
	File       Upload
}

// CreateBackground validates the upload and creates a CallingCardsBackground.
//
// Background hops are counted without deduplication:
// same-coordinate hops of opposite strands come from independent experiments.
func (g *Gate) CreateBackground(ctx context.Context, user string, req BackgroundRequest) (_ domain.CallingCardsBackground, err error) {
	defer func() { g.observe(domain.CategoryBackground, err) }()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CallingCardsBackground{}, xe.Invalid("name", "name is required")
	}
	subject := &Subject{Upload: req.File, FileFormat: req.FileFormat, Dedup: false}
	if err := g.Validate(ctx, subject); err != nil {
		return domain.CallingCardsBackground{}, err
	}
	if err := registered(subject.Format); err != nil {
		return domain.CallingCardsBackground{}, err
	}

	bg := domain.CallingCardsBackground{
		Name:         name,
		FileFormatID: subject.Format.ID,
		Notes:        orDefault(req.Notes, "none"),
		Stamp:        domain.NewStamp(user, g.now()),
	}
	if subject.Inserts != nil {
		bg.Inserts = *subject.Inserts
	}

	id, err := Persist(ctx, g.db, g.blobs, Plan{
		Category: domain.CategoryBackground,
		Basename: req.File.Filename,
		Content:  req.File.Content,
		Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
			b := bg
			b.FileKey = tempKey
			created, err := tx.Backgrounds().Create(ctx, b)
			if err != nil {
				return 0, err
			}
			return created.ID, nil
		},
		SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
			return d.Backgrounds().SetFile(ctx, id, key)
		},
	})
	if err = g.committed(err); err != nil {
		return domain.CallingCardsBackground{}, err
	}
	return g.db.Backgrounds().Get(ctx, id)
}

type PromoterSetRequest struct {
	Name string

	// FileFormat is the name or id of the format. BED6 if empty.
	FileFormat string
	Notes      string
	File       Upload
}

// CreatePromoterSet validates the upload and creates a PromoterSet.
func (g *Gate) CreatePromoterSet(ctx context.Context, user string, req PromoterSetRequest) (_ domain.PromoterSet, err error) {
	defer func() { g.observe(domain.CategoryPromoterSet, err) }()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.PromoterSet{}, xe.Invalid("name", "name is required")
	}
	subject := &Subject{Upload: req.File, FileFormat: req.FileFormat}
	if err := g.Validate(ctx, subject); err != nil {
		return domain.PromoterSet{}, err
	}
	if err := registered(subject.Format); err != nil {
		return domain.PromoterSet{}, err
	}
	if !genomic.IsGenomic(subject.Table) {
		return domain.PromoterSet{}, xe.Invalid("file", "promoter sets should have columns chr, start and end")
	}

	ps := domain.PromoterSet{
		Name:         name,
		FileFormatID: subject.Format.ID,
		Notes:        orDefault(req.Notes, "none"),
		Stamp:        domain.NewStamp(user, g.now()),
	}
	id, err := Persist(ctx, g.db, g.blobs, Plan{
		Category: domain.CategoryPromoterSet,
		Basename: req.File.Filename,
		Content:  req.File.Content,
		Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
			p := ps
			p.FileKey = tempKey
			created, err := tx.PromoterSets().Create(ctx, p)
			if err != nil {
				return 0, err
			}
			return created.ID, nil
		},
		SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
			return d.PromoterSets().SetFile(ctx, id, key)
		},
	})
	if err = g.committed(err); err != nil {
		return domain.PromoterSet{}, err
	}
	return g.db.PromoterSets().Get(ctx, id)
}

type PromoterSetSigRequest struct {
	BindingID    int64
	PromoterID   int64
	BackgroundID int64

	// FileFormat is the name or id of the format.
	// If empty, the format of the DataSource of the Binding is used.
	FileFormat string
	File       Upload
}

// CreatePromoterSetSig validates an uploaded significance file and creates a PromoterSetSig.
func (g *Gate) CreatePromoterSetSig(ctx context.Context, user string, req PromoterSetSigRequest) (_ domain.PromoterSetSig, err error) {
	defer func() { g.observe(domain.CategoryPromoterSetSig, err) }()

	binding, err := g.db.Bindings().Get(ctx, req.BindingID)
	if errors.Is(err, xe.ErrNotFound) {
		return domain.PromoterSetSig{}, xe.Invalid("binding", "Binding %d does not exist", req.BindingID)
	} else if err != nil {
		return domain.PromoterSetSig{}, err
	}
	if _, err := g.db.PromoterSets().Get(ctx, req.PromoterID); errors.Is(err, xe.ErrNotFound) {
		return domain.PromoterSetSig{}, xe.Invalid("promoter", "PromoterSet %d does not exist", req.PromoterID)
	} else if err != nil {
		return domain.PromoterSetSig{}, err
	}
	if req.BackgroundID != 0 {
		if _, err := g.db.Backgrounds().Get(ctx, req.BackgroundID); errors.Is(err, xe.ErrNotFound) {
			return domain.PromoterSetSig{}, xe.Invalid("background", "CallingCardsBackground %d does not exist", req.BackgroundID)
		} else if err != nil {
			return domain.PromoterSetSig{}, err
		}
	}
	src, err := g.db.References().GetDataSource(ctx, binding.SourceID)
	if err != nil {
		return domain.PromoterSetSig{}, err
	}

	subject := &Subject{Upload: req.File, FileFormat: req.FileFormat, Source: &src}
	if err := g.Validate(ctx, subject); err != nil {
		return domain.PromoterSetSig{}, err
	}
	if err := registered(subject.Format); err != nil {
		return domain.PromoterSetSig{}, err
	}

	sig := domain.PromoterSetSig{
		BindingID:    binding.ID,
		PromoterID:   req.PromoterID,
		BackgroundID: req.BackgroundID,
		FileFormatID: subject.Format.ID,
		Stamp:        domain.NewStamp(user, g.now()),
	}
	id, err := Persist(ctx, g.db, g.blobs, Plan{
		Category:   domain.CategoryPromoterSetSig,
		Identifier: src.Name,
		Basename:   req.File.Filename,
		Content:    req.File.Content,
		Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
			s := sig
			s.FileKey = tempKey
			created, err := tx.PromoterSetSigs().Create(ctx, s)
			if err != nil {
				return 0, err
			}
			return created.ID, nil
		},
		SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
			return d.PromoterSetSigs().SetFile(ctx, id, key)
		},
	})
	if err = g.committed(err); err != nil {
		return domain.PromoterSetSig{}, err
	}
	return g.db.PromoterSetSigs().Get(ctx, id)
}
