package ingest

import (
	"context"
	"errors"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/sirupsen/logrus"
)

type BindingRequest struct {
	RegulatorLocusTag string
	RegulatorSymbol   string

	Batch     string
	Replicate int64

	// Source is the name or id of the DataSource.
	Source string

	SourceOrigID string
	Strain       string
	Notes        string

	// PromoterID is the PromoterSet scored by the file.
	//
	// Required only when the source is a null-file source.
	PromoterID int64

	File Upload
}

// BindingCreated is the result of a Binding upload.
type BindingCreated struct {
	Binding domain.Binding

	// PromoterSetSig is not nil when the upload is a significance file of a null-file source.
	PromoterSetSig *domain.PromoterSetSig
}

// prepared is a validated upload, ready to be persisted.
type prepared struct {
	plan Plan

	// id of the file owner -> result
	load func(ctx context.Context, id int64) (BindingCreated, error)
}

// CreateBinding validates the upload and creates a Binding with its BindingManualQC.
//
// For a null-file source, the Binding has no file and
// the uploaded file is saved as a PromoterSetSig of req.PromoterID.
func (g *Gate) CreateBinding(ctx context.Context, user string, req BindingRequest) (_ BindingCreated, err error) {
	defer func() { g.observe(domain.CategoryBinding, err) }()

	p, err := g.prepareBinding(ctx, user, req)
	if err != nil {
		return BindingCreated{}, err
	}
	id, err := Persist(ctx, g.db, g.blobs, p.plan)
	if err = g.committed(err); err != nil {
		return BindingCreated{}, err
	}
	return p.load(ctx, id)
}

func (g *Gate) prepareBinding(ctx context.Context, user string, req BindingRequest) (prepared, error) {
	refs := g.db.References()
	src, err := source(ctx, refs, req.Source)
	if err != nil {
		return prepared{}, err
	}
	gf, err := feature(ctx, refs, req.RegulatorLocusTag, req.RegulatorSymbol)
	if err != nil {
		return prepared{}, err
	}
	rep, err := replicate(req.Replicate)
	if err != nil {
		return prepared{}, err
	}

	stamp := domain.NewStamp(user, g.now())
	binding := domain.Binding{
		Batch:        orDefault(req.Batch, "undefined"),
		Replicate:    rep,
		SourceID:     src.ID,
		SourceOrigID: orDefault(req.SourceOrigID, "none"),
		Strain:       orDefault(req.Strain, "undefined"),
		Notes:        orDefault(req.Notes, "none"),
		Stamp:        stamp,
	}

	if g.IsNullFileSource(src) {
		return g.prepareSignificanceBinding(ctx, src, gf, binding, req)
	}

	subject := &Subject{Upload: req.File, Source: &src, Dedup: true}
	if err := g.Validate(ctx, subject); err != nil {
		return prepared{}, err
	}
	if subject.Inserts != nil {
		binding.Inserts = *subject.Inserts
	}

	plan := Plan{
		Category:   domain.CategoryBinding,
		Identifier: src.Name,
		Basename:   req.File.Filename,
		Content:    req.File.Content,
		Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
			reg, err := tx.References().GetOrCreateRegulator(ctx, gf.ID, stamp)
			if err != nil {
				return 0, err
			}
			b := binding
			b.RegulatorID = reg.ID
			b.FileKey = tempKey
			created, err := tx.Bindings().Create(ctx, b)
			if err != nil {
				return 0, err
			}
			return created.ID, nil
		},
		SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
			return d.Bindings().SetFile(ctx, id, key)
		},
	}
	load := func(ctx context.Context, id int64) (BindingCreated, error) {
		b, err := g.db.Bindings().Get(ctx, id)
		if err != nil {
			return BindingCreated{}, err
		}
		g.log.WithFields(logrus.Fields{
			"binding_id":      b.ID,
			"source":          src.Name,
			"genomic_inserts": b.Genomic,
		}).Info("binding is created")
		return BindingCreated{Binding: b}, nil
	}
	return prepared{plan: plan, load: load}, nil
}

func (g *Gate) prepareSignificanceBinding(
	ctx context.Context, src domain.DataSource, gf domain.GenomicFeature, binding domain.Binding, req BindingRequest,
) (prepared, error) {
	if req.PromoterID == 0 {
		return prepared{}, xe.Invalid(
			"promoter", "a binding of %s is a promoter significance file; promoter is required", src.Name,
		)
	}
	if _, err := g.db.PromoterSets().Get(ctx, req.PromoterID); errors.Is(err, xe.ErrNotFound) {
		return prepared{}, xe.Invalid("promoter", "PromoterSet %d does not exist", req.PromoterID)
	} else if err != nil {
		return prepared{}, err
	}

	subject := &Subject{Upload: req.File, Source: &src}
	if err := g.Validate(ctx, subject); err != nil {
		return prepared{}, err
	}
	if err := registered(subject.Format); err != nil {
		return prepared{}, err
	}

	plan := Plan{
		Category:   domain.CategoryPromoterSetSig,
		Identifier: src.Name,
		Basename:   req.File.Filename,
		Content:    req.File.Content,
		Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
			reg, err := tx.References().GetOrCreateRegulator(ctx, gf.ID, binding.Stamp)
			if err != nil {
				return 0, err
			}
			b := binding
			b.RegulatorID = reg.ID
			created, err := tx.Bindings().Create(ctx, b)
			if err != nil {
				return 0, err
			}
			sig, err := tx.PromoterSetSigs().Create(ctx, domain.PromoterSetSig{
				BindingID:    created.ID,
				PromoterID:   req.PromoterID,
				FileFormatID: subject.Format.ID,
				FileKey:      tempKey,
				Stamp:        binding.Stamp,
			})
			if err != nil {
				return 0, err
			}
			return sig.ID, nil
		},
		SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
			return d.PromoterSetSigs().SetFile(ctx, id, key)
		},
	}
	load := func(ctx context.Context, id int64) (BindingCreated, error) {
		sig, err := g.db.PromoterSetSigs().Get(ctx, id)
		if err != nil {
			return BindingCreated{}, err
		}
		b, err := g.db.Bindings().Get(ctx, sig.BindingID)
		if err != nil {
			return BindingCreated{}, err
		}
		g.log.WithFields(logrus.Fields{
			"binding_id":        b.ID,
			"promotersetsig_id": sig.ID,
			"source":            src.Name,
		}).Info("binding of a null-file source is created with its promoter significance")
		return BindingCreated{Binding: b, PromoterSetSig: &sig}, nil
	}
	return prepared{plan: plan, load: load}, nil
}

type ExpressionRequest struct {
	RegulatorLocusTag string
	RegulatorSymbol   string

	Batch       string
	Replicate   int64
	Control     string
	Mechanism   string
	Restriction string
	Time        float64
	Strain      string

	// Source is the name or id of the DataSource.
	Source string
	Notes  string

	File Upload
}

// CreateExpression validates the upload and creates an Expression with its ExpressionManualQC.
func (g *Gate) CreateExpression(ctx context.Context, user string, req ExpressionRequest) (_ domain.Expression, err error) {
	defer func() { g.observe(domain.CategoryExpression, err) }()

	plan, err := g.prepareExpression(ctx, user, req)
	if err != nil {
		return domain.Expression{}, err
	}
	id, err := Persist(ctx, g.db, g.blobs, plan)
	if err = g.committed(err); err != nil {
		return domain.Expression{}, err
	}
	e, err := g.db.Expressions().Get(ctx, id)
	if err != nil {
		return domain.Expression{}, err
	}
	g.log.WithField("expression_id", e.ID).Info("expression is created")
	return e, nil
}

func (g *Gate) prepareExpression(ctx context.Context, user string, req ExpressionRequest) (Plan, error) {
	refs := g.db.References()
	src, err := source(ctx, refs, req.Source)
	if err != nil {
		return Plan{}, err
	}
	gf, err := feature(ctx, refs, req.RegulatorLocusTag, req.RegulatorSymbol)
	if err != nil {
		return Plan{}, err
	}
	rep, err := replicate(req.Replicate)
	if err != nil {
		return Plan{}, err
	}

	stamp := domain.NewStamp(user, g.now())
	expression := domain.Expression{
		Batch:       orDefault(req.Batch, "undefined"),
		Replicate:   rep,
		Control:     domain.ExpressionControl(orDefault(req.Control, string(domain.ControlUndefined))),
		Mechanism:   domain.ExpressionMechanism(req.Mechanism),
		Restriction: orDefault(req.Restriction, "undefined"),
		Time:        req.Time,
		Strain:      orDefault(req.Strain, "undefined"),
		SourceID:    src.ID,
		Notes:       orDefault(req.Notes, "none"),
		Stamp:       stamp,
	}
	if err := expression.Validate(); err != nil {
		return Plan{}, xe.Invalid("expression", "%s", err)
	}

	subject := &Subject{Upload: req.File, Source: &src}
	if err := g.Validate(ctx, subject); err != nil {
		return Plan{}, err
	}

	return Plan{
		Category:   domain.CategoryExpression,
		Identifier: src.Name,
		Basename:   req.File.Filename,
		Content:    req.File.Content,
		Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
			reg, err := tx.References().GetOrCreateRegulator(ctx, gf.ID, stamp)
			if err != nil {
				return 0, err
			}
			e := expression
			e.RegulatorID = reg.ID
			e.FileKey = tempKey
			created, err := tx.Expressions().Create(ctx, e)
			if err != nil {
				return 0, err
			}
			return created.ID, nil
		},
		SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
			return d.Expressions().SetFile(ctx, id, key)
		},
	}, nil
}
