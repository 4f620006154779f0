package stages

import (
	"context"
	"errors"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/opst/yeastregulatorydb/pkg/stats"
	"github.com/sirupsen/logrus"
)

type RankResponseRequest struct {
	PromoterSetSigID int64
	User             string

	// ExpressionID is the Expression to compare with. 0 means all Expressions.
	ExpressionID int64

	// thresholds overriding the defaults of the format of Expression.
	EffectThreshold *float64
	PvalueThreshold *float64

	Normalize bool
}

// RankResponse compares a PromoterSetSig with Expressions, and returns ids of its RankResponses.
//
// Existing RankResponses are not computed again.
func (s *Stages) RankResponse(ctx context.Context, req RankResponseRequest) ([]int64, error) {
	sig, err := s.db.PromoterSetSigs().Get(ctx, req.PromoterSetSigID)
	if err != nil {
		return nil, err
	}
	binding, err := s.db.Bindings().Get(ctx, sig.BindingID)
	if err != nil {
		return nil, err
	}
	bindingSrc, err := s.db.References().GetDataSource(ctx, binding.SourceID)
	if err != nil {
		return nil, err
	}
	sigFF, err := s.registry.ByID(ctx, sig.FileFormatID)
	if err != nil {
		return nil, err
	}
	outFF, err := s.registry.Lookup(ctx, RankResponseFormat)
	if err != nil {
		return nil, err
	}

	expressions, err := s.expressions(ctx, req.ExpressionID)
	if err != nil {
		return nil, err
	}
	log := s.log.WithFields(logrus.Fields{"promotersetsig_id": sig.ID, "binding_id": binding.ID})
	if len(expressions) == 0 {
		log.Info("no expression to compare with")
		return nil, nil
	}

	st, err := s.readTable(ctx, sig.FileKey, sigFF)
	if err != nil {
		return nil, err
	}
	bindingScores, err := stats.ReadScores(st, sigFF, bindingSrc.Name)
	if err != nil {
		return nil, err
	}

	ids := []int64{}
	for _, e := range expressions {
		id, err := s.rankResponse(ctx, req, sig, bindingScores, e, outFF)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Stages) rankResponse(
	ctx context.Context,
	req RankResponseRequest,
	sig domain.PromoterSetSig,
	bindingScores stats.Scores,
	expression domain.Expression,
	out fileformat.FileFormat,
) (int64, error) {
	log := s.log.WithFields(logrus.Fields{"promotersetsig_id": sig.ID, "expression_id": expression.ID})
	rrs := s.db.RankResponses()
	if found, err := rrs.Lookup(ctx, sig.ID, expression.ID); err == nil {
		log.WithField("rankresponse_id", found.ID).Info("rank response exists already")
		return found.ID, nil
	} else if !errors.Is(err, xe.ErrNotFound) {
		return 0, err
	}

	src, err := s.db.References().GetDataSource(ctx, expression.SourceID)
	if err != nil {
		return 0, err
	}
	exprFF, err := s.registry.ByID(ctx, src.FileFormatID)
	if err != nil {
		return 0, err
	}
	et, err := s.readTable(ctx, expression.FileKey, exprFF)
	if err != nil {
		return 0, err
	}
	exprScores, err := stats.ReadScores(et, exprFF, src.Name)
	if err != nil {
		return 0, err
	}
	joined, err := stats.Join(bindingScores, exprScores)
	if err != nil {
		return 0, err
	}

	effect, pvalue := exprFF.DefaultEffectThreshold, exprFF.DefaultPvalueThreshold
	if req.EffectThreshold != nil {
		effect = *req.EffectThreshold
	}
	if req.PvalueThreshold != nil {
		pvalue = *req.PvalueThreshold
	}
	result, err := stats.RankResponse(bindingScores, exprScores, joined, stats.RankResponseOptions{
		EffectThreshold:  effect,
		PvalueThreshold:  pvalue,
		Normalize:        req.Normalize,
		BinSize:          s.conf.BinSize,
		SignificanceBins: s.conf.SignificanceBins,
	})
	if err != nil {
		return 0, err
	}
	content, err := result.Annotated.EncodeGzip(out.Separator.Rune())
	if err != nil {
		return 0, xe.Wrap(err)
	}

	rr := domain.RankResponse{
		PromoterSetSigID:          sig.ID,
		ExpressionID:              expression.ID,
		ExpressionEffectThreshold: effect,
		ExpressionPvalueThreshold: pvalue,
		Normalized:                req.Normalize,
		SignificantResponse:       result.Significant,
		FileFormatID:              out.ID,
		Stamp:                     domain.NewStamp(req.User, s.now()),
	}
	id, err := ingest.Persist(ctx, s.db, s.blobs, ingest.Plan{
		Category: domain.CategoryRankResponse,
		Basename: RankResponseFormat + ".csv.gz",
		Content:  content,
		Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
			r := rr
			r.FileKey = tempKey
			created, err := tx.RankResponses().Create(ctx, r)
			if err != nil {
				return 0, err
			}
			return created.ID, nil
		},
		SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
			return d.RankResponses().SetFile(ctx, id, key)
		},
	})
	err = s.committed(err)
	if done(err) {
		found, lerr := rrs.Lookup(ctx, sig.ID, expression.ID)
		if lerr != nil {
			return 0, lerr
		}
		return found.ID, nil
	}
	if err != nil {
		return 0, err
	}
	log.WithFields(logrus.Fields{
		"rankresponse_id":      id,
		"significant_response": result.Significant,
	}).Info("rank response is created")
	return id, nil
}

func (s *Stages) expressions(ctx context.Context, id int64) ([]domain.Expression, error) {
	if id == 0 {
		return s.db.Expressions().Find(ctx, db.ExpressionQuery{})
	}
	e, err := s.db.Expressions().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return []domain.Expression{e}, nil
}
