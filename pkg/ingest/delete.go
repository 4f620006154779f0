package ingest

import (
	"context"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Delete removes the record of category with id, records derived from it, and their files.
//
// Records are removed in one transaction first. Files are removed after commit;
// a file which can not be removed is put on the garbage.
func (g *Gate) Delete(ctx context.Context, category domain.Category, id int64) error {
	var keys []string
	err := g.db.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
		var err error
		switch category {
		case domain.CategoryBinding:
			keys, err = tx.Bindings().Delete(ctx, id)
		case domain.CategoryExpression:
			keys, err = tx.Expressions().Delete(ctx, id)
		case domain.CategoryBackground:
			keys, err = tx.Backgrounds().Delete(ctx, id)
		case domain.CategoryPromoterSet:
			keys, err = tx.PromoterSets().Delete(ctx, id)
		case domain.CategoryPromoterSetSig:
			keys, err = tx.PromoterSetSigs().Delete(ctx, id)
		case domain.CategoryRankResponse:
			keys, err = tx.RankResponses().Delete(ctx, id)
		default:
			return xe.Invalid("entity", "%s can not be deleted", category)
		}
		return err
	})
	if err != nil {
		return err
	}

	log := g.log.WithFields(logrus.Fields{"entity": category, "id": id})
	Discard(ctx, g.db, g.blobs, log, keys...)
	log.WithField("files", len(keys)).Info("record is deleted")
	return nil
}
