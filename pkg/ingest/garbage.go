package ingest

import (
	"context"
	"errors"

	"github.com/opst/yeastregulatorydb/pkg/blob"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Discard deletes files of records which are gone.
//
// A file which can not be deleted now is put on the garbage of d, to be swept later.
func Discard(ctx context.Context, d db.Database, blobs blob.Store, log logrus.FieldLogger, keys ...string) {
	ctx = context.WithoutCancel(ctx)
	left := []string{}
	for _, k := range keys {
		if err := blobs.Delete(ctx, k); err != nil && !errors.Is(err, xe.ErrNotFound) {
			log.WithError(err).WithField("key", k).Warn("file is left as garbage")
			left = append(left, k)
		}
	}
	if len(left) == 0 {
		return
	}
	if err := d.Garbage().Put(ctx, left...); err != nil {
		log.WithError(err).WithField("keys", left).Error("garbage is not recorded. files are orphaned")
	}
}

// Sweep moves one file left under a temporary key, or deletes one file on the garbage of d.
//
// It returns false when there are nothing to do.
func Sweep(ctx context.Context, d db.Database, blobs blob.Store) (bool, error) {
	renamed, err := d.Renames().Pop(ctx, func(r domain.Rename) error {
		return Rename(ctx, d, blobs, r)
	})
	if renamed || err != nil {
		return renamed, err
	}
	return d.Garbage().Pop(ctx, func(key string) error {
		if err := blobs.Delete(ctx, key); err != nil && !errors.Is(err, xe.ErrNotFound) {
			return err
		}
		return nil
	})
}
