package ingest

import (
	"context"
	"errors"

	"github.com/opst/yeastregulatorydb/pkg/blob"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

// Plan is a record to be created with a file.
type Plan struct {
	Category   domain.Category
	Identifier string

	// Basename of the uploaded file. Its extension is kept in the stored key.
	Basename string
	Content  []byte

	// Create inserts the record(s) referring tempKey, and returns the id of the file owner.
	Create func(ctx context.Context, tx db.Database, tempKey string) (int64, error)

	// SetFile points the file owner to its canonical key.
	SetFile func(ctx context.Context, d db.Database, id int64, key string) error
}

// Persist saves one Plan. See PersistAll.
//
// When the record is committed but its file is not moved, the id is returned with the error.
func Persist(ctx context.Context, database db.Database, blobs blob.Store, plan Plan) (int64, error) {
	ids, err := PersistAll(ctx, database, blobs, []Plan{plan})
	if len(ids) == 0 {
		return 0, err
	}
	return ids[0], err
}

// Committed reports whether records are saved, looking at the result of Persist or PersistAll.
//
// A committed record refers its file under a temporary key until its rename is swept.
func Committed(err error) bool {
	return err == nil || errors.Is(err, ErrUnfinalized)
}

// committed clears err when records are saved and only moving their files is left to Sweep.
func (g *Gate) committed(err error) error {
	if err != nil && Committed(err) {
		g.log.WithError(err).Warn("record is saved, but its file is left to be moved")
		return nil
	}
	return err
}

// ErrUnfinalized tells that records are committed, but some of their files are left under temporary keys.
var ErrUnfinalized = errors.New("files are left under temporary keys")

// PersistAll saves files and records of plans, and returns ids of the file owners in order of plans.
//
// Files are put under temporary keys first, then all records are created in one transaction.
// When the transaction fails, temporary files are removed and nothing is persisted.
//
// After commit, each file is moved to the key embedding the id of its owner (see Finalize).
// Files which can not be moved are put on the renames of database to be swept later,
// and the error wraps ErrUnfinalized. Ids are returned in that case too.
func PersistAll(ctx context.Context, database db.Database, blobs blob.Store, plans []Plan) ([]int64, error) {
	tempKeys := make([]string, 0, len(plans))
	discard := func() {
		// the request may be canceled. Cleaning up should go on.
		ctx := context.WithoutCancel(ctx)
		for _, k := range tempKeys {
			blobs.Delete(ctx, k)
		}
	}

	for _, p := range plans {
		key := domain.TempKey(p.Category, p.Identifier, p.Basename)
		tempKeys = append(tempKeys, key)
		if err := blob.PutBytes(ctx, blobs, key, p.Content); err != nil {
			discard()
			return nil, err
		}
	}

	ids := make([]int64, len(plans))
	if err := database.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
		for nth, p := range plans {
			id, err := p.Create(ctx, tx, tempKeys[nth])
			if err != nil {
				return err
			}
			ids[nth] = id
		}
		return nil
	}); err != nil {
		discard()
		return nil, err
	}

	var left []domain.Rename
	var cause error
	for nth, p := range plans {
		if _, err := Finalize(ctx, database, blobs, p, ids[nth], tempKeys[nth]); err != nil {
			left = append(left, domain.Rename{OwnerID: ids[nth], TempKey: tempKeys[nth]})
			cause = errors.Join(cause, err)
		}
	}
	if len(left) == 0 {
		return ids, nil
	}
	if err := database.Renames().Put(context.WithoutCancel(ctx), left...); err != nil {
		cause = errors.Join(cause, err)
	}
	return ids, xe.Wrap(errors.Join(ErrUnfinalized, cause))
}

// Finalize moves the file of the record with id from tempKey to its canonical key.
//
// The record keeps pointing to an existing blob at any moment:
// the blob is copied, then the record is updated, then the temporary blob is removed.
// It can be retried after partial failure.
func Finalize(ctx context.Context, d db.Database, blobs blob.Store, p Plan, id int64, tempKey string) (string, error) {
	key := domain.FileKey(p.Category, p.Identifier, id, p.Basename)
	if err := move(ctx, blobs, tempKey, key, func(ctx context.Context) error {
		return p.SetFile(ctx, d, id, key)
	}); err != nil {
		return "", err
	}
	return key, nil
}

// move copies tempKey over key, and calls setFile.
//
// When tempKey is gone, the copy is taken as done by a former try.
func move(ctx context.Context, blobs blob.Store, tempKey, key string, setFile func(context.Context) error) error {
	content, err := blob.ReadAll(ctx, blobs, tempKey)
	switch {
	case errors.Is(err, xe.ErrNotFound):
		exists, err := blobs.Exists(ctx, key)
		if err != nil {
			return err
		}
		if !exists {
			return xe.NotFound("file", tempKey)
		}
	case err != nil:
		return err
	default:
		if err := blob.PutBytes(ctx, blobs, key, content); err != nil {
			return err
		}
	}
	if err := setFile(ctx); err != nil {
		return err
	}
	if err := blobs.Delete(ctx, tempKey); err != nil && !errors.Is(err, xe.ErrNotFound) {
		return err
	}
	return nil
}

// Rename re-drives a move left by PersistAll, or by an update of a file.
func Rename(ctx context.Context, d db.Database, blobs blob.Store, r domain.Rename) error {
	setFile, err := fileSetter(d, r.Category())
	if err != nil {
		return err
	}
	return move(ctx, blobs, r.TempKey, r.Key(), func(ctx context.Context) error {
		return setFile(ctx, r.OwnerID, r.Key())
	})
}

func fileSetter(d db.Database, c domain.Category) (func(ctx context.Context, id int64, key string) error, error) {
	switch c {
	case domain.CategoryBinding:
		return d.Bindings().SetFile, nil
	case domain.CategoryExpression:
		return d.Expressions().SetFile, nil
	case domain.CategoryBackground:
		return d.Backgrounds().SetFile, nil
	case domain.CategoryPromoterSet:
		return d.PromoterSets().SetFile, nil
	case domain.CategoryPromoterSetSig:
		return d.PromoterSetSigs().SetFile, nil
	case domain.CategoryRankResponse:
		return d.RankResponses().SetFile, nil
	}
	return nil, xe.Invalid("category", "unknown category of file: %s", c)
}
