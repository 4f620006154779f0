package stages

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/opst/yeastregulatorydb/pkg/blob"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/genomic"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/opst/yeastregulatorydb/pkg/table"
	"github.com/sirupsen/logrus"
)

type CombineRequest struct {
	RegulatorID int64
	User        string

	// Assay of replicates. "callingcards" if empty.
	Assay string

	// DataUsable of replicates. pass if empty.
	DataUsable domain.QCLabel
}

const combinedBasename = domain.CombinedBatch + ".qbed.gz"

// CombineReplicates merges hops of replicates of a regulator into one Binding of batch cc_combined.
//
// Each replicate is deduplicated on its own, unstranded, before merging.
// The combined Binding is updated when it exists; its PromoterSetSigs are removed to be computed again.
func (s *Stages) CombineReplicates(ctx context.Context, req CombineRequest) (domain.Binding, error) {
	if req.Assay == "" {
		req.Assay = "callingcards"
	}
	if req.DataUsable == "" {
		req.DataUsable = domain.Pass
	}
	log := s.log.WithFields(logrus.Fields{"regulator_id": req.RegulatorID, "assay": req.Assay})

	found, err := s.db.Bindings().Find(ctx, db.BindingQuery{
		RegulatorID: req.RegulatorID, Assay: req.Assay, DataUsable: req.DataUsable,
	})
	if err != nil {
		return domain.Binding{}, err
	}
	replicates := []domain.Binding{}
	for _, b := range found {
		if b.Batch == domain.CombinedBatch || b.FileKey == "" {
			continue
		}
		replicates = append(replicates, b)
	}
	if len(replicates) == 0 {
		return domain.Binding{}, xe.NotFound(
			"binding", fmt.Sprintf("(regulator=%d, assay=%s, data_usable=%s)", req.RegulatorID, req.Assay, req.DataUsable),
		)
	}

	src, err := s.db.References().GetDataSource(ctx, replicates[0].SourceID)
	if err != nil {
		return domain.Binding{}, err
	}
	ids := make([]string, 0, len(replicates))
	tables := make([]*table.Table, 0, len(replicates))
	for _, b := range replicates {
		t, err := s.unstrandedHops(ctx, b)
		if err != nil {
			return domain.Binding{}, err
		}
		if len(tables) != 0 {
			if t, err = t.Select(tables[0].Header...); err != nil {
				return domain.Binding{}, xe.Invalid("file", "binding %d: %s", b.ID, err)
			}
		}
		tables = append(tables, t)
		ids = append(ids, fmt.Sprint(b.ID))
	}
	combined, err := table.Concat(tables...)
	if err != nil {
		return domain.Binding{}, xe.Wrap(err)
	}

	chrmap, err := s.db.References().ChrMap(ctx)
	if err != nil {
		return domain.Binding{}, err
	}
	inserts, err := genomic.CountHops(combined, chrmap, s.conf.ChrFormat, false)
	if err != nil {
		return domain.Binding{}, err
	}
	buf := new(bytes.Buffer)
	if err := combined.WriteBGZF(buf, '\t'); err != nil {
		return domain.Binding{}, xe.Wrap(err)
	}
	notes := "combined replicates: " + strings.Join(ids, ",")

	existing, err := s.db.Bindings().Find(ctx, db.BindingQuery{
		RegulatorID: req.RegulatorID, SourceID: src.ID, Batch: domain.CombinedBatch,
	})
	if err != nil {
		return domain.Binding{}, err
	}
	if len(existing) != 0 {
		b, err := s.updateCombined(ctx, req.User, existing[0], src, inserts, notes, buf.Bytes())
		if err == nil {
			log.WithField("binding_id", b.ID).Info("combined binding is updated")
		}
		return b, err
	}

	stamp := domain.NewStamp(req.User, s.now())
	newBinding := domain.Binding{
		RegulatorID:  req.RegulatorID,
		Batch:        domain.CombinedBatch,
		Replicate:    1,
		SourceID:     src.ID,
		SourceOrigID: "none",
		Strain:       "undefined",
		Notes:        notes,
		Inserts:      inserts,
		Stamp:        stamp,
	}
	id, err := ingest.Persist(ctx, s.db, s.blobs, ingest.Plan{
		Category:   domain.CategoryBinding,
		Identifier: src.Name,
		Basename:   combinedBasename,
		Content:    buf.Bytes(),
		Create: func(ctx context.Context, tx db.Database, tempKey string) (int64, error) {
			b := newBinding
			b.FileKey = tempKey
			created, err := tx.Bindings().Create(ctx, b)
			if err != nil {
				return 0, err
			}
			// the combination is made of passing replicates.
			qc, err := tx.Bindings().GetQC(ctx, created.ID)
			if err != nil {
				return 0, err
			}
			qc.DataUsable = domain.Pass
			qc.PassingReplicate = domain.Pass
			if _, err := tx.Bindings().UpdateQC(ctx, qc); err != nil {
				return 0, err
			}
			return created.ID, nil
		},
		SetFile: func(ctx context.Context, d db.Database, id int64, key string) error {
			return d.Bindings().SetFile(ctx, id, key)
		},
	})
	if err = s.committed(err); err != nil {
		return domain.Binding{}, err
	}
	log.WithField("binding_id", id).Info("combined binding is created")
	return s.db.Bindings().Get(ctx, id)
}

// updateCombined replaces the file of the combined Binding b, and drops its stale PromoterSetSigs.
//
// The new file is put under a temporary key and b is switched to it in the transaction,
// so b and its PromoterSetSigs keep their old file until commit.
// After commit, the file is moved to the canonical key of b.
func (s *Stages) updateCombined(
	ctx context.Context, user string, b domain.Binding, src domain.DataSource,
	inserts domain.Inserts, notes string, content []byte,
) (domain.Binding, error) {
	tempKey := domain.TempKey(domain.CategoryBinding, src.Name, combinedBasename)
	if err := blob.PutBytes(ctx, s.blobs, tempKey, content); err != nil {
		return domain.Binding{}, err
	}

	var stale []string
	err := s.db.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
		b.FileKey = tempKey
		b.Inserts = inserts
		b.Notes = notes
		b.Stamp = b.Stamp.Touch(user, s.now())
		if err := tx.Bindings().Update(ctx, b); err != nil {
			return err
		}
		sigs, err := tx.PromoterSetSigs().Find(ctx, db.PromoterSetSigQuery{BindingID: b.ID})
		if err != nil {
			return err
		}
		for _, sig := range sigs {
			keys, err := tx.PromoterSetSigs().Delete(ctx, sig.ID)
			if err != nil {
				return err
			}
			stale = append(stale, keys...)
		}
		return nil
	})
	if err != nil {
		ingest.Discard(ctx, s.db, s.blobs, s.log, tempKey)
		return domain.Binding{}, err
	}

	rename := domain.Rename{OwnerID: b.ID, TempKey: tempKey}
	if err := ingest.Rename(ctx, s.db, s.blobs, rename); err != nil {
		s.log.WithError(err).WithField("binding_id", b.ID).Warn("combined file is left to be moved")
		if err := s.db.Renames().Put(context.WithoutCancel(ctx), rename); err != nil {
			return domain.Binding{}, err
		}
	}
	ingest.Discard(ctx, s.db, s.blobs, s.log, stale...)
	return s.db.Bindings().Get(ctx, b.ID)
}

// unstrandedHops reads the hops of b, deduplicated, with strand "*".
func (s *Stages) unstrandedHops(ctx context.Context, b domain.Binding) (*table.Table, error) {
	src, err := s.db.References().GetDataSource(ctx, b.SourceID)
	if err != nil {
		return nil, err
	}
	ff, err := s.registry.ByID(ctx, src.FileFormatID)
	if err != nil {
		return nil, err
	}
	t, err := s.readTable(ctx, b.FileKey, ff)
	if err != nil {
		return nil, err
	}
	if i := t.Index("strand"); i >= 0 {
		for _, row := range t.Rows {
			row[i] = "*"
		}
	}
	return genomic.Dedup(t)
}
