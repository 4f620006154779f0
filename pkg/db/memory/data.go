package memory

import (
	"context"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

type bindings struct{ d *DB }

func (b *bindings) Create(_ context.Context, new domain.Binding) (domain.Binding, error) {
	err := b.d.do(func(st *state) error {
		if _, ok := st.regulators[new.RegulatorID]; !ok {
			return xe.NotFound("regulator", new.RegulatorID)
		}
		if _, ok := st.datasources[new.SourceID]; !ok {
			return xe.NotFound("datasource", new.SourceID)
		}
		for _, other := range st.bindings {
			if other.NaturalKey() == new.NaturalKey() {
				return xe.Conflict("binding", new.NaturalKey())
			}
		}
		new.ID = st.next()
		st.bindings[new.ID] = new

		qc := domain.NewBindingManualQC(new.ID, new.Stamp)
		qc.ID = st.next()
		st.bindingQC[new.ID] = qc
		return nil
	})
	return new, err
}

func (b *bindings) Get(_ context.Context, id int64) (domain.Binding, error) {
	var ret domain.Binding
	err := b.d.do(func(st *state) error {
		found, ok := st.bindings[id]
		if !ok {
			return xe.NotFound("binding", id)
		}
		ret = found
		return nil
	})
	return ret, err
}

func (b *bindings) Find(_ context.Context, q db.BindingQuery) ([]domain.Binding, error) {
	var ret []domain.Binding
	err := b.d.do(func(st *state) error {
		ret = sorted(st.bindings, func(b domain.Binding) bool {
			switch {
			case q.RegulatorID != 0 && b.RegulatorID != q.RegulatorID,
				q.SourceID != 0 && b.SourceID != q.SourceID,
				q.Batch != "" && b.Batch != q.Batch,
				q.Assay != "" && st.datasources[b.SourceID].Assay != q.Assay,
				q.DataUsable != "" && st.bindingQC[b.ID].DataUsable != q.DataUsable:
				return false
			}
			return true
		})
		return nil
	})
	return ret, err
}

func (b *bindings) Update(_ context.Context, upd domain.Binding) error {
	return b.d.do(func(st *state) error {
		current, ok := st.bindings[upd.ID]
		if !ok {
			return xe.NotFound("binding", upd.ID)
		}
		for id, other := range st.bindings {
			if id != upd.ID && other.NaturalKey() == upd.NaturalKey() {
				return xe.Conflict("binding", upd.NaturalKey())
			}
		}
		upd.Uploader = current.Uploader
		upd.UploadDate = current.UploadDate
		st.bindings[upd.ID] = upd
		return nil
	})
}

func (b *bindings) SetFile(_ context.Context, id int64, key string) error {
	return b.d.do(func(st *state) error {
		current, ok := st.bindings[id]
		if !ok {
			return xe.NotFound("binding", id)
		}
		current.FileKey = key
		st.bindings[id] = current
		return nil
	})
}

func (b *bindings) GetQC(_ context.Context, bindingID int64) (domain.BindingManualQC, error) {
	var ret domain.BindingManualQC
	err := b.d.do(func(st *state) error {
		found, ok := st.bindingQC[bindingID]
		if !ok {
			return xe.NotFound("bindingmanualqc", bindingID)
		}
		ret = found
		return nil
	})
	return ret, err
}

func (b *bindings) UpdateQC(_ context.Context, qc domain.BindingManualQC) (domain.BindingManualQC, error) {
	var prev domain.BindingManualQC
	err := b.d.do(func(st *state) error {
		found, ok := st.bindingQC[qc.BindingID]
		if !ok {
			return xe.NotFound("bindingmanualqc", qc.BindingID)
		}
		prev = found
		qc.ID = found.ID
		qc.Uploader = found.Uploader
		qc.UploadDate = found.UploadDate
		st.bindingQC[qc.BindingID] = qc
		return nil
	})
	return prev, err
}

func (b *bindings) Delete(_ context.Context, id int64) ([]string, error) {
	var keys []string
	err := b.d.do(func(st *state) error {
		found, ok := st.bindings[id]
		if !ok {
			return xe.NotFound("binding", id)
		}
		keys = append(keys, found.FileKey)
		keys = append(keys, st.deletePromoterSetSigs(func(p domain.PromoterSetSig) bool {
			return p.BindingID == id
		})...)
		delete(st.bindingQC, id)
		delete(st.bindings, id)
		return nil
	})
	return nonEmpty(keys), err
}

type expressions struct{ d *DB }

func (e *expressions) Create(_ context.Context, new domain.Expression) (domain.Expression, error) {
	err := e.d.do(func(st *state) error {
		if _, ok := st.regulators[new.RegulatorID]; !ok {
			return xe.NotFound("regulator", new.RegulatorID)
		}
		if _, ok := st.datasources[new.SourceID]; !ok {
			return xe.NotFound("datasource", new.SourceID)
		}
		for _, other := range st.expressions {
			if other.NaturalKey() == new.NaturalKey() {
				return xe.Conflict("expression", new.NaturalKey())
			}
		}
		new.ID = st.next()
		st.expressions[new.ID] = new
		st.expressionQC[new.ID] = domain.ExpressionManualQC{
			ID:             st.next(),
			ExpressionID:   new.ID,
			StrainVerified: domain.Unreviewed,
			Stamp:          new.Stamp,
		}
		return nil
	})
	return new, err
}

func (e *expressions) Get(_ context.Context, id int64) (domain.Expression, error) {
	var ret domain.Expression
	err := e.d.do(func(st *state) error {
		found, ok := st.expressions[id]
		if !ok {
			return xe.NotFound("expression", id)
		}
		ret = found
		return nil
	})
	return ret, err
}

func (e *expressions) Find(_ context.Context, q db.ExpressionQuery) ([]domain.Expression, error) {
	var ret []domain.Expression
	err := e.d.do(func(st *state) error {
		ret = sorted(st.expressions, func(e domain.Expression) bool {
			return (q.RegulatorID == 0 || e.RegulatorID == q.RegulatorID) &&
				(q.SourceID == 0 || e.SourceID == q.SourceID)
		})
		return nil
	})
	return ret, err
}

func (e *expressions) SetFile(_ context.Context, id int64, key string) error {
	return e.d.do(func(st *state) error {
		current, ok := st.expressions[id]
		if !ok {
			return xe.NotFound("expression", id)
		}
		current.FileKey = key
		st.expressions[id] = current
		return nil
	})
}

func (e *expressions) Delete(_ context.Context, id int64) ([]string, error) {
	var keys []string
	err := e.d.do(func(st *state) error {
		found, ok := st.expressions[id]
		if !ok {
			return xe.NotFound("expression", id)
		}
		keys = append(keys, found.FileKey)
		keys = append(keys, st.deleteRankResponses(func(r domain.RankResponse) bool {
			return r.ExpressionID == id
		})...)
		delete(st.expressionQC, id)
		delete(st.expressions, id)
		return nil
	})
	return nonEmpty(keys), err
}
