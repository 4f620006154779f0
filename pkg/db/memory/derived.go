package memory

import (
	"context"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

type backgrounds struct{ d *DB }

func (b *backgrounds) Create(_ context.Context, new domain.CallingCardsBackground) (domain.CallingCardsBackground, error) {
	err := b.d.do(func(st *state) error {
		if _, ok := st.fileformats[new.FileFormatID]; !ok {
			return xe.NotFound("fileformat", new.FileFormatID)
		}
		for _, other := range st.backgrounds {
			if other.Name == new.Name {
				return xe.Conflict("callingcardsbackground", new.Name)
			}
		}
		new.ID = st.next()
		st.backgrounds[new.ID] = new
		return nil
	})
	return new, err
}

func (b *backgrounds) Get(_ context.Context, id int64) (domain.CallingCardsBackground, error) {
	var ret domain.CallingCardsBackground
	err := b.d.do(func(st *state) error {
		found, ok := st.backgrounds[id]
		if !ok {
			return xe.NotFound("callingcardsbackground", id)
		}
		ret = found
		return nil
	})
	return ret, err
}

func (b *backgrounds) List(context.Context) ([]domain.CallingCardsBackground, error) {
	var ret []domain.CallingCardsBackground
	err := b.d.do(func(st *state) error {
		ret = sorted(st.backgrounds, nil)
		return nil
	})
	return ret, err
}

func (b *backgrounds) SetFile(_ context.Context, id int64, key string) error {
	return b.d.do(func(st *state) error {
		current, ok := st.backgrounds[id]
		if !ok {
			return xe.NotFound("callingcardsbackground", id)
		}
		current.FileKey = key
		st.backgrounds[id] = current
		return nil
	})
}

func (b *backgrounds) Delete(_ context.Context, id int64) ([]string, error) {
	var keys []string
	err := b.d.do(func(st *state) error {
		found, ok := st.backgrounds[id]
		if !ok {
			return xe.NotFound("callingcardsbackground", id)
		}
		keys = append(keys, found.FileKey)
		keys = append(keys, st.deletePromoterSetSigs(func(p domain.PromoterSetSig) bool {
			return p.BackgroundID == id
		})...)
		delete(st.backgrounds, id)
		return nil
	})
	return nonEmpty(keys), err
}

type promotersets struct{ d *DB }

func (p *promotersets) Create(_ context.Context, new domain.PromoterSet) (domain.PromoterSet, error) {
	err := p.d.do(func(st *state) error {
		if _, ok := st.fileformats[new.FileFormatID]; !ok {
			return xe.NotFound("fileformat", new.FileFormatID)
		}
		for _, other := range st.promotersets {
			if other.Name == new.Name {
				return xe.Conflict("promoterset", new.Name)
			}
		}
		new.ID = st.next()
		st.promotersets[new.ID] = new
		return nil
	})
	return new, err
}

func (p *promotersets) Get(_ context.Context, id int64) (domain.PromoterSet, error) {
	var ret domain.PromoterSet
	err := p.d.do(func(st *state) error {
		found, ok := st.promotersets[id]
		if !ok {
			return xe.NotFound("promoterset", id)
		}
		ret = found
		return nil
	})
	return ret, err
}

func (p *promotersets) List(context.Context) ([]domain.PromoterSet, error) {
	var ret []domain.PromoterSet
	err := p.d.do(func(st *state) error {
		ret = sorted(st.promotersets, nil)
		return nil
	})
	return ret, err
}

func (p *promotersets) SetFile(_ context.Context, id int64, key string) error {
	return p.d.do(func(st *state) error {
		current, ok := st.promotersets[id]
		if !ok {
			return xe.NotFound("promoterset", id)
		}
		current.FileKey = key
		st.promotersets[id] = current
		return nil
	})
}

func (p *promotersets) Delete(_ context.Context, id int64) ([]string, error) {
	var keys []string
	err := p.d.do(func(st *state) error {
		found, ok := st.promotersets[id]
		if !ok {
			return xe.NotFound("promoterset", id)
		}
		keys = append(keys, found.FileKey)
		keys = append(keys, st.deletePromoterSetSigs(func(s domain.PromoterSetSig) bool {
			return s.PromoterID == id
		})...)
		delete(st.promotersets, id)
		return nil
	})
	return nonEmpty(keys), err
}

type psigs struct{ d *DB }

func (p *psigs) Create(_ context.Context, new domain.PromoterSetSig) (domain.PromoterSetSig, error) {
	err := p.d.do(func(st *state) error {
		if _, ok := st.bindings[new.BindingID]; !ok {
			return xe.NotFound("binding", new.BindingID)
		}
		if _, ok := st.promotersets[new.PromoterID]; !ok {
			return xe.NotFound("promoterset", new.PromoterID)
		}
		if _, ok := st.backgrounds[new.BackgroundID]; new.BackgroundID != 0 && !ok {
			return xe.NotFound("callingcardsbackground", new.BackgroundID)
		}
		if _, ok := st.fileformats[new.FileFormatID]; !ok {
			return xe.NotFound("fileformat", new.FileFormatID)
		}
		for _, other := range st.psigs {
			if other.NaturalKey() == new.NaturalKey() {
				return xe.Conflict("promotersetsig", new.NaturalKey())
			}
		}
		new.ID = st.next()
		st.psigs[new.ID] = new
		return nil
	})
	return new, err
}

func (p *psigs) Get(_ context.Context, id int64) (domain.PromoterSetSig, error) {
	var ret domain.PromoterSetSig
	err := p.d.do(func(st *state) error {
		found, ok := st.psigs[id]
		if !ok {
			return xe.NotFound("promotersetsig", id)
		}
		ret = found
		return nil
	})
	return ret, err
}

func (p *psigs) Find(_ context.Context, q db.PromoterSetSigQuery) ([]domain.PromoterSetSig, error) {
	var ret []domain.PromoterSetSig
	err := p.d.do(func(st *state) error {
		ret = sorted(st.psigs, func(s domain.PromoterSetSig) bool {
			switch {
			case q.BindingID != 0 && s.BindingID != q.BindingID,
				q.PromoterID != 0 && s.PromoterID != q.PromoterID,
				q.BackgroundID != 0 && s.BackgroundID != q.BackgroundID,
				q.RegulatorID != 0 && st.bindings[s.BindingID].RegulatorID != q.RegulatorID:
				return false
			}
			return true
		})
		return nil
	})
	return ret, err
}

func (p *psigs) Lookup(_ context.Context, bindingID, promoterID, backgroundID int64) (domain.PromoterSetSig, error) {
	var ret domain.PromoterSetSig
	want := (domain.PromoterSetSig{BindingID: bindingID, PromoterID: promoterID, BackgroundID: backgroundID}).NaturalKey()
	err := p.d.do(func(st *state) error {
		for _, found := range st.psigs {
			if found.NaturalKey() == want {
				ret = found
				return nil
			}
		}
		return xe.NotFound("promotersetsig", want)
	})
	return ret, err
}

func (p *psigs) SetFile(_ context.Context, id int64, key string) error {
	return p.d.do(func(st *state) error {
		current, ok := st.psigs[id]
		if !ok {
			return xe.NotFound("promotersetsig", id)
		}
		current.FileKey = key
		st.psigs[id] = current
		return nil
	})
}

func (p *psigs) Delete(_ context.Context, id int64) ([]string, error) {
	var keys []string
	err := p.d.do(func(st *state) error {
		if _, ok := st.psigs[id]; !ok {
			return xe.NotFound("promotersetsig", id)
		}
		keys = st.deletePromoterSetSigs(func(s domain.PromoterSetSig) bool { return s.ID == id })
		return nil
	})
	return nonEmpty(keys), err
}

type rankresponses struct{ d *DB }

func (r *rankresponses) Create(_ context.Context, new domain.RankResponse) (domain.RankResponse, error) {
	err := r.d.do(func(st *state) error {
		if _, ok := st.psigs[new.PromoterSetSigID]; !ok {
			return xe.NotFound("promotersetsig", new.PromoterSetSigID)
		}
		if _, ok := st.expressions[new.ExpressionID]; !ok {
			return xe.NotFound("expression", new.ExpressionID)
		}
		for _, other := range st.rankresponses {
			if other.PromoterSetSigID == new.PromoterSetSigID && other.ExpressionID == new.ExpressionID {
				return xe.Conflict("rankresponse", new.NaturalKey())
			}
		}
		new.ID = st.next()
		st.rankresponses[new.ID] = new
		return nil
	})
	return new, err
}

func (r *rankresponses) Get(_ context.Context, id int64) (domain.RankResponse, error) {
	var ret domain.RankResponse
	err := r.d.do(func(st *state) error {
		found, ok := st.rankresponses[id]
		if !ok {
			return xe.NotFound("rankresponse", id)
		}
		ret = found
		return nil
	})
	return ret, err
}

func (r *rankresponses) Find(_ context.Context, q db.RankResponseQuery) ([]domain.RankResponse, error) {
	var ret []domain.RankResponse
	err := r.d.do(func(st *state) error {
		ret = sorted(st.rankresponses, func(rr domain.RankResponse) bool {
			return (q.PromoterSetSigID == 0 || rr.PromoterSetSigID == q.PromoterSetSigID) &&
				(q.ExpressionID == 0 || rr.ExpressionID == q.ExpressionID)
		})
		return nil
	})
	return ret, err
}

func (r *rankresponses) Lookup(_ context.Context, promoterSetSigID, expressionID int64) (domain.RankResponse, error) {
	var ret domain.RankResponse
	err := r.d.do(func(st *state) error {
		for _, found := range st.rankresponses {
			if found.PromoterSetSigID == promoterSetSigID && found.ExpressionID == expressionID {
				ret = found
				return nil
			}
		}
		return xe.NotFound("rankresponse", domain.RankResponse{PromoterSetSigID: promoterSetSigID, ExpressionID: expressionID}.NaturalKey())
	})
	return ret, err
}

func (r *rankresponses) SetFile(_ context.Context, id int64, key string) error {
	return r.d.do(func(st *state) error {
		current, ok := st.rankresponses[id]
		if !ok {
			return xe.NotFound("rankresponse", id)
		}
		current.FileKey = key
		st.rankresponses[id] = current
		return nil
	})
}

func (r *rankresponses) Delete(_ context.Context, id int64) ([]string, error) {
	var keys []string
	err := r.d.do(func(st *state) error {
		if _, ok := st.rankresponses[id]; !ok {
			return xe.NotFound("rankresponse", id)
		}
		keys = st.deleteRankResponses(func(rr domain.RankResponse) bool { return rr.ID == id })
		return nil
	})
	return nonEmpty(keys), err
}
