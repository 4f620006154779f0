package memory

import (
	"context"
	"slices"

	"github.com/opst/yeastregulatorydb/pkg/domain"
)

type garbage struct{ d *DB }

func (g *garbage) Put(_ context.Context, keys ...string) error {
	return g.d.do(func(st *state) error {
		for _, k := range keys {
			if k != "" && !slices.Contains(st.garbage, k) {
				st.garbage = append(st.garbage, k)
			}
		}
		return nil
	})
}

func (g *garbage) Pop(_ context.Context, callback func(string) error) (bool, error) {
	popped := false
	err := g.d.do(func(st *state) error {
		if len(st.garbage) == 0 {
			return nil
		}
		key := st.garbage[0]
		if callback != nil {
			if err := callback(key); err != nil {
				return err
			}
		}
		st.garbage = st.garbage[1:]
		popped = true
		return nil
	})
	return popped, err
}

type renames struct{ d *DB }

func (r *renames) Put(_ context.Context, rs ...domain.Rename) error {
	return r.d.do(func(st *state) error {
		for _, rn := range rs {
			if rn.TempKey != "" && !slices.Contains(st.renames, rn) {
				st.renames = append(st.renames, rn)
			}
		}
		return nil
	})
}

// Pop runs callback out of the lock, since callback may touch records.
func (r *renames) Pop(_ context.Context, callback func(domain.Rename) error) (bool, error) {
	var taken domain.Rename
	found := false
	r.d.do(func(st *state) error {
		for _, rn := range st.renames {
			if !slices.Contains(st.renaming, rn) {
				taken, found = rn, true
				st.renaming = append(st.renaming, rn)
				break
			}
		}
		return nil
	})
	if !found {
		return false, nil
	}

	var err error
	if callback != nil {
		err = callback(taken)
	}
	r.d.do(func(st *state) error {
		st.renaming = slices.DeleteFunc(st.renaming, func(rn domain.Rename) bool { return rn == taken })
		if err == nil {
			st.renames = slices.DeleteFunc(st.renames, func(rn domain.Rename) bool { return rn == taken })
		}
		return nil
	})
	return err == nil, err
}
