// Package memory implements db.Database on process memory.
//
// It is used by tests and by the testing mode of the servers.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
)

type state struct {
	seq int64

	fileformats map[int64]fileformat.FileFormat
	chrmap      domain.ChrMap
	datasources map[int64]domain.DataSource
	features    map[int64]domain.GenomicFeature
	regulators  map[int64]domain.Regulator

	bindings     map[int64]domain.Binding
	bindingQC    map[int64]domain.BindingManualQC // by binding id
	expressions  map[int64]domain.Expression
	expressionQC map[int64]domain.ExpressionManualQC // by expression id

	backgrounds   map[int64]domain.CallingCardsBackground
	promotersets  map[int64]domain.PromoterSet
	psigs         map[int64]domain.PromoterSetSig
	rankresponses map[int64]domain.RankResponse

	garbage []string
	renames []domain.Rename

	// renames being popped
	renaming []domain.Rename
}

func newState() *state {
	return &state{
		fileformats:   map[int64]fileformat.FileFormat{},
		datasources:   map[int64]domain.DataSource{},
		features:      map[int64]domain.GenomicFeature{},
		regulators:    map[int64]domain.Regulator{},
		bindings:      map[int64]domain.Binding{},
		bindingQC:     map[int64]domain.BindingManualQC{},
		expressions:   map[int64]domain.Expression{},
		expressionQC:  map[int64]domain.ExpressionManualQC{},
		backgrounds:   map[int64]domain.CallingCardsBackground{},
		promotersets:  map[int64]domain.PromoterSet{},
		psigs:         map[int64]domain.PromoterSetSig{},
		rankresponses: map[int64]domain.RankResponse{},
	}
}

func (s *state) clone() *state {
	return &state{
		seq:           s.seq,
		fileformats:   maps.Clone(s.fileformats),
		chrmap:        slices.Clone(s.chrmap),
		datasources:   maps.Clone(s.datasources),
		features:      maps.Clone(s.features),
		regulators:    maps.Clone(s.regulators),
		bindings:      maps.Clone(s.bindings),
		bindingQC:     maps.Clone(s.bindingQC),
		expressions:   maps.Clone(s.expressions),
		expressionQC:  maps.Clone(s.expressionQC),
		backgrounds:   maps.Clone(s.backgrounds),
		promotersets:  maps.Clone(s.promotersets),
		psigs:         maps.Clone(s.psigs),
		rankresponses: maps.Clone(s.rankresponses),
		garbage:       slices.Clone(s.garbage),
		renames:       slices.Clone(s.renames),
		renaming:      slices.Clone(s.renaming),
	}
}

// next issues an id. Ids are unique across tables.
func (s *state) next() int64 {
	s.seq += 1
	return s.seq
}

// DB is an in-memory db.Database.
//
// Atomic holds the lock for the whole transaction, so transactions are serialized.
type DB struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

var _ db.Database = &DB{}

func New() *DB {
	return &DB{mu: &sync.Mutex{}, st: newState()}
}

func (d *DB) do(fn func(st *state) error) error {
	if !d.inTx {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	return fn(d.st)
}

func (d *DB) Atomic(ctx context.Context, fn func(context.Context, db.Database) error) error {
	if d.inTx {
		return fn(ctx, d)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	snapshot := d.st.clone()
	if err := fn(ctx, &DB{mu: d.mu, st: d.st, inTx: true}); err != nil {
		*d.st = *snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		*d.st = *snapshot
		return err
	}
	return nil
}

func (d *DB) Close() error { return nil }

func (d *DB) FileFormats() db.FileFormatInterface         { return &fileformats{d} }
func (d *DB) References() db.ReferenceInterface           { return &references{d} }
func (d *DB) Bindings() db.BindingInterface               { return &bindings{d} }
func (d *DB) Expressions() db.ExpressionInterface         { return &expressions{d} }
func (d *DB) Backgrounds() db.BackgroundInterface         { return &backgrounds{d} }
func (d *DB) PromoterSets() db.PromoterSetInterface       { return &promotersets{d} }
func (d *DB) PromoterSetSigs() db.PromoterSetSigInterface { return &psigs{d} }
func (d *DB) RankResponses() db.RankResponseInterface     { return &rankresponses{d} }
func (d *DB) Garbage() db.GarbageInterface                 { return &garbage{d} }
func (d *DB) Renames() db.RenameInterface                  { return &renames{d} }

// sorted returns values of m in the order of keys, filtered by pred.
func sorted[T any](m map[int64]T, pred func(T) bool) []T {
	keys := slices.Sorted(maps.Keys(m))
	ret := make([]T, 0, len(keys))
	for _, k := range keys {
		if v := m[k]; pred == nil || pred(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// cascade removals. They return blob keys of removed records.

func (s *state) deleteRankResponses(pred func(domain.RankResponse) bool) []string {
	keys := []string{}
	for id, r := range s.rankresponses {
		if pred(r) {
			keys = append(keys, r.FileKey)
			delete(s.rankresponses, id)
		}
	}
	return keys
}

func (s *state) deletePromoterSetSigs(pred func(domain.PromoterSetSig) bool) []string {
	keys := []string{}
	for id, p := range s.psigs {
		if !pred(p) {
			continue
		}
		keys = append(keys, p.FileKey)
		keys = append(keys, s.deleteRankResponses(func(r domain.RankResponse) bool {
			return r.PromoterSetSigID == id
		})...)
		delete(s.psigs, id)
	}
	return keys
}

func nonEmpty(keys []string) []string {
	return slices.DeleteFunc(keys, func(k string) bool { return k == "" })
}
