// Package postgres implements db.Database on PostgreSQL.
package postgres

import (
	"context"

	"github.com/opst/yeastregulatorydb/pkg/db"
	kpgerr "github.com/opst/yeastregulatorydb/pkg/db/postgres/errors"
	"github.com/opst/yeastregulatorydb/pkg/db/postgres/garbage"
	kpool "github.com/opst/yeastregulatorydb/pkg/db/postgres/pool"
	"github.com/opst/yeastregulatorydb/pkg/db/postgres/scanner"
	kpgschema "github.com/opst/yeastregulatorydb/pkg/db/postgres/schema"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

type DB struct {
	pool   kpool.Pool
	q      kpool.Queryer // pool, or a transaction in Atomic
	inTx   bool
	schema *kpgschema.Schema
}

var _ db.Database = &DB{}

type Config struct {
	SchemaRepository string
}

type Option func(*Config) *Config

func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

// New connects to the database at url.
func New(ctx context.Context, url string, options ...Option) (*DB, error) {
	pool, err := kpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return NewWithPool(pool, options...), nil
}

func NewWithPool(pool kpool.Pool, options ...Option) *DB {
	c := &Config{}
	for _, option := range options {
		c = option(c)
	}

	d := &DB{pool: pool, q: pool}
	if c.SchemaRepository != "" {
		d.schema = kpgschema.New(pool, c.SchemaRepository)
	}
	return d
}

// Pool is the connection pool behind d.
func (d *DB) Pool() kpool.Pool {
	return d.pool
}

// Schema is the schema upgrader of the database. It is nil unless WithSchemaRepository is given.
func (d *DB) Schema() *kpgschema.Schema {
	return d.schema
}

func (d *DB) Atomic(ctx context.Context, fn func(context.Context, db.Database) error) error {
	if d.inTx {
		return fn(ctx, d)
	}
	return kpool.WithTx(ctx, d.pool, func(tx kpool.Tx) error {
		return fn(ctx, &DB{pool: d.pool, q: tx, inTx: true, schema: d.schema})
	})
}

func (d *DB) Close() error {
	d.pool.Close()
	return nil
}

func (d *DB) FileFormats() db.FileFormatInterface         { return &fileformats{d} }
func (d *DB) References() db.ReferenceInterface           { return &references{d} }
func (d *DB) Bindings() db.BindingInterface               { return &bindings{d} }
func (d *DB) Expressions() db.ExpressionInterface         { return &expressions{d} }
func (d *DB) Backgrounds() db.BackgroundInterface         { return &backgrounds{d} }
func (d *DB) PromoterSets() db.PromoterSetInterface       { return &promotersets{d} }
func (d *DB) PromoterSetSigs() db.PromoterSetSigInterface { return &psigs{d} }
func (d *DB) RankResponses() db.RankResponseInterface     { return &rankresponses{d} }

func (d *DB) Garbage() db.GarbageInterface {
	var b kpool.Begin = d.pool
	if tx, ok := d.q.(kpool.Tx); ok {
		b = tx
	}
	return garbage.New(b, d.q)
}

func (d *DB) Renames() db.RenameInterface {
	var b kpool.Begin = d.pool
	if tx, ok := d.q.(kpool.Tx); ok {
		b = tx
	}
	return garbage.NewRenames(b, d.q)
}

func queryOne[T any](ctx context.Context, q kpool.Queryer, entity string, key any, sql string, args ...interface{}) (T, error) {
	v, err := scanner.New[T]().QueryOne(ctx, q, sql, args...)
	if err != nil {
		return v, kpgerr.Classify(err, entity, key)
	}
	return v, nil
}

func queryAll[T any](ctx context.Context, q kpool.Queryer, entity string, sql string, args ...interface{}) ([]T, error) {
	v, err := scanner.New[T]().QueryAll(ctx, q, sql, args...)
	if err != nil {
		return nil, kpgerr.Classify(err, entity, "")
	}
	return v, nil
}

// exec runs a command which should affect exactly one row.
func exec(ctx context.Context, q kpool.Queryer, entity string, key any, sql string, args ...interface{}) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return kpgerr.Classify(err, entity, key)
	}
	if tag.RowsAffected() == 0 {
		return xe.NotFound(entity, key)
	}
	return nil
}

// deleteReturningKeys collects blob keys by keysQuery and then runs deleteQuery, in a transaction.
func (d *DB) deleteReturningKeys(ctx context.Context, entity string, id int64, keysQuery string, deleteQuery string) ([]string, error) {
	var keys []string
	err := d.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
		q := tx.(*DB).q
		found, err := queryAll[string](ctx, q, entity, keysQuery, id)
		if err != nil {
			return err
		}
		if err := exec(ctx, q, entity, id, deleteQuery, id); err != nil {
			return err
		}
		for _, k := range found {
			if k != "" {
				keys = append(keys, k)
			}
		}
		return nil
	})
	return keys, err
}

const stampColumns = `"uploader" as "Uploader", "upload_date" as "UploadDate", "modifier" as "Modifier", "modified_date" as "ModifiedDate"`
