// Package pool narrows pgx connection pools and transactions to what the repositories use,
// so that a transaction can stand in for the pool.
package pool

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Begin starts a transaction. A Begin of Tx starts a savepoint.
type Begin interface {
	Begin(ctx context.Context) (Tx, error)
}

// Queryer sends SQL. It is implemented by Pool and Tx.
type Queryer interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Tx interface {
	Queryer
	Begin

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Pool runs queries on an arbitrary idle connection, out of any transaction.
type Pool interface {
	Queryer
	Begin

	Ping(ctx context.Context) error
	Close()
}

// pgxTx wraps pgx.Tx, whose Begin returns pgx.Tx instead of Tx.
type pgxTx struct {
	pgx.Tx
}

var _ Tx = pgxTx{}

func (tx pgxTx) Begin(ctx context.Context) (Tx, error) {
	return begun(tx.Tx.Begin(ctx))
}

type pgxPool struct {
	*pgxpool.Pool
}

var _ Pool = pgxPool{}

func (p pgxPool) Begin(ctx context.Context) (Tx, error) {
	return begun(p.Pool.Begin(ctx))
}

func begun(tx pgx.Tx, err error) (Tx, error) {
	if err != nil {
		return nil, err
	}
	return pgxTx{tx}, nil
}

func Wrap(p *pgxpool.Pool) Pool {
	return pgxPool{p}
}

// Connect opens a pool to the database at uri, and checks that it is reachable.
func Connect(ctx context.Context, uri string) (Pool, error) {
	p, err := pgxpool.Connect(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return Wrap(p), nil
}

// WithTx runs fn in a transaction begun on b.
//
// The transaction is committed when fn returns nil, and rolled back otherwise.
func WithTx(ctx context.Context, b Begin, fn func(tx Tx) error) error {
	tx, err := b.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
