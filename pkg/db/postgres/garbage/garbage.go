// Package garbage keeps blob keys left behind by deleted records, on the "garbage" table.
package garbage

import (
	"context"

	"github.com/opst/yeastregulatorydb/pkg/db"
	kpgerr "github.com/opst/yeastregulatorydb/pkg/db/postgres/errors"
	kpool "github.com/opst/yeastregulatorydb/pkg/db/postgres/pool"
)

type pgGarbage struct {
	begin kpool.Begin
	q     kpool.Queryer
}

// New returns a GarbageInterface.
//
// Put is sent through q. Pop begins a transaction on begin.
func New(begin kpool.Begin, q kpool.Queryer) db.GarbageInterface {
	return &pgGarbage{begin: begin, q: q}
}

func (g *pgGarbage) Put(ctx context.Context, keys ...string) error {
	nonEmpty := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			nonEmpty = append(nonEmpty, k)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	_, err := g.q.Exec(
		ctx,
		`
		insert into "garbage" ("key")
		select unnest($1::varchar[])
		on conflict ("key") do nothing
		`,
		nonEmpty,
	)
	return kpgerr.Classify(err, "garbage", nonEmpty)
}

func (g *pgGarbage) Pop(ctx context.Context, callback func(string) error) (bool, error) {
	tx, err := g.begin.Begin(ctx)
	if err != nil {
		return false, kpgerr.Classify(err, "garbage", "")
	}
	defer tx.Rollback(ctx)

	// pop a record from garbage table
	rows, err := tx.Query(
		ctx,
		`
		with "popped" as (
			select "key" from "garbage" order by "created_at" limit 1 for update skip locked
		),
		"deleted" as (
			delete from "garbage" where "key" in (select "key" from "popped")
		)
		select "key" from "popped"
		`,
	)
	if err != nil {
		return false, kpgerr.Classify(err, "garbage", "")
	}
	defer rows.Close()

	var key string
	pop := false
	for rows.Next() {
		if err := rows.Scan(&key); err != nil {
			return false, err
		}
		pop = true
	}
	if err := rows.Err(); err != nil {
		return false, kpgerr.Classify(err, "garbage", "")
	}
	rows.Close()

	if pop && callback != nil {
		if err := callback(key); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, kpgerr.Classify(err, "garbage", key)
	}
	return pop, nil
}
