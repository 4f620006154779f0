package garbage

import (
	"context"

	"github.com/opst/yeastregulatorydb/pkg/db"
	kpgerr "github.com/opst/yeastregulatorydb/pkg/db/postgres/errors"
	kpool "github.com/opst/yeastregulatorydb/pkg/db/postgres/pool"
	"github.com/opst/yeastregulatorydb/pkg/domain"
)

type pgRenames struct {
	begin kpool.Begin
	q     kpool.Queryer
}

// NewRenames returns a RenameInterface on the "rename" table.
//
// Put is sent through q. Pop begins a transaction on begin,
// and keeps the popped row locked while its callback runs.
func NewRenames(begin kpool.Begin, q kpool.Queryer) db.RenameInterface {
	return &pgRenames{begin: begin, q: q}
}

func (r *pgRenames) Put(ctx context.Context, renames ...domain.Rename) error {
	keys := make([]string, 0, len(renames))
	owners := make([]int64, 0, len(renames))
	for _, rn := range renames {
		if rn.TempKey == "" {
			continue
		}
		keys = append(keys, rn.TempKey)
		owners = append(owners, rn.OwnerID)
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := r.q.Exec(
		ctx,
		`
		insert into "rename" ("temp_key", "owner_id")
		select * from unnest($1::varchar[], $2::bigint[])
		on conflict ("temp_key") do nothing
		`,
		keys, owners,
	)
	return kpgerr.Classify(err, "rename", keys)
}

func (r *pgRenames) Pop(ctx context.Context, callback func(domain.Rename) error) (bool, error) {
	tx, err := r.begin.Begin(ctx)
	if err != nil {
		return false, kpgerr.Classify(err, "rename", "")
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(
		ctx,
		`
		select "temp_key", "owner_id" from "rename"
		order by "created_at" limit 1 for update skip locked
		`,
	)
	if err != nil {
		return false, kpgerr.Classify(err, "rename", "")
	}
	defer rows.Close()

	var rn domain.Rename
	pop := false
	for rows.Next() {
		if err := rows.Scan(&rn.TempKey, &rn.OwnerID); err != nil {
			return false, err
		}
		pop = true
	}
	if err := rows.Err(); err != nil {
		return false, kpgerr.Classify(err, "rename", "")
	}
	rows.Close()
	if !pop {
		return false, nil
	}

	if callback != nil {
		if err := callback(rn); err != nil {
			return false, err
		}
	}
	if _, err := tx.Exec(ctx, `delete from "rename" where "temp_key" = $1`, rn.TempKey); err != nil {
		return false, kpgerr.Classify(err, "rename", rn.TempKey)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, kpgerr.Classify(err, "rename", rn.TempKey)
	}
	return true, nil
}
