package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	kpgerr "github.com/opst/yeastregulatorydb/pkg/db/postgres/errors"
	kpool "github.com/opst/yeastregulatorydb/pkg/db/postgres/pool"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/lock"
)

type pgLocker struct {
	pool kpool.Queryer
}

// New returns a Locker on the "lock" table.
func New(pool kpool.Queryer) lock.Locker {
	return &pgLocker{pool: pool}
}

func (l *pgLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (lock.Release, bool, error) {
	holder := uuid.NewString()

	var got string
	err := l.pool.QueryRow(
		ctx,
		`
		insert into "lock" ("name", "holder", "expires_at")
		values ($1, $2, now() + $3::double precision * interval '1 second')
		on conflict ("name") do update
		set "holder" = excluded."holder", "expires_at" = excluded."expires_at"
		where "lock"."expires_at" <= now()
		returning "holder"::text
		`,
		name, holder, ttl.Seconds(),
	).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kpgerr.Classify(err, "lock", name)
	}
	if got != holder {
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		_, err := l.pool.Exec(
			ctx,
			`delete from "lock" where "name" = $1 and "holder" = $2`,
			name, holder,
		)
		return xe.Wrap(err)
	}, true, nil
}
