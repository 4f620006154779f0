// Package postgres implements tasks.Queue on the "task" table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kpgerr "github.com/opst/yeastregulatorydb/pkg/db/postgres/errors"
	kpool "github.com/opst/yeastregulatorydb/pkg/db/postgres/pool"
	"github.com/opst/yeastregulatorydb/pkg/db/postgres/scanner"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/tasks"
)

type pgQueue struct {
	pool kpool.Queryer
}

// New returns a Queue on pool.
func New(pool kpool.Queryer) tasks.Queue {
	return &pgQueue{pool: pool}
}

type taskRow struct {
	ID         int64
	Kind       string
	Payload    string
	Status     string
	Attempts   int
	LastError  string
	Result     string
	RunAfter   time.Time
	LeaseUntil *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r taskRow) task() tasks.Task {
	t := tasks.Task{
		ID:         r.ID,
		Kind:       tasks.Kind(r.Kind),
		Payload:    json.RawMessage(r.Payload),
		Status:     tasks.Status(r.Status),
		Attempts:   r.Attempts,
		LastError:  r.LastError,
		RunAfter:   r.RunAfter,
		LeaseUntil: r.LeaseUntil,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Result != "" {
		t.Result = json.RawMessage(r.Result)
	}
	return t
}

const taskColumns = `
	"id" as "ID", "kind" as "Kind", "payload"::text as "Payload", "status"::text as "Status",
	"attempts" as "Attempts", "last_error" as "LastError", coalesce("result"::text, '') as "Result",
	"run_after" as "RunAfter", "lease_until" as "LeaseUntil",
	"created_at" as "CreatedAt", "updated_at" as "UpdatedAt"
`

// claimable is the condition of tasks which Claim can take.
const claimable = `(
	("status" = 'pending' and "run_after" <= now())
	or ("status" = 'running' and "lease_until" < now())
)`

func (q *pgQueue) one(ctx context.Context, key any, sql string, args ...interface{}) (tasks.Task, error) {
	row, err := scanner.New[taskRow]().QueryOne(ctx, q.pool, sql, args...)
	if err != nil {
		return tasks.Task{}, kpgerr.Classify(err, "task", key)
	}
	return row.task(), nil
}

func (q *pgQueue) Submit(ctx context.Context, kind tasks.Kind, payload []byte) (tasks.Task, error) {
	return q.one(
		ctx, kind,
		`
		insert into "task" ("kind", "payload") values ($1, $2::jsonb)
		returning `+taskColumns,
		string(kind), string(payload),
	)
}

func (q *pgQueue) claim(ctx context.Context, key any, filter string, lease time.Duration, args ...interface{}) (tasks.Task, bool, error) {
	args = append([]interface{}{lease.Seconds()}, args...)
	t, err := q.one(
		ctx, key,
		`
		with "next" as (
			select "id" from "task"
			where `+claimable+filter+`
			order by "id"
			limit 1
			for update skip locked
		)
		update "task"
		set
			"status" = 'running',
			"attempts" = "attempts" + 1,
			"lease_until" = now() + $1::double precision * interval '1 second',
			"updated_at" = now()
		where "id" in (select "id" from "next")
		returning `+taskColumns,
		args...,
	)
	if errors.Is(err, xe.ErrNotFound) {
		return tasks.Task{}, false, nil
	}
	if err != nil {
		return tasks.Task{}, false, err
	}
	return t, true, nil
}

func (q *pgQueue) Claim(ctx context.Context, lease time.Duration) (tasks.Task, bool, error) {
	return q.claim(ctx, "", "", lease)
}

func (q *pgQueue) ClaimByID(ctx context.Context, id int64, lease time.Duration) (tasks.Task, bool, error) {
	t, ok, err := q.claim(ctx, id, ` and "id" = $2`, lease, id)
	if err != nil || ok {
		return t, ok, err
	}
	current, err := q.Get(ctx, id)
	return current, false, err
}

func (q *pgQueue) update(ctx context.Context, id int64, set string, args ...interface{}) error {
	args = append([]interface{}{id}, args...)
	tag, err := q.pool.Exec(
		ctx,
		`
		update "task"
		set `+set+`, "lease_until" = null, "updated_at" = now()
		where "id" = $1
		`,
		args...,
	)
	if err != nil {
		return kpgerr.Classify(err, "task", id)
	}
	if tag.RowsAffected() == 0 {
		return xe.NotFound("task", id)
	}
	return nil
}

func (q *pgQueue) Succeed(ctx context.Context, id int64, result []byte) error {
	return q.update(ctx, id, `"status" = 'succeeded', "result" = $2::jsonb`, string(result))
}

func (q *pgQueue) Retry(ctx context.Context, id int64, cause string, runAfter time.Time) error {
	return q.update(ctx, id, `"status" = 'pending', "last_error" = $2, "run_after" = $3`, cause, runAfter)
}

func (q *pgQueue) Fail(ctx context.Context, id int64, cause string) error {
	return q.update(ctx, id, `"status" = 'failed', "last_error" = $2`, cause)
}

func (q *pgQueue) Get(ctx context.Context, id int64) (tasks.Task, error) {
	return q.one(ctx, id, `select `+taskColumns+` from "task" where "id" = $1`, id)
}
