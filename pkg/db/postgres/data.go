package postgres

import (
	"context"

	"github.com/opst/yeastregulatorydb/pkg/db"
	kpgerr "github.com/opst/yeastregulatorydb/pkg/db/postgres/errors"
	"github.com/opst/yeastregulatorydb/pkg/domain"
)

type bindings struct{ d *DB }

const bindingColumns = `
	b."id" as "ID", b."regulator_id" as "RegulatorID", b."batch" as "Batch", b."replicate" as "Replicate",
	b."source_id" as "SourceID", b."source_orig_id" as "SourceOrigID", b."strain" as "Strain", b."notes" as "Notes",
	b."file" as "FileKey",
	b."genomic_inserts" as "Genomic", b."mito_inserts" as "Mito", b."plasmid_inserts" as "Plasmid",
	b."uploader" as "Uploader", b."upload_date" as "UploadDate", b."modifier" as "Modifier", b."modified_date" as "ModifiedDate"
`

func (b *bindings) Create(ctx context.Context, new domain.Binding) (domain.Binding, error) {
	err := b.d.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
		q := tx.(*DB).q
		if err := q.QueryRow(
			ctx,
			`
			insert into "binding" (
				"regulator_id", "batch", "replicate", "source_id", "source_orig_id", "strain", "notes", "file",
				"genomic_inserts", "mito_inserts", "plasmid_inserts",
				"uploader", "upload_date", "modifier", "modified_date"
			)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			returning "id"
			`,
			new.RegulatorID, new.Batch, new.Replicate, new.SourceID, new.SourceOrigID, new.Strain, new.Notes, new.FileKey,
			new.Genomic, new.Mito, new.Plasmid,
			new.Uploader, new.UploadDate, new.Modifier, new.ModifiedDate,
		).Scan(&new.ID); err != nil {
			return kpgerr.Classify(err, "binding", new.NaturalKey())
		}

		if _, err := q.Exec(
			ctx,
			`
			insert into "binding_manual_qc" ("binding_id", "uploader", "upload_date", "modifier", "modified_date")
			values ($1, $2, $3, $4, $5)
			`,
			new.ID, new.Uploader, new.UploadDate, new.Modifier, new.ModifiedDate,
		); err != nil {
			return kpgerr.Classify(err, "bindingmanualqc", new.ID)
		}
		return nil
	})
	return new, err
}

func (b *bindings) Get(ctx context.Context, id int64) (domain.Binding, error) {
	return queryOne[domain.Binding](
		ctx, b.d.q, "binding", id,
		`select `+bindingColumns+` from "binding" as b where b."id" = $1`, id,
	)
}

func (b *bindings) Find(ctx context.Context, q db.BindingQuery) ([]domain.Binding, error) {
	return queryAll[domain.Binding](
		ctx, b.d.q, "binding",
		`
		select `+bindingColumns+`
		from "binding" as b
		inner join "datasource" as ds on ds."id" = b."source_id"
		inner join "binding_manual_qc" as qc on qc."binding_id" = b."id"
		where ($1::bigint = 0 or b."regulator_id" = $1)
			and ($2::bigint = 0 or b."source_id" = $2)
			and ($3::text = '' or ds."assay" = $3)
			and ($4::text = '' or qc."data_usable"::text = $4)
			and ($5::text = '' or b."batch" = $5)
		order by b."id"
		`,
		q.RegulatorID, q.SourceID, q.Assay, string(q.DataUsable), q.Batch,
	)
}

func (b *bindings) Update(ctx context.Context, upd domain.Binding) error {
	return exec(
		ctx, b.d.q, "binding", upd.ID,
		`
		update "binding" set
			"regulator_id" = $2, "batch" = $3, "replicate" = $4, "source_id" = $5, "source_orig_id" = $6,
			"strain" = $7, "notes" = $8, "file" = $9,
			"genomic_inserts" = $10, "mito_inserts" = $11, "plasmid_inserts" = $12,
			"modifier" = $13, "modified_date" = $14
		where "id" = $1
		`,
		upd.ID, upd.RegulatorID, upd.Batch, upd.Replicate, upd.SourceID, upd.SourceOrigID,
		upd.Strain, upd.Notes, upd.FileKey,
		upd.Genomic, upd.Mito, upd.Plasmid,
		upd.Modifier, upd.ModifiedDate,
	)
}

func (b *bindings) SetFile(ctx context.Context, id int64, key string) error {
	return exec(ctx, b.d.q, "binding", id, `update "binding" set "file" = $2 where "id" = $1`, id, key)
}

const bindingQCColumns = `
	"id" as "ID", "binding_id" as "BindingID",
	"data_usable"::text as "DataUsable", "passing_replicate"::text as "PassingReplicate",
	"best_datatype"::text as "BestDatatype", "rank_recall"::text as "RankRecall", "notes" as "Notes",
` + stampColumns

func (b *bindings) GetQC(ctx context.Context, bindingID int64) (domain.BindingManualQC, error) {
	return queryOne[domain.BindingManualQC](
		ctx, b.d.q, "bindingmanualqc", bindingID,
		`select `+bindingQCColumns+` from "binding_manual_qc" where "binding_id" = $1`, bindingID,
	)
}

func (b *bindings) UpdateQC(ctx context.Context, qc domain.BindingManualQC) (domain.BindingManualQC, error) {
	var prev domain.BindingManualQC
	err := b.d.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
		q := tx.(*DB).q
		found, err := queryOne[domain.BindingManualQC](
			ctx, q, "bindingmanualqc", qc.BindingID,
			`select `+bindingQCColumns+` from "binding_manual_qc" where "binding_id" = $1 for update`, qc.BindingID,
		)
		if err != nil {
			return err
		}
		prev = found
		return exec(
			ctx, q, "bindingmanualqc", qc.BindingID,
			`
			update "binding_manual_qc" set
				"data_usable" = $2::text::"qc_label", "passing_replicate" = $3::text::"qc_label",
				"best_datatype" = $4::text::"qc_label", "rank_recall" = $5::text::"qc_label",
				"notes" = $6, "modifier" = $7, "modified_date" = $8
			where "binding_id" = $1
			`,
			qc.BindingID, string(qc.DataUsable), string(qc.PassingReplicate),
			string(qc.BestDatatype), string(qc.RankRecall),
			qc.Notes, qc.Modifier, qc.ModifiedDate,
		)
	})
	return prev, err
}

func (b *bindings) Delete(ctx context.Context, id int64) ([]string, error) {
	return b.d.deleteReturningKeys(
		ctx, "binding", id,
		`
		select "file" from "binding" where "id" = $1
		union all
		select "file" from "promotersetsig" where "binding_id" = $1
		union all
		select rr."file" from "rankresponse" as rr
		inner join "promotersetsig" as p on p."id" = rr."promotersetsig_id"
		where p."binding_id" = $1
		`,
		`delete from "binding" where "id" = $1`,
	)
}

type expressions struct{ d *DB }

const expressionColumns = `
	"id" as "ID", "regulator_id" as "RegulatorID", "batch" as "Batch", "replicate" as "Replicate",
	"control" as "Control", "mechanism" as "Mechanism", "restriction" as "Restriction", "time" as "Time",
	"strain" as "Strain", "source_id" as "SourceID", "notes" as "Notes", "file" as "FileKey",
` + stampColumns

func (e *expressions) Create(ctx context.Context, new domain.Expression) (domain.Expression, error) {
	err := e.d.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
		q := tx.(*DB).q
		if err := q.QueryRow(
			ctx,
			`
			insert into "expression" (
				"regulator_id", "batch", "replicate", "control", "mechanism", "restriction", "time",
				"strain", "source_id", "notes", "file",
				"uploader", "upload_date", "modifier", "modified_date"
			)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			returning "id"
			`,
			new.RegulatorID, new.Batch, new.Replicate, string(new.Control), string(new.Mechanism), new.Restriction, new.Time,
			new.Strain, new.SourceID, new.Notes, new.FileKey,
			new.Uploader, new.UploadDate, new.Modifier, new.ModifiedDate,
		).Scan(&new.ID); err != nil {
			return kpgerr.Classify(err, "expression", new.NaturalKey())
		}

		if _, err := q.Exec(
			ctx,
			`
			insert into "expression_manual_qc" ("expression_id", "uploader", "upload_date", "modifier", "modified_date")
			values ($1, $2, $3, $4, $5)
			`,
			new.ID, new.Uploader, new.UploadDate, new.Modifier, new.ModifiedDate,
		); err != nil {
			return kpgerr.Classify(err, "expressionmanualqc", new.ID)
		}
		return nil
	})
	return new, err
}

func (e *expressions) Get(ctx context.Context, id int64) (domain.Expression, error) {
	return queryOne[domain.Expression](
		ctx, e.d.q, "expression", id,
		`select `+expressionColumns+` from "expression" where "id" = $1`, id,
	)
}

func (e *expressions) Find(ctx context.Context, q db.ExpressionQuery) ([]domain.Expression, error) {
	return queryAll[domain.Expression](
		ctx, e.d.q, "expression",
		`
		select `+expressionColumns+` from "expression"
		where ($1::bigint = 0 or "regulator_id" = $1) and ($2::bigint = 0 or "source_id" = $2)
		order by "id"
		`,
		q.RegulatorID, q.SourceID,
	)
}

func (e *expressions) SetFile(ctx context.Context, id int64, key string) error {
	return exec(ctx, e.d.q, "expression", id, `update "expression" set "file" = $2 where "id" = $1`, id, key)
}

func (e *expressions) Delete(ctx context.Context, id int64) ([]string, error) {
	return e.d.deleteReturningKeys(
		ctx, "expression", id,
		`
		select "file" from "expression" where "id" = $1
		union all
		select "file" from "rankresponse" where "expression_id" = $1
		`,
		`delete from "expression" where "id" = $1`,
	)
}
