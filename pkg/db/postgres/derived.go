package postgres

import (
	"context"

	"github.com/opst/yeastregulatorydb/pkg/db"
	kpgerr "github.com/opst/yeastregulatorydb/pkg/db/postgres/errors"
	"github.com/opst/yeastregulatorydb/pkg/domain"
)

type backgrounds struct{ d *DB }

const backgroundColumns = `
	"id" as "ID", "name" as "Name", "fileformat_id" as "FileFormatID", "file" as "FileKey", "notes" as "Notes",
	"genomic_inserts" as "Genomic", "mito_inserts" as "Mito", "plasmid_inserts" as "Plasmid",
` + stampColumns

func (b *backgrounds) Create(ctx context.Context, new domain.CallingCardsBackground) (domain.CallingCardsBackground, error) {
	if err := b.d.q.QueryRow(
		ctx,
		`
		insert into "callingcards_background" (
			"name", "fileformat_id", "file", "notes", "genomic_inserts", "mito_inserts", "plasmid_inserts",
			"uploader", "upload_date", "modifier", "modified_date"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning "id"
		`,
		new.Name, new.FileFormatID, new.FileKey, new.Notes, new.Genomic, new.Mito, new.Plasmid,
		new.Uploader, new.UploadDate, new.Modifier, new.ModifiedDate,
	).Scan(&new.ID); err != nil {
		return new, kpgerr.Classify(err, "callingcardsbackground", new.Name)
	}
	return new, nil
}

func (b *backgrounds) Get(ctx context.Context, id int64) (domain.CallingCardsBackground, error) {
	return queryOne[domain.CallingCardsBackground](
		ctx, b.d.q, "callingcardsbackground", id,
		`select `+backgroundColumns+` from "callingcards_background" where "id" = $1`, id,
	)
}

func (b *backgrounds) List(ctx context.Context) ([]domain.CallingCardsBackground, error) {
	return queryAll[domain.CallingCardsBackground](
		ctx, b.d.q, "callingcardsbackground",
		`select `+backgroundColumns+` from "callingcards_background" order by "id"`,
	)
}

func (b *backgrounds) SetFile(ctx context.Context, id int64, key string) error {
	return exec(
		ctx, b.d.q, "callingcardsbackground", id,
		`update "callingcards_background" set "file" = $2 where "id" = $1`, id, key,
	)
}

func (b *backgrounds) Delete(ctx context.Context, id int64) ([]string, error) {
	return b.d.deleteReturningKeys(
		ctx, "callingcardsbackground", id,
		`
		select "file" from "callingcards_background" where "id" = $1
		union all
		select "file" from "promotersetsig" where "background_id" = $1
		union all
		select rr."file" from "rankresponse" as rr
		inner join "promotersetsig" as p on p."id" = rr."promotersetsig_id"
		where p."background_id" = $1
		`,
		`delete from "callingcards_background" where "id" = $1`,
	)
}

type promotersets struct{ d *DB }

const promotersetColumns = `
	"id" as "ID", "name" as "Name", "fileformat_id" as "FileFormatID", "file" as "FileKey", "notes" as "Notes",
` + stampColumns

func (p *promotersets) Create(ctx context.Context, new domain.PromoterSet) (domain.PromoterSet, error) {
	if err := p.d.q.QueryRow(
		ctx,
		`
		insert into "promoterset" (
			"name", "fileformat_id", "file", "notes", "uploader", "upload_date", "modifier", "modified_date"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning "id"
		`,
		new.Name, new.FileFormatID, new.FileKey, new.Notes,
		new.Uploader, new.UploadDate, new.Modifier, new.ModifiedDate,
	).Scan(&new.ID); err != nil {
		return new, kpgerr.Classify(err, "promoterset", new.Name)
	}
	return new, nil
}

func (p *promotersets) Get(ctx context.Context, id int64) (domain.PromoterSet, error) {
	return queryOne[domain.PromoterSet](
		ctx, p.d.q, "promoterset", id,
		`select `+promotersetColumns+` from "promoterset" where "id" = $1`, id,
	)
}

func (p *promotersets) List(ctx context.Context) ([]domain.PromoterSet, error) {
	return queryAll[domain.PromoterSet](
		ctx, p.d.q, "promoterset",
		`select `+promotersetColumns+` from "promoterset" order by "id"`,
	)
}

func (p *promotersets) SetFile(ctx context.Context, id int64, key string) error {
	return exec(ctx, p.d.q, "promoterset", id, `update "promoterset" set "file" = $2 where "id" = $1`, id, key)
}

func (p *promotersets) Delete(ctx context.Context, id int64) ([]string, error) {
	return p.d.deleteReturningKeys(
		ctx, "promoterset", id,
		`
		select "file" from "promoterset" where "id" = $1
		union all
		select "file" from "promotersetsig" where "promoter_id" = $1
		union all
		select rr."file" from "rankresponse" as rr
		inner join "promotersetsig" as p on p."id" = rr."promotersetsig_id"
		where p."promoter_id" = $1
		`,
		`delete from "promoterset" where "id" = $1`,
	)
}

type psigs struct{ d *DB }

const psigColumns = `
	s."id" as "ID", s."binding_id" as "BindingID", s."promoter_id" as "PromoterID",
	coalesce(s."background_id", 0) as "BackgroundID", s."fileformat_id" as "FileFormatID", s."file" as "FileKey",
	s."uploader" as "Uploader", s."upload_date" as "UploadDate", s."modifier" as "Modifier", s."modified_date" as "ModifiedDate"
`

func (p *psigs) Create(ctx context.Context, new domain.PromoterSetSig) (domain.PromoterSetSig, error) {
	if err := p.d.q.QueryRow(
		ctx,
		`
		insert into "promotersetsig" (
			"binding_id", "promoter_id", "background_id", "fileformat_id", "file",
			"uploader", "upload_date", "modifier", "modified_date"
		)
		values ($1, $2, nullif($3::bigint, 0), $4, $5, $6, $7, $8, $9)
		returning "id"
		`,
		new.BindingID, new.PromoterID, new.BackgroundID, new.FileFormatID, new.FileKey,
		new.Uploader, new.UploadDate, new.Modifier, new.ModifiedDate,
	).Scan(&new.ID); err != nil {
		return new, kpgerr.Classify(err, "promotersetsig", new.NaturalKey())
	}
	return new, nil
}

func (p *psigs) Get(ctx context.Context, id int64) (domain.PromoterSetSig, error) {
	return queryOne[domain.PromoterSetSig](
		ctx, p.d.q, "promotersetsig", id,
		`select `+psigColumns+` from "promotersetsig" as s where s."id" = $1`, id,
	)
}

func (p *psigs) Find(ctx context.Context, q db.PromoterSetSigQuery) ([]domain.PromoterSetSig, error) {
	return queryAll[domain.PromoterSetSig](
		ctx, p.d.q, "promotersetsig",
		`
		select `+psigColumns+`
		from "promotersetsig" as s
		inner join "binding" as b on b."id" = s."binding_id"
		where ($1::bigint = 0 or s."binding_id" = $1)
			and ($2::bigint = 0 or s."promoter_id" = $2)
			and ($3::bigint = 0 or s."background_id" = $3)
			and ($4::bigint = 0 or b."regulator_id" = $4)
		order by s."id"
		`,
		q.BindingID, q.PromoterID, q.BackgroundID, q.RegulatorID,
	)
}

func (p *psigs) Lookup(ctx context.Context, bindingID, promoterID, backgroundID int64) (domain.PromoterSetSig, error) {
	key := domain.PromoterSetSig{BindingID: bindingID, PromoterID: promoterID, BackgroundID: backgroundID}.NaturalKey()
	return queryOne[domain.PromoterSetSig](
		ctx, p.d.q, "promotersetsig", key,
		`
		select `+psigColumns+` from "promotersetsig" as s
		where s."binding_id" = $1 and s."promoter_id" = $2
			and s."background_id" is not distinct from nullif($3::bigint, 0)
		`,
		bindingID, promoterID, backgroundID,
	)
}

func (p *psigs) SetFile(ctx context.Context, id int64, key string) error {
	return exec(ctx, p.d.q, "promotersetsig", id, `update "promotersetsig" set "file" = $2 where "id" = $1`, id, key)
}

func (p *psigs) Delete(ctx context.Context, id int64) ([]string, error) {
	return p.d.deleteReturningKeys(
		ctx, "promotersetsig", id,
		`
		select "file" from "promotersetsig" where "id" = $1
		union all
		select "file" from "rankresponse" where "promotersetsig_id" = $1
		`,
		`delete from "promotersetsig" where "id" = $1`,
	)
}

type rankresponses struct{ d *DB }

const rankresponseColumns = `
	"id" as "ID", "promotersetsig_id" as "PromoterSetSigID", "expression_id" as "ExpressionID",
	"expression_effect_threshold" as "ExpressionEffectThreshold",
	"expression_pvalue_threshold" as "ExpressionPvalueThreshold",
	"normalized" as "Normalized", "significant_response" as "SignificantResponse",
	"fileformat_id" as "FileFormatID", "file" as "FileKey",
` + stampColumns

func (r *rankresponses) Create(ctx context.Context, new domain.RankResponse) (domain.RankResponse, error) {
	if err := r.d.q.QueryRow(
		ctx,
		`
		insert into "rankresponse" (
			"promotersetsig_id", "expression_id", "expression_effect_threshold", "expression_pvalue_threshold",
			"normalized", "significant_response", "fileformat_id", "file",
			"uploader", "upload_date", "modifier", "modified_date"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		returning "id"
		`,
		new.PromoterSetSigID, new.ExpressionID, new.ExpressionEffectThreshold, new.ExpressionPvalueThreshold,
		new.Normalized, new.SignificantResponse, new.FileFormatID, new.FileKey,
		new.Uploader, new.UploadDate, new.Modifier, new.ModifiedDate,
	).Scan(&new.ID); err != nil {
		return new, kpgerr.Classify(err, "rankresponse", new.NaturalKey())
	}
	return new, nil
}

func (r *rankresponses) Get(ctx context.Context, id int64) (domain.RankResponse, error) {
	return queryOne[domain.RankResponse](
		ctx, r.d.q, "rankresponse", id,
		`select `+rankresponseColumns+` from "rankresponse" where "id" = $1`, id,
	)
}

func (r *rankresponses) Find(ctx context.Context, q db.RankResponseQuery) ([]domain.RankResponse, error) {
	return queryAll[domain.RankResponse](
		ctx, r.d.q, "rankresponse",
		`
		select `+rankresponseColumns+` from "rankresponse"
		where ($1::bigint = 0 or "promotersetsig_id" = $1) and ($2::bigint = 0 or "expression_id" = $2)
		order by "id"
		`,
		q.PromoterSetSigID, q.ExpressionID,
	)
}

func (r *rankresponses) Lookup(ctx context.Context, promoterSetSigID, expressionID int64) (domain.RankResponse, error) {
	key := domain.RankResponse{PromoterSetSigID: promoterSetSigID, ExpressionID: expressionID}.NaturalKey()
	return queryOne[domain.RankResponse](
		ctx, r.d.q, "rankresponse", key,
		`select `+rankresponseColumns+` from "rankresponse" where "promotersetsig_id" = $1 and "expression_id" = $2`,
		promoterSetSigID, expressionID,
	)
}

func (r *rankresponses) SetFile(ctx context.Context, id int64, key string) error {
	return exec(ctx, r.d.q, "rankresponse", id, `update "rankresponse" set "file" = $2 where "id" = $1`, id, key)
}

func (r *rankresponses) Delete(ctx context.Context, id int64) ([]string, error) {
	return r.d.deleteReturningKeys(
		ctx, "rankresponse", id,
		`select "file" from "rankresponse" where "id" = $1`,
		`delete from "rankresponse" where "id" = $1`,
	)
}
