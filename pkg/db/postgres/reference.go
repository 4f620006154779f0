package postgres

import (
	"context"
	"encoding/json"

	"github.com/opst/yeastregulatorydb/pkg/db"
	kpgerr "github.com/opst/yeastregulatorydb/pkg/db/postgres/errors"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
)

type fileformats struct{ d *DB }

const fileformatColumns = `
	"id" as "ID", "name" as "Name", "separator" as "Separator", "fields" as "Fields",
	"feature_identifier_col" as "FeatureIdentifierCol", "effect_col" as "EffectCol", "pval_col" as "PvalCol",
	"default_effect_threshold" as "DefaultEffectThreshold", "default_pvalue_threshold" as "DefaultPvalueThreshold"
`

func (f *fileformats) Create(ctx context.Context, ff fileformat.FileFormat) (fileformat.FileFormat, error) {
	fields, err := json.Marshal(ff.Fields)
	if err != nil {
		return ff, xe.Wrap(err)
	}
	if err := f.d.q.QueryRow(
		ctx,
		`
		insert into "fileformat" (
			"name", "separator", "fields", "feature_identifier_col", "effect_col", "pval_col",
			"default_effect_threshold", "default_pvalue_threshold"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning "id"
		`,
		ff.Name, string(ff.Separator), string(fields), ff.FeatureIdentifierCol, ff.EffectCol, ff.PvalCol,
		ff.DefaultEffectThreshold, ff.DefaultPvalueThreshold,
	).Scan(&ff.ID); err != nil {
		return ff, kpgerr.Classify(err, "fileformat", ff.Name)
	}
	return ff, nil
}

func (f *fileformats) Get(ctx context.Context, id int64) (fileformat.FileFormat, error) {
	return queryOne[fileformat.FileFormat](
		ctx, f.d.q, "fileformat", id,
		`select `+fileformatColumns+` from "fileformat" where "id" = $1`, id,
	)
}

func (f *fileformats) GetByName(ctx context.Context, name string) (fileformat.FileFormat, error) {
	return queryOne[fileformat.FileFormat](
		ctx, f.d.q, "fileformat", name,
		`select `+fileformatColumns+` from "fileformat" where "name" = $1`, name,
	)
}

func (f *fileformats) List(ctx context.Context) ([]fileformat.FileFormat, error) {
	return queryAll[fileformat.FileFormat](
		ctx, f.d.q, "fileformat",
		`select `+fileformatColumns+` from "fileformat" order by "id"`,
	)
}

type references struct{ d *DB }

func (r *references) PutChrMap(ctx context.Context, chrmap domain.ChrMap) error {
	return r.d.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
		q := tx.(*DB).q
		if _, err := q.Exec(ctx, `truncate "chrmap" restart identity`); err != nil {
			return kpgerr.Classify(err, "chrmap", "")
		}
		for _, c := range chrmap {
			if _, err := q.Exec(
				ctx,
				`
				insert into "chrmap" (
					"refseq", "igenomes", "ensembl", "ucsc", "mitra", "numbered", "chr", "seqlength", "type"
				)
				values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				`,
				c.Refseq, c.Igenomes, c.Ensembl, c.Ucsc, c.Mitra, c.Numbered, c.Chr, c.Seqlength, string(c.Type),
			); err != nil {
				return kpgerr.Classify(err, "chrmap", c.Ucsc)
			}
		}
		return nil
	})
}

func (r *references) ChrMap(ctx context.Context) (domain.ChrMap, error) {
	return queryAll[domain.Contig](
		ctx, r.d.q, "chrmap",
		`
		select
			"id" as "ID", "refseq" as "Refseq", "igenomes" as "Igenomes", "ensembl" as "Ensembl",
			"ucsc" as "Ucsc", "mitra" as "Mitra", "numbered" as "Numbered", "chr" as "Chr",
			"seqlength" as "Seqlength", "type" as "Type"
		from "chrmap" order by "id"
		`,
	)
}

const datasourceColumns = `
	"id" as "ID", "name" as "Name", "lab" as "Lab", "assay" as "Assay", "workflow" as "Workflow",
	"fileformat_id" as "FileFormatID", "description" as "Description", "citation" as "Citation",
` + stampColumns

func (r *references) CreateDataSource(ctx context.Context, ds domain.DataSource) (domain.DataSource, error) {
	if err := r.d.q.QueryRow(
		ctx,
		`
		insert into "datasource" (
			"name", "lab", "assay", "workflow", "fileformat_id", "description", "citation",
			"uploader", "upload_date", "modifier", "modified_date"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning "id"
		`,
		ds.Name, ds.Lab, ds.Assay, ds.Workflow, ds.FileFormatID, ds.Description, ds.Citation,
		ds.Uploader, ds.UploadDate, ds.Modifier, ds.ModifiedDate,
	).Scan(&ds.ID); err != nil {
		return ds, kpgerr.Classify(err, "datasource", ds.Name)
	}
	return ds, nil
}

func (r *references) GetDataSource(ctx context.Context, id int64) (domain.DataSource, error) {
	return queryOne[domain.DataSource](
		ctx, r.d.q, "datasource", id,
		`select `+datasourceColumns+` from "datasource" where "id" = $1`, id,
	)
}

func (r *references) GetDataSourceByName(ctx context.Context, name string) (domain.DataSource, error) {
	return queryOne[domain.DataSource](
		ctx, r.d.q, "datasource", name,
		`select `+datasourceColumns+` from "datasource" where "name" = $1`, name,
	)
}

const genomicfeatureColumns = `
	"id" as "ID", "chr" as "Chr", "start" as "Start", "end" as "End", "strand" as "Strand",
	"type" as "Type", "biotype" as "Biotype", "locus_tag" as "LocusTag", "symbol" as "Symbol",
	"source" as "Source", "alias" as "Alias", "note" as "Note"
`

func (r *references) CreateGenomicFeature(ctx context.Context, gf domain.GenomicFeature) (domain.GenomicFeature, error) {
	if err := r.d.q.QueryRow(
		ctx,
		`
		insert into "genomicfeature" (
			"chr", "start", "end", "strand", "type", "biotype", "locus_tag", "symbol", "source", "alias", "note"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning "id"
		`,
		gf.Chr, gf.Start, gf.End, gf.Strand, gf.Type, gf.Biotype, gf.LocusTag, gf.Symbol, gf.Source, gf.Alias, gf.Note,
	).Scan(&gf.ID); err != nil {
		return gf, kpgerr.Classify(err, "genomicfeature", gf.LocusTag)
	}
	return gf, nil
}

func (r *references) GetGenomicFeatures(ctx context.Context, ids []int64) (map[int64]domain.GenomicFeature, error) {
	found, err := queryAll[domain.GenomicFeature](
		ctx, r.d.q, "genomicfeature",
		`select `+genomicfeatureColumns+` from "genomicfeature" where "id" = any($1)`, ids,
	)
	if err != nil {
		return nil, err
	}
	ret := make(map[int64]domain.GenomicFeature, len(found))
	for _, gf := range found {
		ret[gf.ID] = gf
	}
	return ret, nil
}

func (r *references) FindGenomicFeature(ctx context.Context, locusTag string, symbol string) (domain.GenomicFeature, error) {
	if locusTag != "" {
		return queryOne[domain.GenomicFeature](
			ctx, r.d.q, "genomicfeature", locusTag,
			`select `+genomicfeatureColumns+` from "genomicfeature" where "locus_tag" = $1`, locusTag,
		)
	}
	return queryOne[domain.GenomicFeature](
		ctx, r.d.q, "genomicfeature", symbol,
		`select `+genomicfeatureColumns+` from "genomicfeature" where "symbol" = $1 order by "id" limit 1`, symbol,
	)
}

const regulatorColumns = `
	"id" as "ID", "genomicfeature_id" as "GenomicFeatureID",
	"under_development" as "UnderDevelopment", "notes" as "Notes",
` + stampColumns

func (r *references) GetRegulator(ctx context.Context, id int64) (domain.Regulator, error) {
	return queryOne[domain.Regulator](
		ctx, r.d.q, "regulator", id,
		`select `+regulatorColumns+` from "regulator" where "id" = $1`, id,
	)
}

func (r *references) GetOrCreateRegulator(ctx context.Context, featureID int64, stamp domain.Stamp) (domain.Regulator, error) {
	// "do update" to get the existing row returned.
	return queryOne[domain.Regulator](
		ctx, r.d.q, "regulator", featureID,
		`
		insert into "regulator" ("genomicfeature_id", "uploader", "upload_date", "modifier", "modified_date")
		values ($1, $2, $3, $4, $5)
		on conflict ("genomicfeature_id") do update set "genomicfeature_id" = excluded."genomicfeature_id"
		returning `+regulatorColumns,
		featureID, stamp.Uploader, stamp.UploadDate, stamp.Modifier, stamp.ModifiedDate,
	)
}
