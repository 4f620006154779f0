package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opst/yeastregulatorydb/pkg/api/types/records"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/fileformat"
)

// PostFileFormatHandler handles POST /api/fileformat/ with a json FileFormat.
//
// Optional attributes are filled with defaults before validation.
func PostFileFormatHandler(formats db.FileFormatInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ff := fileformat.FileFormat{}
		if err := decodeJSON(c, &ff); err != nil {
			return err
		}
		ff.ID = 0
		ff = ff.WithDefaults()
		if err := ff.Validate(); err != nil {
			return err
		}
		created, err := formats.Create(c.Request().Context(), ff)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, created)
	}
}

// PostChrMapHandler handles POST /api/chrmap/ with a json array of contigs. It replaces the whole ChrMap.
func PostChrMapHandler(refs db.ReferenceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		chrmap := domain.ChrMap{}
		if err := decodeJSON(c, &chrmap); err != nil {
			return err
		}
		if len(chrmap) == 0 {
			return xe.Invalid("chrmap", "at least one contig is required")
		}
		for _, f := range []string{"refseq", "igenomes", "ensembl", "ucsc", "mitra", "numbered", "chr"} {
			idx, err := chrmap.Index(f)
			if err != nil {
				return xe.Invalid("chrmap", "%s", err)
			}
			if len(idx) != len(chrmap) {
				return xe.Invalid("chrmap", "%s names of contigs should be unique", f)
			}
		}
		for n, ctg := range chrmap {
			switch ctg.Type {
			case domain.Genomic, domain.Mito, domain.Plasmid:
			default:
				return xe.Invalid("chrmap", "contig #%d: type should be genomic, mito or plasmid: %q", n, ctg.Type)
			}
			if ctg.Seqlength <= 0 {
				return xe.Invalid("chrmap", "contig #%d: seqlength should be positive", n)
			}
		}
		ctx := c.Request().Context()
		if err := refs.PutChrMap(ctx, chrmap); err != nil {
			return err
		}
		stored, err := refs.ChrMap(ctx)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, stored)
	}
}

// GetChrMapHandler handles GET /api/chrmap/ .
func GetChrMapHandler(refs db.ReferenceInterface) echo.HandlerFunc {
	return ListHandler(func(ctx context.Context) ([]domain.Contig, error) {
		return refs.ChrMap(ctx)
	})
}

// PostDataSourceHandler handles POST /api/datasource/ with records.DataSource.
func PostDataSourceHandler(database db.Database, now func() time.Time) echo.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	registry := fileformat.NewRegistry(database.FileFormats())
	return func(c echo.Context) error {
		req := records.DataSource{}
		if err := decodeJSON(c, &req); err != nil {
			return err
		}
		if strings.TrimSpace(req.Name) == "" {
			return xe.Invalid("name", "name is required")
		}
		ctx := c.Request().Context()
		ff, err := registry.Lookup(ctx, req.FileFormat)
		if err != nil {
			return xe.Invalid("fileformat", "%s", err)
		}
		ds, err := database.References().CreateDataSource(ctx, domain.DataSource{
			Name:         strings.TrimSpace(req.Name),
			Lab:          req.Lab,
			Assay:        req.Assay,
			Workflow:     req.Workflow,
			FileFormatID: ff.ID,
			Description:  req.Description,
			Citation:     req.Citation,
			Stamp:        domain.NewStamp(user(c), now()),
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, ds)
	}
}

// PostGenomicFeatureHandler handles POST /api/genomicfeature/ with a json GenomicFeature.
func PostGenomicFeatureHandler(refs db.ReferenceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		gf := domain.GenomicFeature{}
		if err := decodeJSON(c, &gf); err != nil {
			return err
		}
		gf.ID = 0
		if strings.TrimSpace(gf.LocusTag) == "" {
			return xe.Invalid("locus_tag", "locus_tag is required")
		}
		if gf.Start < 0 || gf.End < gf.Start {
			return xe.Invalid("end", "coordinates should satisfy 0 <= start <= end: [%d, %d)", gf.Start, gf.End)
		}
		created, err := refs.CreateGenomicFeature(c.Request().Context(), gf)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, created)
	}
}
