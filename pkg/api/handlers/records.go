package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

// GetHandler handles GET /api/<entity>/:id/ by get.
func GetHandler[T any](get func(ctx context.Context, id int64) (T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		rec, err := get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	}
}

// ListHandler handles GET /api/<entity>/ by list.
func ListHandler[T any](list func(ctx context.Context) ([]T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		return respondList(c, list)
	}
}

func respondList[T any](c echo.Context, list func(ctx context.Context) ([]T, error)) error {
	recs, err := list(c.Request().Context())
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []T{}
	}
	return c.JSON(http.StatusOK, recs)
}

// DeleteHandler handles DELETE /api/<entity>/:id/ .
//
// Records derived from the record are deleted together.
func DeleteHandler(gate Gate, category domain.Category) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		if err := gate.Delete(c.Request().Context(), category, id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// FindBindingHandler handles GET /api/binding/ .
//
// Query parameters regulator, source, assay, data_usable and batch filter Bindings.
func FindBindingHandler(bindings db.BindingInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ids, err := queryIDs(c, "regulator", "source")
		if err != nil {
			return err
		}
		q := db.BindingQuery{
			RegulatorID: ids["regulator"],
			SourceID:    ids["source"],
			Assay:       c.QueryParam("assay"),
			Batch:       c.QueryParam("batch"),
		}
		if v := c.QueryParam("data_usable"); v != "" {
			l, err := domain.AsQCLabel(v)
			if err != nil {
				return xe.Invalid("data_usable", "%s", err)
			}
			q.DataUsable = l
		}
		return respondList(c, func(ctx context.Context) ([]domain.Binding, error) {
			return bindings.Find(ctx, q)
		})
	}
}

// FindExpressionHandler handles GET /api/expression/ filtered by regulator and source.
func FindExpressionHandler(expressions db.ExpressionInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ids, err := queryIDs(c, "regulator", "source")
		if err != nil {
			return err
		}
		q := db.ExpressionQuery{RegulatorID: ids["regulator"], SourceID: ids["source"]}
		return respondList(c, func(ctx context.Context) ([]domain.Expression, error) {
			return expressions.Find(ctx, q)
		})
	}
}

// FindPromoterSetSigHandler handles GET /api/promotersetsig/ filtered by binding, promoter, background and regulator.
func FindPromoterSetSigHandler(sigs db.PromoterSetSigInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ids, err := queryIDs(c, "binding", "promoter", "background", "regulator")
		if err != nil {
			return err
		}
		q := db.PromoterSetSigQuery{
			BindingID:    ids["binding"],
			PromoterID:   ids["promoter"],
			BackgroundID: ids["background"],
			RegulatorID:  ids["regulator"],
		}
		return respondList(c, func(ctx context.Context) ([]domain.PromoterSetSig, error) {
			return sigs.Find(ctx, q)
		})
	}
}

// FindRankResponseHandler handles GET /api/rankresponse/ filtered by promotersetsig and expression.
func FindRankResponseHandler(rrs db.RankResponseInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ids, err := queryIDs(c, "promotersetsig", "expression")
		if err != nil {
			return err
		}
		q := db.RankResponseQuery{PromoterSetSigID: ids["promotersetsig"], ExpressionID: ids["expression"]}
		return respondList(c, func(ctx context.Context) ([]domain.RankResponse, error) {
			return rrs.Find(ctx, q)
		})
	}
}
