package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opst/yeastregulatorydb/pkg/api/types/records"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/opst/yeastregulatorydb/pkg/tasks"
)

// chained responds the record with tasks submitted by submit.
//
// The record is already saved, so a failure of submit is reported in the body, not as an error.
func chained[T any](c echo.Context, status int, record records.Created[T], submit func() ([]tasks.Task, error)) error {
	ts, err := submit()
	record.Tasks = taskIDs(ts)
	if err != nil {
		c.Logger().Errorf("chain is not submitted: %+v", err)
		record.ChainError = err.Error()
	}
	return c.JSON(status, record)
}

func bindingRequest(c echo.Context) (ingest.BindingRequest, error) {
	replicate, err := formInt(c, "replicate")
	if err != nil {
		return ingest.BindingRequest{}, err
	}
	promoter, err := formInt(c, "promoterset")
	if err != nil {
		return ingest.BindingRequest{}, err
	}
	file, err := formFile(c, "file")
	if err != nil {
		return ingest.BindingRequest{}, err
	}
	return ingest.BindingRequest{
		RegulatorLocusTag: c.FormValue("regulator_locus_tag"),
		RegulatorSymbol:   c.FormValue("regulator_symbol"),
		Batch:             c.FormValue("batch"),
		Replicate:         replicate,
		Source:            c.FormValue("source"),
		SourceOrigID:      c.FormValue("source_orig_id"),
		Strain:            c.FormValue("strain"),
		Notes:             c.FormValue("notes"),
		PromoterID:        promoter,
		File:              file,
	}, nil
}

// PostBindingHandler handles POST /api/binding/ with multipart/form-data.
func PostBindingHandler(gate Gate, ch Chainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bindingRequest(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		created, err := gate.CreateBinding(ctx, user(c), req)
		if err != nil {
			return err
		}
		return chained(
			c, http.StatusCreated,
			records.Created[domain.Binding]{Record: created.Binding, PromoterSetSig: created.PromoterSetSig},
			func() ([]tasks.Task, error) { return ch.of(c).BindingCreated(ctx, user(c), created) },
		)
	}
}

func expressionRequest(c echo.Context) (ingest.ExpressionRequest, error) {
	replicate, err := formInt(c, "replicate")
	if err != nil {
		return ingest.ExpressionRequest{}, err
	}
	tm, err := formFloat(c, "time")
	if err != nil {
		return ingest.ExpressionRequest{}, err
	}
	file, err := formFile(c, "file")
	if err != nil {
		return ingest.ExpressionRequest{}, err
	}
	return ingest.ExpressionRequest{
		RegulatorLocusTag: c.FormValue("regulator_locus_tag"),
		RegulatorSymbol:   c.FormValue("regulator_symbol"),
		Batch:             c.FormValue("batch"),
		Replicate:         replicate,
		Control:           c.FormValue("control"),
		Mechanism:         c.FormValue("mechanism"),
		Restriction:       c.FormValue("restriction"),
		Time:              tm,
		Strain:            c.FormValue("strain"),
		Source:            c.FormValue("source"),
		Notes:             c.FormValue("notes"),
		File:              file,
	}, nil
}

// PostExpressionHandler handles POST /api/expression/ with multipart/form-data.
func PostExpressionHandler(gate Gate, ch Chainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := expressionRequest(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		e, err := gate.CreateExpression(ctx, user(c), req)
		if err != nil {
			return err
		}
		return chained(
			c, http.StatusCreated, records.Created[domain.Expression]{Record: e},
			func() ([]tasks.Task, error) { return ch.of(c).ExpressionCreated(ctx, user(c), e) },
		)
	}
}

func bulk(c echo.Context) (ingest.Bulk, error) {
	manifest, err := formFile(c, "csv_file")
	if err != nil {
		return ingest.Bulk{}, err
	}
	archive, err := formFile(c, "tarred_dir")
	if err != nil {
		return ingest.Bulk{}, err
	}
	return ingest.Bulk{Manifest: manifest, Archive: archive}, nil
}

// BulkBindingHandler handles POST /api/binding/bulk_upload/ .
//
// Chains are submitted after all Bindings are saved.
func BulkBindingHandler(gate Gate, ch Chainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := bulk(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		created, err := gate.BulkBindings(ctx, user(c), b)
		if err != nil {
			return err
		}

		resp := make([]records.Created[domain.Binding], 0, len(created))
		for _, cr := range created {
			r := records.Created[domain.Binding]{Record: cr.Binding, PromoterSetSig: cr.PromoterSetSig}
			ts, err := ch.of(c).BindingCreated(ctx, user(c), cr)
			r.Tasks = taskIDs(ts)
			if err != nil {
				c.Logger().Errorf("chain is not submitted: %+v", err)
				r.ChainError = err.Error()
			}
			resp = append(resp, r)
		}
		return c.JSON(http.StatusCreated, resp)
	}
}

// BulkExpressionHandler handles POST /api/expression/bulk_upload/ .
func BulkExpressionHandler(gate Gate, ch Chainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := bulk(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		created, err := gate.BulkExpressions(ctx, user(c), b)
		if err != nil {
			return err
		}

		resp := make([]records.Created[domain.Expression], 0, len(created))
		for _, e := range created {
			r := records.Created[domain.Expression]{Record: e}
			ts, err := ch.of(c).ExpressionCreated(ctx, user(c), e)
			r.Tasks = taskIDs(ts)
			if err != nil {
				c.Logger().Errorf("chain is not submitted: %+v", err)
				r.ChainError = err.Error()
			}
			resp = append(resp, r)
		}
		return c.JSON(http.StatusCreated, resp)
	}
}

// GetBindingQCHandler handles GET /api/binding/:id/qc/ .
func GetBindingQCHandler(database db.Database) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		qc, err := database.Bindings().GetQC(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, qc)
	}
}

func applyLabel(field string, v *string, to *domain.QCLabel) error {
	if v == nil {
		return nil
	}
	l, err := domain.AsQCLabel(*v)
	if err != nil {
		return xe.Invalid(field, "%s", err)
	}
	*to = l
	return nil
}

// PutBindingQCHandler handles PUT /api/binding/:id/qc/ .
//
// When the change makes the Binding a passing replicate, replicates are combined.
func PutBindingQCHandler(database db.Database, ch Chainer, now func() time.Time) echo.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		change := records.QCChange{}
		decoder := json.NewDecoder(c.Request().Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&change); err != nil {
			return xe.Invalid("body", "%s", err)
		}

		ctx := c.Request().Context()
		var before, after domain.BindingManualQC
		err = database.Atomic(ctx, func(ctx context.Context, tx db.Database) error {
			qc, err := tx.Bindings().GetQC(ctx, id)
			if err != nil {
				return err
			}
			for _, l := range []struct {
				field string
				v     *string
				to    *domain.QCLabel
			}{
				{"data_usable", change.DataUsable, &qc.DataUsable},
				{"passing_replicate", change.PassingReplicate, &qc.PassingReplicate},
				{"best_datatype", change.BestDatatype, &qc.BestDatatype},
				{"rank_recall", change.RankRecall, &qc.RankRecall},
			} {
				if err := applyLabel(l.field, l.v, l.to); err != nil {
					return err
				}
			}
			if change.Notes != nil {
				qc.Notes = *change.Notes
			}
			qc.Modifier = user(c)
			qc.ModifiedDate = now()

			before, err = tx.Bindings().UpdateQC(ctx, qc)
			if err != nil {
				return err
			}
			after = qc
			return nil
		})
		if err != nil {
			return err
		}

		return chained(
			c, http.StatusOK, records.Created[domain.BindingManualQC]{Record: after},
			func() ([]tasks.Task, error) { return ch.of(c).BindingQCChanged(ctx, user(c), before, after) },
		)
	}
}
