package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/opst/yeastregulatorydb/pkg/api/types/records"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/opst/yeastregulatorydb/pkg/tasks"
)

// PostBackgroundHandler handles POST /api/callingcardsbackground/ with multipart/form-data.
func PostBackgroundHandler(gate Gate) echo.HandlerFunc {
	return func(c echo.Context) error {
		file, err := formFile(c, "file")
		if err != nil {
			return err
		}
		bg, err := gate.CreateBackground(c.Request().Context(), user(c), ingest.BackgroundRequest{
			Name:       c.FormValue("name"),
			FileFormat: c.FormValue("fileformat"),
			Notes:      c.FormValue("notes"),
			File:       file,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, records.Created[domain.CallingCardsBackground]{Record: bg, Tasks: []int64{}})
	}
}

// PostPromoterSetHandler handles POST /api/promoterset/ with multipart/form-data.
func PostPromoterSetHandler(gate Gate) echo.HandlerFunc {
	return func(c echo.Context) error {
		file, err := formFile(c, "file")
		if err != nil {
			return err
		}
		ps, err := gate.CreatePromoterSet(c.Request().Context(), user(c), ingest.PromoterSetRequest{
			Name:       c.FormValue("name"),
			FileFormat: c.FormValue("fileformat"),
			Notes:      c.FormValue("notes"),
			File:       file,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, records.Created[domain.PromoterSet]{Record: ps, Tasks: []int64{}})
	}
}

// IsJSON tells whether the request body is json.
func IsJSON(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func decodeJSON(c echo.Context, v any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return xe.Invalid("body", "%s", err)
	}
	return nil
}

// TriggerPromoterSetSigHandler handles POST /api/promotersetsig/ with records.PromoterSetSigTrigger.
//
// It submits the promoter significance stage of a Binding.
func TriggerPromoterSetSigHandler(ch Chainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		trigger := records.PromoterSetSigTrigger{}
		if err := decodeJSON(c, &trigger); err != nil {
			return err
		}
		if trigger.Binding <= 0 {
			return xe.Invalid("binding", "binding is required")
		}
		t, err := ch.of(c).SubmitPromoterSignificance(c.Request().Context(), tasks.PromoterSignificancePayload{
			BindingID:    trigger.Binding,
			User:         user(c),
			OutputFormat: trigger.OutputFormat,
			PromoterID:   trigger.PromoterSet,
			BackgroundID: trigger.Background,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusAccepted, records.Submitted{Tasks: []int64{t.ID}})
	}
}

// PostPromoterSetSigHandler handles POST /api/promotersetsig/ with multipart/form-data.
//
// It uploads a significance file of a Binding, followed by rank responses.
func PostPromoterSetSigHandler(gate Gate, ch Chainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := ingest.PromoterSetSigRequest{FileFormat: c.FormValue("fileformat")}
		var err error
		if req.BindingID, err = parseID("binding", c.FormValue("binding")); err != nil {
			return err
		}
		if req.PromoterID, err = parseID("promoter", c.FormValue("promoter")); err != nil {
			return err
		}
		if req.BackgroundID, err = parseID("background", c.FormValue("background")); err != nil {
			return err
		}
		if req.File, err = formFile(c, "file"); err != nil {
			return err
		}
		ctx := c.Request().Context()
		sig, err := gate.CreatePromoterSetSig(ctx, user(c), req)
		if err != nil {
			return err
		}
		return chained(
			c, http.StatusCreated, records.Created[domain.PromoterSetSig]{Record: sig},
			func() ([]tasks.Task, error) { return ch.of(c).PromoterSetSigCreated(ctx, user(c), sig) },
		)
	}
}

// PostRankResponseHandler handles POST /api/rankresponse/ with records.RankResponseTrigger.
func PostRankResponseHandler(ch Chainer) echo.HandlerFunc {
	return func(c echo.Context) error {
		trigger := records.RankResponseTrigger{}
		if err := decodeJSON(c, &trigger); err != nil {
			return err
		}
		if trigger.PromoterSetSig <= 0 {
			return xe.Invalid("promotersetsig", "promotersetsig is required")
		}
		t, err := ch.of(c).SubmitRankResponse(c.Request().Context(), tasks.RankResponsePayload{
			PromoterSetSigID: trigger.PromoterSetSig,
			User:             user(c),
			ExpressionID:     trigger.Expression,
			EffectThreshold:  trigger.ExpressionEffectThreshold,
			PvalueThreshold:  trigger.ExpressionPvalueThreshold,
			Normalize:        trigger.Normalize,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusAccepted, records.Submitted{Tasks: []int64{t.ID}})
	}
}

// CombinedPromoterSetSigHandler handles GET /api/promotersetsig/combined/ .
//
// It streams a gzipped csv of PromoterSetSigs matching query parameters binding, promoter and background.
func CombinedPromoterSetSigHandler(ex Exporter) echo.HandlerFunc {
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

		resp := c.Response()
		resp.Header().Set(echo.HeaderContentType, "application/gzip")
		resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="combined.csv.gz"`)
		resp.WriteHeader(http.StatusOK)
		if err := ex.ExportCombined(c.Request().Context(), q, resp); err != nil {
			// headers are sent. the client sees a truncated gzip stream.
			c.Logger().Errorf("export is aborted: %+v", err)
		}
		return nil
	}
}
