// Package handlers implements endpoints of the api.
//
// Handlers are built by functions taking their collaborators, as echo.HandlerFunc.
package handlers

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/opst/yeastregulatorydb/pkg/api/auth"
	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/opst/yeastregulatorydb/pkg/tasks"
)

// Gate validates uploads and saves records.
type Gate interface {
	CreateBinding(ctx context.Context, user string, req ingest.BindingRequest) (ingest.BindingCreated, error)
	CreateExpression(ctx context.Context, user string, req ingest.ExpressionRequest) (domain.Expression, error)
	CreateBackground(ctx context.Context, user string, req ingest.BackgroundRequest) (domain.CallingCardsBackground, error)
	CreatePromoterSet(ctx context.Context, user string, req ingest.PromoterSetRequest) (domain.PromoterSet, error)
	CreatePromoterSetSig(ctx context.Context, user string, req ingest.PromoterSetSigRequest) (domain.PromoterSetSig, error)
	BulkBindings(ctx context.Context, user string, b ingest.Bulk) ([]ingest.BindingCreated, error)
	BulkExpressions(ctx context.Context, user string, b ingest.Bulk) ([]domain.Expression, error)
	Delete(ctx context.Context, category domain.Category, id int64) error
}

var _ Gate = &ingest.Gate{}

// Chains submits tasks following new records.
type Chains interface {
	BindingCreated(ctx context.Context, user string, created ingest.BindingCreated) ([]tasks.Task, error)
	PromoterSetSigCreated(ctx context.Context, user string, sig domain.PromoterSetSig) ([]tasks.Task, error)
	ExpressionCreated(ctx context.Context, user string, e domain.Expression) ([]tasks.Task, error)
	BindingQCChanged(ctx context.Context, user string, before, after domain.BindingManualQC) ([]tasks.Task, error)
	SubmitPromoterSignificance(ctx context.Context, p tasks.PromoterSignificancePayload) (tasks.Task, error)
	SubmitRankResponse(ctx context.Context, p tasks.RankResponsePayload) (tasks.Task, error)
}

var _ Chains = &tasks.Orchestrator{}

// Chainer picks Chains of a request.
type Chainer struct {
	// Queued submits tasks to workers.
	Queued Chains

	// Inline runs tasks before responding. It is used for requests with `?testing=true`.
	Inline Chains
}

func (ch Chainer) of(c echo.Context) Chains {
	if testing, _ := strconv.ParseBool(c.QueryParam("testing")); testing && ch.Inline != nil {
		return ch.Inline
	}
	return ch.Queued
}

// Exporter writes PromoterSetSig files combined.
type Exporter interface {
	ExportCombined(ctx context.Context, q db.PromoterSetSigQuery, w io.Writer) error
}

func taskIDs(ts []tasks.Task) []int64 {
	ids := make([]int64, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.ID)
	}
	return ids
}

func user(c echo.Context) string {
	return auth.User(c)
}

// parseID parses v as a positive id. Empty v is 0.
func parseID(name string, v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, xe.Invalid(name, "%s should be a positive integer: %q", name, v)
	}
	return id, nil
}

// pathID is the id in path parameter "id".
func pathID(c echo.Context) (int64, error) {
	id, err := parseID("id", c.Param("id"))
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, xe.Invalid("id", "id is required")
	}
	return id, nil
}

// queryIDs parses query parameters of names as ids.
func queryIDs(c echo.Context, names ...string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	for _, n := range names {
		id, err := parseID(n, c.QueryParam(n))
		if err != nil {
			return nil, err
		}
		out[n] = id
	}
	return out, nil
}

// formFile reads the multipart file of field.
func formFile(c echo.Context, field string) (ingest.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return ingest.Upload{}, xe.Invalid(field, "file %s is required", field)
	}
	f, err := fh.Open()
	if err != nil {
		return ingest.Upload{}, xe.Wrap(err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return ingest.Upload{}, xe.Wrap(err)
	}
	return ingest.Upload{Filename: fh.Filename, Content: content}, nil
}

func formInt(c echo.Context, name string) (int64, error) {
	v := strings.TrimSpace(c.FormValue(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, xe.Invalid(name, "%s should be an integer: %q", name, v)
	}
	return n, nil
}

func formFloat(c echo.Context, name string) (float64, error) {
	v := strings.TrimSpace(c.FormValue(name))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, xe.Invalid(name, "%s should be a number: %q", name, v)
	}
	return f, nil
}
