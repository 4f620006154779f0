package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
)

type ErrorMessage struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`

	// Rows are problems of rows of a bulk upload.
	Rows []RowProblem `json:"rows,omitempty"`

	Cause error `json:"-"`
}

type RowProblem struct {
	Row     int    `json:"row"`
	File    string `json:"file,omitempty"`
	Problem string `json:"problem"`
}

func (em ErrorMessage) MarshalJSON() ([]byte, error) {
	type plain ErrorMessage
	cause := ""
	if em.Cause != nil {
		cause = em.Cause.Error()
	}
	return json.Marshal(struct {
		plain
		Cause string `json:"cause,omitempty"`
	}{plain: plain(em), Cause: cause})
}

func (em *ErrorMessage) UnmarshalJSON(bytes []byte) error {
	f := new(struct {
		Reason *string      `json:"reason"`
		Advice string       `json:"advice"`
		Rows   []RowProblem `json:"rows"`
		Cause  string       `json:"cause"`
	})
	if err := json.Unmarshal(bytes, f); err != nil {
		return err
	}
	if f.Reason == nil {
		return fmt.Errorf(`required field missing: "reason"`)
	}
	em.Reason = *f.Reason
	em.Advice = f.Advice
	em.Rows = f.Rows
	if f.Cause != "" {
		em.Cause = errors.New(f.Cause)
	}
	return nil
}

func (e ErrorMessage) String() string {
	lines := []string{e.Reason}
	if e.Advice != "" {
		lines = append(lines, e.Advice)
	}
	for _, r := range e.Rows {
		lines = append(lines, fmt.Sprintf("row %d (%s): %s", r.Row, r.File, r.Problem))
	}
	if e.Cause != nil {
		lines = append(lines, fmt.Sprint(" caused by:", e.Cause.Error()))
	}
	return strings.Join(lines, "\n")
}

func (e ErrorMessage) Error() string {
	return e.String()
}

func (e ErrorMessage) Unwrap() error {
	return e.Cause
}

type ErrorMessageOption func(in *ErrorMessage) *ErrorMessage

func WithAdvice(advice string) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if advice != "" {
			in.Advice = advice
		}
		return in
	}
}

func WithError(err error) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if err != nil {
			in.Cause = err
		}
		return in
	}
}

func WithRows(rows []ingest.RowError) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		for _, r := range rows {
			in.Rows = append(in.Rows, RowProblem{Row: r.Row, File: r.File, Problem: r.Err.Error()})
		}
		return in
	}
}

func NewErrorMessage(code int, reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := ErrorMessage{Reason: reason}
	for _, opt := range opts {
		msg = *opt(&msg)
	}

	return echo.NewHTTPError(code, msg).SetInternal(msg)
}

func NotFound(err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, "not found", WithError(err))
}

func BadRequest(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusBadRequest,
		"bad request",
		WithAdvice(advice),
		WithError(err),
	)
}

func Conflict(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusConflict,
		"conflict",
		WithAdvice(advice),
		WithError(err),
	)
}

func InternalServerError(err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusInternalServerError,
		"unexpected error",
		WithAdvice("ask your system admin."),
		WithError(err),
	)
}

func Unauthorized(message string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusUnauthorized,
		message,
		WithError(err),
	)
}

func Forbidden(message string) *echo.HTTPError {
	return NewErrorMessage(http.StatusForbidden, message)
}

// FromError converts an error of domain services into a response.
//
// Validation and schema errors are 400, not-found is 404, conflict is 409 and others are 500.
func FromError(err error) *echo.HTTPError {
	if he := new(echo.HTTPError); errors.As(err, &he) {
		return he
	}

	if bulk := new(ingest.BulkError); errors.As(err, &bulk) {
		return NewErrorMessage(
			http.StatusBadRequest, "bulk upload is rejected",
			WithAdvice("fix rows listed and upload all of them again. nothing is saved."),
			WithRows(bulk.Rows),
			WithError(err),
		)
	}
	if v, ok := xe.AsValidationError(err); ok {
		return NewErrorMessage(
			http.StatusBadRequest, "invalid "+v.Field,
			WithAdvice(strings.Join(v.Problems, "; ")),
			WithError(err),
		)
	}

	switch {
	case errors.Is(err, xe.ErrSchema):
		return NewErrorMessage(
			http.StatusBadRequest, "file does not fit its format",
			WithAdvice("check columns and types of the file against its fileformat."),
			WithError(err),
		)
	case errors.Is(err, xe.ErrValidation):
		return BadRequest("", err)
	case errors.Is(err, xe.ErrNotFound):
		return NotFound(err)
	case errors.Is(err, xe.ErrConflict):
		return Conflict("a record with the same key exists.", err)
	}
	return InternalServerError(err)
}
