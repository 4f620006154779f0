package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/yeastregulatorydb/pkg/api/types/errors"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
)

func TestFromError(t *testing.T) {
	for name, testcase := range map[string]struct {
		err    error
		status int
		reason string
	}{
		"when an invalid field is given, it is 400 naming the field": {
			err:    xe.Invalid("replicate", "should be positive: %d", -1),
			status: http.StatusBadRequest,
			reason: "invalid replicate",
		},
		"when a file does not fit its format, it is 400": {
			err:    xe.Schema("qbed", "column %s is missing", "depth"),
			status: http.StatusBadRequest,
			reason: "file does not fit its format",
		},
		"when a record is missing, it is 404": {
			err:    fmt.Errorf("loading: %w", xe.NotFound("binding", 3)),
			status: http.StatusNotFound,
		},
		"when a key is taken, it is 409": {
			err:    xe.Conflict("fileformat", "qbed"),
			status: http.StatusConflict,
		},
		"when an error is unknown, it is 500": {
			err:    errors.New("disk is on fire"),
			status: http.StatusInternalServerError,
		},
		"when an echo error is given, it is passed through": {
			err:    echo.NewHTTPError(http.StatusMethodNotAllowed),
			status: http.StatusMethodNotAllowed,
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := apierr.FromError(testcase.err)
			if actual.Code != testcase.status {
				t.Errorf("status: (actual, expected) = (%d, %d)", actual.Code, testcase.status)
			}
			if testcase.reason == "" {
				return
			}
			msg, ok := actual.Message.(apierr.ErrorMessage)
			if !ok {
				t.Fatalf("message is not ErrorMessage: %#v", actual.Message)
			}
			if msg.Reason != testcase.reason {
				t.Errorf("reason: (actual, expected) = (%s, %s)", msg.Reason, testcase.reason)
			}
		})
	}

	t.Run("when a bulk upload is rejected, all rows are reported", func(t *testing.T) {
		err := &ingest.BulkError{Rows: []ingest.RowError{
			{Row: 0, File: "a.qbed", Err: xe.Invalid("regulator", "unknown")},
			{Row: 3, File: "d.qbed", Err: xe.Schema("qbed", "broken")},
		}}
		actual := apierr.FromError(fmt.Errorf("upload: %w", err))
		if actual.Code != http.StatusBadRequest {
			t.Fatalf("status: %d", actual.Code)
		}

		body, jerr := json.Marshal(actual.Message)
		if jerr != nil {
			t.Fatal(jerr)
		}
		msg := apierr.ErrorMessage{}
		if jerr := json.Unmarshal(body, &msg); jerr != nil {
			t.Fatal(jerr)
		}
		if len(msg.Rows) != 2 || msg.Rows[0].File != "a.qbed" || msg.Rows[1].Row != 3 {
			t.Errorf("unexpected rows: %+v", msg.Rows)
		}
		if msg.Cause == nil {
			t.Error("cause is lost")
		}
	})
}
