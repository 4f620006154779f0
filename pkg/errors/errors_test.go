package errors_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"testing"

	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

type MyErr struct{}

func (MyErr) Error() string {
	return "error type for test"
}

func createError(message string) error {
	return xe.New(message)
}

func TestNewError(t *testing.T) {
	t.Run("it knows location where it is created.", func(t *testing.T) {
		testee := createError("test error")
		errMessage := testee.Error()

		_, thisFile, _, _ := runtime.Caller(0)

		if !strings.Contains(errMessage, "createError") {
			t.Errorf("it does not know function name: %s", errMessage)
		}

		if !strings.Contains(errMessage, thisFile) {
			t.Errorf("it does not know file (%s): %s", thisFile, errMessage)
		}
	})

	t.Run("it supports errors protocol", func(t *testing.T) {
		rootError := MyErr{}

		err := xe.Wrap(fmt.Errorf("%w", fmt.Errorf("%w", rootError)))

		if !errors.Is(err, rootError) {
			t.Error("it does not support unwrapping.")
		}
	})

	t.Run("wrapping nil gives nil", func(t *testing.T) {
		if err := xe.Wrap(nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := xe.WrapWithNote("note", nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("note is shown in message", func(t *testing.T) {
		err := xe.WrapWithNote("reading binding file", io.EOF)
		if !strings.Contains(err.Error(), "(reading binding file)") {
			t.Errorf("note is missing: %s", err)
		}
	})
}

func TestTaxonomy(t *testing.T) {
	t.Run("typed errors unwrap to their sentinel", func(t *testing.T) {
		for name, testcase := range map[string]struct {
			err      error
			sentinel error
		}{
			"validation": {err: xe.Invalid("chr", "unknown: %s", "chrZZZ"), sentinel: xe.ErrValidation},
			"not found":  {err: xe.NotFound("binding", 3), sentinel: xe.ErrNotFound},
			"schema":     {err: xe.Schema("qbed", "broken fields"), sentinel: xe.ErrSchema},
			"conflict":   {err: xe.Conflict("binding", "(1, b1, 1, 5)"), sentinel: xe.ErrConflict},
			"transient":  {err: xe.Transient(io.ErrClosedPipe), sentinel: xe.ErrTransient},
		} {
			t.Run(name, func(t *testing.T) {
				if !errors.Is(testcase.err, testcase.sentinel) {
					t.Errorf("%v does not wrap %v", testcase.err, testcase.sentinel)
				}
			})
		}
	})

	t.Run("transient keeps the cause", func(t *testing.T) {
		err := xe.Transient(io.ErrClosedPipe)
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("cause is lost: %v", err)
		}
	})

	t.Run("validation error exposes field and problems", func(t *testing.T) {
		err := xe.Invalid("chr", "not in chrmap: %v", []string{"chrZZZ"})
		verr, ok := xe.AsValidationError(err)
		if !ok {
			t.Fatalf("not a validation error: %v", err)
		}
		if verr.Field != "chr" || !strings.Contains(verr.Problems[0], "chrZZZ") {
			t.Errorf("unexpected content: %+v", verr)
		}
	})
}

func TestRetryable(t *testing.T) {
	for name, testcase := range map[string]struct {
		err  error
		want bool
	}{
		"nil":                  {err: nil, want: false},
		"transient":            {err: xe.Transient(errors.New("db is busy")), want: true},
		"validation":           {err: xe.Invalid("file", "empty"), want: false},
		"not found":            {err: xe.NotFound("binding", 1), want: false},
		"conflict":             {err: xe.Conflict("binding", 1), want: false},
		"canceled":             {err: fmt.Errorf("wrapped: %w", context.Canceled), want: false},
		"deadline":             {err: context.DeadlineExceeded, want: true},
		"unexpected eof":       {err: xe.Wrap(io.ErrUnexpectedEOF), want: true},
		"path error":           {err: &os.PathError{Op: "open", Path: "/x", Err: os.ErrPermission}, want: true},
		"plain error":          {err: errors.New("boom"), want: false},
		"transient validation": {err: xe.Transient(xe.Invalid("x", "y")), want: true},
	} {
		t.Run(name, func(t *testing.T) {
			if got := xe.Retryable(testcase.err); got != testcase.want {
				t.Errorf("Retryable(%v) = %v, want %v", testcase.err, got, testcase.want)
			}
		})
	}
}
