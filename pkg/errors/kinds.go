package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strings"
	"syscall"
)

var (
	// a FileFormat is missing or its field declaration is malformed.
	ErrSchema = errors.New("schema error")

	// uploaded content (or a derived join) does not satisfy its contract.
	ErrValidation = errors.New("validation error")

	// failure which may succeed when it is tried again.
	ErrTransient = errors.New("transient error")

	// a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// a record collides with another on its natural key.
	ErrConflict = errors.New("conflict")
)

// ValidationError describes why a value (column, file or request field) is not acceptable.
type ValidationError struct {
	Field    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid creates a ValidationError for field, marked with the caller location.
func Invalid(field string, format string, args ...any) error {
	return WrapAsOuter(&ValidationError{
		Field:    field,
		Problems: []string{fmt.Sprintf(format, args...)},
	}, 1)
}

// AsValidationError extracts a ValidationError from the chain of err.
func AsValidationError(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s is not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NotFound creates a NotFoundError for entity identified by key.
func NotFound(entity string, key any) error {
	return WrapAsOuter(&NotFoundError{Entity: entity, Key: fmt.Sprint(key)}, 1)
}

type SchemaError struct {
	Format string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("fileformat %s: %s", e.Format, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

func Schema(format string, reason string, args ...any) error {
	return WrapAsOuter(&SchemaError{Format: format, Reason: fmt.Sprintf(reason, args...)}, 1)
}

type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.Key)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

func Conflict(entity string, key any) error {
	return WrapAsOuter(&ConflictError{Entity: entity, Key: fmt.Sprint(key)}, 1)
}

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return "transient: " + e.err.Error()
}

func (e *transientError) Unwrap() []error {
	return []error{ErrTransient, e.err}
}

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return WrapAsOuter(&transientError{err: err}, 1)
}

// Retryable reports whether err is worth another attempt.
//
// Errors of the taxonomy other than ErrTransient, and context cancellation, are never retryable.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTransient):
		return true
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrSchema),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var operr *net.OpError
	if errors.As(err, &operr) {
		return true
	}
	var perr *fs.PathError
	return errors.As(err, &perr)
}
