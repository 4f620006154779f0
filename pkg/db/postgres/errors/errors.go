// Package errors translates errors of postgres into the error taxonomy of this module.
package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
)

// Classify converts err caused on querying entity identified by key.
//
//   - pgx.ErrNoRows: not found
//   - unique_violation: conflict
//   - foreign_key_violation: not found (of the referenced record)
//   - connection failures, and errors of the class 08, 53, 57 or 58: transient
//
// Other errors are returned as they are, marked with the location of the caller.
func Classify(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return xe.WrapAsOuter(xe.NotFound(entity, key), 1)
	}

	if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
		switch code := pgerr.Code; {
		case code == pgerrcode.UniqueViolation:
			return xe.WrapAsOuter(xe.Conflict(entity, key), 1)
		case code == pgerrcode.ForeignKeyViolation:
			return xe.WrapAsOuter(
				xe.NotFound(fmt.Sprintf("record referenced by %s", entity), pgerr.Detail), 1,
			)
		case pgerrcode.IsConnectionException(code),
			pgerrcode.IsInsufficientResources(code),
			pgerrcode.IsOperatorIntervention(code),
			pgerrcode.IsSystemError(code),
			code == pgerrcode.SerializationFailure,
			code == pgerrcode.DeadlockDetected:
			return xe.WrapAsOuter(xe.Transient(err), 1)
		}
		return xe.WrapAsOuter(err, 1)
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return xe.WrapAsOuter(xe.Transient(err), 1)
	}
	return xe.WrapAsOuter(err, 1)
}
