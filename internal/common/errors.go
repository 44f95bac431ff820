// Package common defines shared constants and sentinel errors used across
// the MyCloud server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal  = errors.New("internal error")
	ErrorTransient = errors.New("temporarily unavailable")

	// Authentication / authorization errors. ErrorUnauthorized means the
	// request carries no valid session; ErrorForbidden means the session is
	// valid but lacks rights for the operation.
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorForbidden          = errors.New("forbidden")
	ErrorInvalidCredentials = errors.New("invalid login/password")

	// Validation errors. Wrap with the offending field name, e.g.
	// fmt.Errorf("%w: file_name is required", ErrorInvalidArgument).
	ErrorInvalidArgument = errors.New("invalid argument")

	// ErrorInconsistent reports that metadata references a blob the byte
	// store cannot find. It is always logged before being surfaced.
	ErrorInconsistent = errors.New("metadata/storage mismatch")

	// ErrorPartialFailure reports that a committed mutation could not be
	// fully completed (e.g. the quota was adjusted and the record removed
	// but the blob delete failed). Never masked as success.
	ErrorPartialFailure = errors.New("partially completed")
)
