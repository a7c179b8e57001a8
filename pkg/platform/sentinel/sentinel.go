package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors:
//   - ErrNotFound: row does not exist (or is soft-deleted)
//   - ErrConflict: a unique key already holds a row
//   - ErrInvalidState: row is in the wrong state for the requested write
//   - ErrUnavailable: backing service temporarily unavailable
//
// Validation failures never come from stores; use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
