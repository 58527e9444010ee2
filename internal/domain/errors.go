package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIdentityUnresolvable indicates no valid caller identity could be established.
	ErrIdentityUnresolvable = errors.New("identity unresolvable")

	// ErrInvariantViolation signals an internal consistency failure of a movie aggregate.
	ErrInvariantViolation = errors.New("aggregate invariant violation")

	// ErrReferentialConflict indicates a delete was blocked by dependent rows.
	ErrReferentialConflict = errors.New("referential conflict")

	// ErrScoreOutOfRange indicates a submitted value outside the configured range.
	ErrScoreOutOfRange = errors.New("score out of range")

	// ErrWriteConflict marks a transient storage conflict that may succeed on retry.
	ErrWriteConflict = errors.New("write conflict")
)
