package domain

import "errors"

var (
	// ErrMalformedOutput marks classifier output that cannot be normalized
	// (empty, non-numeric scores, unknown polarity). Not retryable.
	ErrMalformedOutput = errors.New("malformed classifier output")

	// ErrInvalidRecord marks a record that failed validation before any
	// write was attempted. Not retryable.
	ErrInvalidRecord = errors.New("invalid emotion record")

	// ErrStorageUnavailable marks a transient backend failure after the
	// retry budget is exhausted. Callers degrade to the fallback buffer.
	ErrStorageUnavailable = errors.New("history storage unavailable")

	// ErrStorageCorrupt marks unrecoverable backend state, e.g. a damaged
	// database file. Requires operator intervention; never retried.
	ErrStorageCorrupt = errors.New("history storage corrupt")

	// ErrDegradedStorage signals that an assessment was computed but only
	// buffered in process because the backend was unreachable. It wraps no
	// failure of the assessment itself and is safe to treat as a warning.
	ErrDegradedStorage = errors.New("storage degraded, assessment buffered")

	// ErrNotFound marks a missing user or record.
	ErrNotFound = errors.New("not found")
)
