package engine

import "errors"

var (
	// ErrInvalidState is returned when an operation is not legal for the
	// job's current status, e.g. starting a completed job.
	ErrInvalidState = errors.New("invalid job state")

	// ErrConcurrencyLimit is returned when admission is denied because the
	// concurrency ceiling is reached. The job stays queued.
	ErrConcurrencyLimit = errors.New("maximum concurrent migrations reached")
)
