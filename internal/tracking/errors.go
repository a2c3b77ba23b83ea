package tracking

import "errors"

var (
	// ErrNotFound is returned when a job or track does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an open track already exists for the job.
	ErrConflict = errors.New("open track already exists")

	// ErrResolveFailed is returned when no track could be fetched or created.
	ErrResolveFailed = errors.New("failed to load tracking data")
)
