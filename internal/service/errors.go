package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/hitster/internal/store"
)

// Sentinel errors returned by JobService. Callers check them with errors.Is;
// an HTTP layer maps them to 404 and 400 responses.
var (
	// ErrJobNotFound indicates that the job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrPlaylistNotFound indicates that the playlist does not exist.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrEmptyPlaylist indicates that PDFs were requested for a playlist without tracks.
	ErrEmptyPlaylist = errors.New("playlist has no tracks")

	// ErrNotRefetchable indicates that the playlist is not linked to the catalog.
	ErrNotRefetchable = errors.New("playlist is not linked to the catalog")

	// ErrInvalidReference indicates that a playlist reference could not be parsed.
	ErrInvalidReference = errors.New("invalid playlist reference")
)

// JobServiceError wraps unexpected errors from the job service with context.
type JobServiceError struct {
	// Operation is the operation that failed (e.g., "enqueue_refetch", "get_job")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for JobServiceError.
func (e *JobServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *JobServiceError) Unwrap() error {
	return e.Err
}

// NewJobServiceError creates a new JobServiceError.
// Store not-found errors are returned as the matching service sentinel.
func NewJobServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, store.ErrJobNotFound):
		return ErrJobNotFound
	case errors.Is(err, store.ErrPlaylistNotFound):
		return ErrPlaylistNotFound
	}

	return &JobServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
