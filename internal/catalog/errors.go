package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Errors reported by Fetcher implementations.
var (
	// ErrNotFound is returned when the reference does not name a playlist.
	ErrNotFound = errors.New("playlist not found in catalog")

	// ErrRateLimited is returned when the catalog asks the caller to back off.
	ErrRateLimited = errors.New("catalog rate limit exceeded")

	// ErrUnavailable is returned for transient failures: transport errors,
	// server errors and deadlines.
	ErrUnavailable = errors.New("catalog unavailable")
)

// IsTransient reports whether err is worth retrying with a new job.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

// Unavailable wraps err as ErrUnavailable unless it already belongs to the
// catalog taxonomy. Context deadlines and cancellations are transient.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || IsTransient(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: deadline exceeded: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
