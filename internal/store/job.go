package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/domain"
)

// JobStore defines durable persistence for jobs. The pending rows are the
// work queue; implementations must make ClaimNext, Complete and Fail single
// atomic conditional updates.
type JobStore interface {
	// Create inserts a pending job with created_at = now and returns its ID.
	// Returns ErrInvalidEntity if the payload does not fit the kind.
	Create(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (uuid.UUID, error)

	// ClaimNext atomically moves the oldest pending job to processing and
	// returns it. Returns nil and no error when nothing is pending.
	ClaimNext(ctx context.Context) (*domain.Job, error)

	// Complete moves a processing job to completed, sets completed_at and
	// merges result into the stored payload.
	// Returns ErrInvalidTransition if the job is not processing, and
	// ErrJobNotFound if it does not exist.
	Complete(ctx context.Context, id uuid.UUID, result domain.JobResult) error

	// Fail moves a processing job to failed with the given detail.
	// Same guard as Complete.
	Fail(ctx context.Context, id uuid.UUID, detail string) error

	// Get retrieves a job by ID.
	// Returns ErrJobNotFound if the job does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// ListByPlaylist returns the jobs targeting a playlist, newest first.
	ListByPlaylist(ctx context.Context, playlistID uuid.UUID) ([]*domain.Job, error)

	// LatestForPlaylist returns the newest job of the given kind for a playlist.
	// Returns ErrJobNotFound if there is none.
	LatestForPlaylist(ctx context.Context, playlistID uuid.UUID, kind domain.JobKind) (*domain.Job, error)

	// ListStale returns processing jobs claimed before now - olderThan, oldest first.
	ListStale(ctx context.Context, olderThan time.Duration) ([]*domain.Job, error)
}
