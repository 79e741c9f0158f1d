package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/platform/logger"
	"github.com/phrazzld/hitster/internal/store"
)

// JobService creates jobs and reports their progress. Jobs are executed by
// the worker pool; callers poll Get to observe them.
type JobService interface {
	// EnqueueRefetch queues a refresh of a stored, catalog-linked playlist.
	EnqueueRefetch(ctx context.Context, playlistID uuid.UUID) (uuid.UUID, error)

	// EnqueueImport queues a fetch of the playlist named by ref, which may be
	// a catalog URL, URI or bare ID.
	EnqueueImport(ctx context.Context, ref string) (uuid.UUID, error)

	// EnqueueGeneratePdfs queues card sheet rendering for a playlist with tracks.
	EnqueueGeneratePdfs(ctx context.Context, playlistID uuid.UUID) (uuid.UUID, error)

	// Get returns a job by ID.
	Get(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)

	// LatestForPlaylist returns the newest job of kind for a playlist.
	LatestForPlaylist(ctx context.Context, playlistID uuid.UUID, kind domain.JobKind) (*domain.Job, error)

	// History returns every job for a playlist, newest first.
	History(ctx context.Context, playlistID uuid.UUID) ([]*domain.Job, error)
}

type jobServiceImpl struct {
	jobs      store.JobStore
	playlists store.PlaylistStore
	logger    *slog.Logger
}

// NewJobService creates a JobService backed by the given stores.
func NewJobService(jobs store.JobStore, playlists store.PlaylistStore, logger *slog.Logger) (JobService, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job store cannot be nil")
	}
	if playlists == nil {
		return nil, fmt.Errorf("playlist store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &jobServiceImpl{
		jobs:      jobs,
		playlists: playlists,
		logger:    logger.With(slog.String("component", "job_service")),
	}, nil
}

func (s *jobServiceImpl) EnqueueRefetch(ctx context.Context, playlistID uuid.UUID) (uuid.UUID, error) {
	playlist, _, err := s.playlists.Get(ctx, playlistID)
	if err != nil {
		return uuid.Nil, NewJobServiceError("enqueue_refetch", "failed to load playlist", err)
	}
	if !playlist.Refetchable() {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrNotRefetchable, playlistID)
	}
	return s.create(ctx, "enqueue_refetch", domain.JobKindRefetchPlaylist, domain.RefetchPayload(playlistID))
}

func (s *jobServiceImpl) EnqueueImport(ctx context.Context, ref string) (uuid.UUID, error) {
	externalID, err := domain.ParseExternalRef(ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}

	// A playlist that is already stored is refreshed by id, so its job history
	// stays attached to it.
	existing, err := s.playlists.GetByExternalID(ctx, externalID)
	switch {
	case err == nil:
		return s.create(ctx, "enqueue_import", domain.JobKindRefetchPlaylist, domain.RefetchPayload(existing.ID))
	case !store.IsNotFoundError(err):
		return uuid.Nil, NewJobServiceError("enqueue_import", "failed to look up playlist", err)
	}
	return s.create(ctx, "enqueue_import", domain.JobKindRefetchPlaylist, domain.ImportPayload(externalID))
}

func (s *jobServiceImpl) EnqueueGeneratePdfs(ctx context.Context, playlistID uuid.UUID) (uuid.UUID, error) {
	_, tracks, err := s.playlists.Get(ctx, playlistID)
	if err != nil {
		return uuid.Nil, NewJobServiceError("enqueue_generate_pdfs", "failed to load playlist", err)
	}
	if len(tracks) == 0 {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrEmptyPlaylist, playlistID)
	}
	return s.create(ctx, "enqueue_generate_pdfs", domain.JobKindGeneratePdfs, domain.GeneratePdfsPayload(playlistID))
}

func (s *jobServiceImpl) create(
	ctx context.Context,
	operation string,
	kind domain.JobKind,
	payload domain.JobPayload,
) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	id, err := s.jobs.Create(ctx, kind, payload)
	if err != nil {
		log.Error("failed to enqueue job",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return uuid.Nil, NewJobServiceError(operation, "failed to create job", err)
	}

	log.Info("job enqueued",
		slog.String("job_id", id.String()),
		slog.String("kind", string(kind)))
	return id, nil
}

func (s *jobServiceImpl) Get(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, NewJobServiceError("get_job", "failed to get job", err)
	}
	return job, nil
}

func (s *jobServiceImpl) LatestForPlaylist(
	ctx context.Context,
	playlistID uuid.UUID,
	kind domain.JobKind,
) (*domain.Job, error) {
	job, err := s.jobs.LatestForPlaylist(ctx, playlistID, kind)
	if err != nil {
		return nil, NewJobServiceError("latest_for_playlist", "failed to get latest job", err)
	}
	return job, nil
}

func (s *jobServiceImpl) History(ctx context.Context, playlistID uuid.UUID) ([]*domain.Job, error) {
	jobs, err := s.jobs.ListByPlaylist(ctx, playlistID)
	if err != nil {
		return nil, NewJobServiceError("history", "failed to list jobs", err)
	}
	return jobs, nil
}
