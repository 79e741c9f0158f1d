package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/store"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// RefreshScheduler periodically enqueues a refetch job for every playlist
// linked to the catalog. Ticks that overlap a running pass join it.
type RefreshScheduler struct {
	cron      *cron.Cron
	playlists store.PlaylistStore
	jobs      store.JobStore
	group     singleflight.Group
	logger    *slog.Logger
}

// NewRefreshScheduler parses a standard five-field cron schedule.
func NewRefreshScheduler(
	schedule string,
	playlists store.PlaylistStore,
	jobs store.JobStore,
	logger *slog.Logger,
) (*RefreshScheduler, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &RefreshScheduler{
		cron:      cron.New(),
		playlists: playlists,
		jobs:      jobs,
		logger:    logger.With(slog.String("component", "refresh_scheduler")),
	}
	s.cron.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("scheduled refresh failed", slog.String("error", err.Error()))
		}
	}))
	return s, nil
}

// Start begins running the schedule in the background.
func (s *RefreshScheduler) Start() {
	s.cron.Start()
	s.logger.Info("refresh scheduler started")
}

// Stop halts the schedule and waits for a running pass, up to ctx.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce enqueues one refetch job per linked playlist and returns how many
// it created. Playlists whose latest refetch has not finished are skipped.
func (s *RefreshScheduler) RunOnce(ctx context.Context) (int, error) {
	v, err, shared := s.group.Do("refresh", func() (any, error) {
		return s.enqueueAll(ctx)
	})
	if shared {
		s.logger.Debug("joined refresh pass already in progress")
	}
	n, _ := v.(int)
	return n, err
}

func (s *RefreshScheduler) enqueueAll(ctx context.Context) (int, error) {
	playlists, err := s.playlists.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list playlists: %w", err)
	}

	var (
		created int
		errs    []error
	)
	for _, p := range playlists {
		if !p.Refetchable() {
			continue
		}

		latest, err := s.jobs.LatestForPlaylist(ctx, p.ID, domain.JobKindRefetchPlaylist)
		switch {
		case err == nil && !latest.Status.IsTerminal():
			s.logger.Debug("refetch already queued",
				slog.String("playlist_id", p.ID.String()),
				slog.String("job_id", latest.ID.String()))
			continue
		case err != nil && !errors.Is(err, store.ErrNotFound):
			errs = append(errs, fmt.Errorf("playlist %s: %w", p.ID, err))
			continue
		}

		if _, err := s.jobs.Create(ctx, domain.JobKindRefetchPlaylist, domain.RefetchPayload(p.ID)); err != nil {
			errs = append(errs, fmt.Errorf("playlist %s: %w", p.ID, err))
			continue
		}
		created++
	}

	s.logger.Info("refresh pass enqueued jobs",
		slog.Int("playlists", len(playlists)),
		slog.Int("created", created),
		slog.Int("errors", len(errs)))
	return created, errors.Join(errs...)
}
