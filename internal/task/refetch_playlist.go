package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/hitster/internal/catalog"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/platform/logger"
	"github.com/phrazzld/hitster/internal/store"
)

// RefetchPlaylistHandler refreshes a stored playlist from the catalog, or
// imports a new one when the job only names an external ID. The store is
// written only after a complete fetch.
type RefetchPlaylistHandler struct {
	playlists store.PlaylistStore
	fetcher   catalog.Fetcher
	timeout   time.Duration
}

// NewRefetchPlaylistHandler creates the handler. timeout bounds each fetch;
// zero means no deadline beyond the job context.
func NewRefetchPlaylistHandler(
	playlists store.PlaylistStore,
	fetcher catalog.Fetcher,
	timeout time.Duration,
) *RefetchPlaylistHandler {
	return &RefetchPlaylistHandler{playlists: playlists, fetcher: fetcher, timeout: timeout}
}

var _ Handler = (*RefetchPlaylistHandler)(nil)

// Execute implements Handler.
func (h *RefetchPlaylistHandler) Execute(ctx context.Context, job *domain.Job) (domain.JobResult, error) {
	log := logger.FromContext(ctx)

	if err := job.Payload.Validate(domain.JobKindRefetchPlaylist); err != nil {
		return domain.JobResult{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	externalID := job.Payload.ExternalID
	importing := job.Payload.PlaylistID == nil
	if !importing {
		playlist, _, err := h.playlists.Get(ctx, *job.Payload.PlaylistID)
		if err != nil {
			return domain.JobResult{}, fmt.Errorf("load playlist %s: %w", *job.Payload.PlaylistID, err)
		}
		if !playlist.Refetchable() {
			return domain.JobResult{}, fmt.Errorf("%w: playlist %s", ErrPlaylistNotRefetchable, playlist.ID)
		}
		externalID = playlist.ExternalID
	}

	fetched, err := h.fetch(ctx, externalID)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("fetch playlist %q: %w", externalID, err)
	}

	id, err := h.playlists.Upsert(ctx, &domain.Playlist{ExternalID: externalID, Name: fetched.Name}, fetched.Tracks)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("store playlist %q: %w", externalID, err)
	}

	log.Info("playlist refreshed",
		slog.String("playlist_id", id.String()),
		slog.String("external_id", externalID),
		slog.Int("tracks", len(fetched.Tracks)))

	if importing {
		return domain.JobResult{PlaylistID: &id}, nil
	}
	return domain.JobResult{}, nil
}

func (h *RefetchPlaylistHandler) fetch(ctx context.Context, externalID string) (*catalog.Playlist, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	fetched, err := h.fetcher.Fetch(ctx, externalID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, catalog.Unavailable(err)
		}
		return nil, err
	}
	return fetched, nil
}
