package task

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/platform/logger"
	"github.com/phrazzld/hitster/internal/render"
	"github.com/phrazzld/hitster/internal/store"
)

// GeneratePdfsHandler renders the card sheets for a stored playlist and
// returns their locations. A failed render is not retried.
type GeneratePdfsHandler struct {
	playlists store.PlaylistStore
	renderer  render.Renderer
	timeout   time.Duration
}

// NewGeneratePdfsHandler creates the handler. timeout bounds each render;
// zero means no deadline beyond the job context.
func NewGeneratePdfsHandler(
	playlists store.PlaylistStore,
	renderer render.Renderer,
	timeout time.Duration,
) *GeneratePdfsHandler {
	return &GeneratePdfsHandler{playlists: playlists, renderer: renderer, timeout: timeout}
}

var _ Handler = (*GeneratePdfsHandler)(nil)

// Execute implements Handler.
func (h *GeneratePdfsHandler) Execute(ctx context.Context, job *domain.Job) (domain.JobResult, error) {
	if err := job.Payload.Validate(domain.JobKindGeneratePdfs); err != nil {
		return domain.JobResult{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	id := *job.Payload.PlaylistID

	playlist, tracks, err := h.playlists.Get(ctx, id)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("load playlist %s: %w", id, err)
	}
	if len(tracks) == 0 {
		return domain.JobResult{}, fmt.Errorf("%w: playlist %s", ErrEmptyPlaylist, id)
	}
	slices.SortStableFunc(tracks, func(a, b domain.Track) int { return cmp.Compare(a.Position, b.Position) })

	renderCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	docs, err := h.renderer.Render(renderCtx, playlist.ID, playlist.Name, tracks)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.JobResult{}, fmt.Errorf("render playlist %s: timed out after %s: %w", id, h.timeout, err)
		}
		return domain.JobResult{}, fmt.Errorf("render playlist %s: %w", id, err)
	}

	logger.FromContext(ctx).Info("card sheets rendered",
		slog.String("playlist_id", id.String()),
		slog.Int("tracks", len(tracks)),
		slog.String("front_pdf_path", docs.FrontPath),
		slog.String("back_pdf_path", docs.BackPath))

	return domain.JobResult{FrontPDFPath: docs.FrontPath, BackPDFPath: docs.BackPath}, nil
}
