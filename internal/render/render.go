package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/domain"
)

// Documents are the storage locations of one rendered card set.
type Documents struct {
	FrontPath string
	BackPath  string
}

// Renderer produces the two card sheets for a playlist.
// Output is deterministic for identical input apart from the file names.
type Renderer interface {
	// Render lays out tracks in slice order under title. playlistID only
	// names the produced files.
	Render(ctx context.Context, playlistID uuid.UUID, title string, tracks []domain.Track) (Documents, error)
}

// ErrRender is matched by every *RenderError.
var ErrRender = errors.New("render failed")

// RenderError reports the track that could not be rendered.
// TrackIndex is -1 when the failure is not tied to one track.
type RenderError struct {
	TrackIndex int
	Err        error
}

// NewRenderError creates a RenderError for the track at index.
func NewRenderError(index int, err error) *RenderError {
	return &RenderError{TrackIndex: index, Err: err}
}

func (e *RenderError) Error() string {
	if e.TrackIndex < 0 {
		return fmt.Sprintf("render failed: %v", e.Err)
	}
	return fmt.Sprintf("render failed at track %d: %v", e.TrackIndex, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is makes every RenderError match ErrRender.
func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}
