package render

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/hitster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("generate: %w", NewRenderError(3, domain.ErrEmptyTrackTitle))

	assert.ErrorIs(t, err, ErrRender)
	assert.ErrorIs(t, err, domain.ErrEmptyTrackTitle)

	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 3, re.TrackIndex)
	assert.Equal(t, "generate: render failed at track 3: track title cannot be empty", err.Error())
}

func TestRenderErrorWithoutTrack(t *testing.T) {
	t.Parallel()

	err := NewRenderError(-1, errors.New("disk full"))
	assert.Equal(t, "render failed: disk full", err.Error())
	assert.ErrorIs(t, err, ErrRender)
}
