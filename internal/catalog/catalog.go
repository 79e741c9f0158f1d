package catalog

import (
	"context"

	"github.com/phrazzld/hitster/internal/domain"
)

// Playlist is a fetched playlist snapshot. Tracks are in upstream order and
// carry only their metadata; IDs, PlaylistID and Position are assigned by the store.
type Playlist struct {
	Name   string
	Tracks []domain.Track
}

// Fetcher retrieves playlist metadata from the upstream catalog.
type Fetcher interface {
	// Fetch returns the playlist identified by externalID.
	// Failures wrap ErrNotFound, ErrRateLimited or ErrUnavailable.
	Fetch(ctx context.Context, externalID string) (*Playlist, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, externalID string) (*Playlist, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, externalID string) (*Playlist, error) {
	return f(ctx, externalID)
}
