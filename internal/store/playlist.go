package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/domain"
)

// PlaylistStore defines durable persistence for playlists and their tracks.
type PlaylistStore interface {
	// Upsert stores a playlist and replaces its whole track list in one
	// transaction. A playlist with the same external ID is updated in place
	// (name and updated_at; created_at is kept), otherwise a new one is inserted.
	// Track positions are assigned 0..n-1 in slice order.
	// Returns the internal playlist ID.
	Upsert(ctx context.Context, playlist *domain.Playlist, tracks []domain.Track) (uuid.UUID, error)

	// Get retrieves a playlist and its tracks ordered by position.
	// Returns ErrPlaylistNotFound if the playlist does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Playlist, []domain.Track, error)

	// GetByExternalID retrieves a playlist by its catalog ID, without tracks.
	// Returns ErrPlaylistNotFound if no playlist is linked to that ID.
	GetByExternalID(ctx context.Context, externalID string) (*domain.Playlist, error)

	// List returns all playlists ordered by creation time, without tracks.
	List(ctx context.Context) ([]*domain.Playlist, error)
}
