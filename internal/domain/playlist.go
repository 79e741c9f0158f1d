package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Playlist and Track
var (
	ErrEmptyPlaylistName  = errors.New("playlist name cannot be empty")
	ErrEmptyTrackTitle    = errors.New("track title cannot be empty")
	ErrEmptyTrackArtist   = errors.New("track artist cannot be empty")
	ErrEmptyTrackURL      = errors.New("track url cannot be empty")
	ErrInvalidTrackYear   = errors.New("track year cannot be negative")
	ErrNonContiguousOrder = errors.New("track positions must be contiguous from 0")
)

// Playlist is a named, ordered collection of tracks, optionally linked to a
// playlist in the upstream music catalog. It is the sole owner of its tracks.
type Playlist struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Track is one card in a playlist. Position defines the print and display
// order and is unique within the playlist.
type Track struct {
	ID          uuid.UUID `json:"id"`
	PlaylistID  uuid.UUID `json:"playlist_id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Year        int       `json:"year"`
	ExternalURL string    `json:"external_url"`
	CoverURL    string    `json:"cover_url,omitempty"`
	Position    int       `json:"position"`
}

// Validate checks if the Playlist has valid data.
func (p *Playlist) Validate() error {
	if p.Name == "" {
		return ErrEmptyPlaylistName
	}
	return nil
}

// Refetchable reports whether the playlist can be refreshed from the catalog.
func (p *Playlist) Refetchable() bool {
	return p.ExternalID != ""
}

// Validate checks if the Track has valid data.
func (t *Track) Validate() error {
	if t.Title == "" {
		return ErrEmptyTrackTitle
	}

	if t.Artist == "" {
		return ErrEmptyTrackArtist
	}

	if t.ExternalURL == "" {
		return ErrEmptyTrackURL
	}

	if t.Year < 0 {
		return ErrInvalidTrackYear
	}

	return nil
}

// ValidateTrackOrder checks that tracks carry positions 0..n-1 in slice order.
func ValidateTrackOrder(tracks []Track) error {
	for i := range tracks {
		if tracks[i].Position != i {
			return ErrNonContiguousOrder
		}
	}
	return nil
}
