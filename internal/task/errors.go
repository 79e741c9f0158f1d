package task

import "errors"

var (
	// ErrInvalidPayload is returned when a job payload does not fit its kind.
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrEmptyPlaylist is returned when PDFs are requested for a playlist
	// without tracks.
	ErrEmptyPlaylist = errors.New("playlist has no tracks")

	// ErrPlaylistNotRefetchable is returned when a refetch targets a playlist
	// that is not linked to the catalog.
	ErrPlaylistNotRefetchable = errors.New("playlist has no external id")

	// ErrUnknownJobKind is returned when no handler is registered for a kind.
	ErrUnknownJobKind = errors.New("no handler registered for job kind")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
)
