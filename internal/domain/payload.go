package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PayloadVersion is the schema version written into every new job payload.
const PayloadVersion = 1

// Payload validation errors
var (
	ErrInvalidPayload         = errors.New("invalid job payload")
	ErrUnsupportedPayload     = fmt.Errorf("%w: unsupported version", ErrInvalidPayload)
	ErrPayloadMissingPlaylist = fmt.Errorf("%w: playlist_id is required", ErrInvalidPayload)
	ErrPayloadAmbiguousTarget = fmt.Errorf(
		"%w: exactly one of playlist_id or external_id is required",
		ErrInvalidPayload,
	)
)

// JobPayload is the versioned, kind-specific document persisted with a job.
// Which keys are required depends on the job kind; result keys such as the
// PDF paths are merged in when the job completes.
type JobPayload struct {
	Version      int        `json:"version"`
	PlaylistID   *uuid.UUID `json:"playlist_id,omitempty"`
	ExternalID   string     `json:"external_id,omitempty"`
	FrontPDFPath string     `json:"front_pdf_path,omitempty"`
	BackPDFPath  string     `json:"back_pdf_path,omitempty"`
}

// JobResult is the payload update a handler returns on success.
// Zero-valued fields leave the stored payload untouched.
type JobResult struct {
	PlaylistID   *uuid.UUID `json:"playlist_id,omitempty"`
	FrontPDFPath string     `json:"front_pdf_path,omitempty"`
	BackPDFPath  string     `json:"back_pdf_path,omitempty"`
}

// RefetchPayload builds the payload for refreshing an existing playlist.
func RefetchPayload(playlistID uuid.UUID) JobPayload {
	return JobPayload{Version: PayloadVersion, PlaylistID: &playlistID}
}

// ImportPayload builds the payload for fetching a playlist that may not be
// stored yet, addressed only by its catalog id.
func ImportPayload(externalID string) JobPayload {
	return JobPayload{Version: PayloadVersion, ExternalID: externalID}
}

// GeneratePdfsPayload builds the payload for rendering a playlist's card sheets.
func GeneratePdfsPayload(playlistID uuid.UUID) JobPayload {
	return JobPayload{Version: PayloadVersion, PlaylistID: &playlistID}
}

// Validate checks that the payload carries the keys the given kind needs.
func (p JobPayload) Validate(kind JobKind) error {
	if p.Version != PayloadVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedPayload, p.Version)
	}

	hasPlaylist := p.PlaylistID != nil && *p.PlaylistID != uuid.Nil

	switch kind {
	case JobKindRefetchPlaylist:
		if hasPlaylist == (p.ExternalID != "") {
			return ErrPayloadAmbiguousTarget
		}
	case JobKindGeneratePdfs:
		if !hasPlaylist {
			return ErrPayloadMissingPlaylist
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidJobKind, kind)
	}

	return nil
}

// WithResult returns a copy of p with the non-empty fields of r applied.
func (p JobPayload) WithResult(r JobResult) JobPayload {
	if r.PlaylistID != nil {
		id := *r.PlaylistID
		p.PlaylistID = &id
	}
	if r.FrontPDFPath != "" {
		p.FrontPDFPath = r.FrontPDFPath
	}
	if r.BackPDFPath != "" {
		p.BackPDFPath = r.BackPDFPath
	}
	return p
}

// IsZero reports whether the result carries no payload update.
func (r JobResult) IsZero() bool {
	return r.PlaylistID == nil && r.FrontPDFPath == "" && r.BackPDFPath == ""
}

// MarshalPayload encodes a payload for storage.
func MarshalPayload(p JobPayload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	return data, nil
}

// MarshalResult encodes a result as the JSON object merged into a stored payload.
// A zero result encodes as {} and merges to a no-op.
func MarshalResult(r JobResult) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job result: %w", err)
	}
	return data, nil
}

// UnmarshalPayload decodes a stored payload. It does not validate it against a
// kind, so rows written by older or newer code can still be inspected.
func UnmarshalPayload(data []byte) (JobPayload, error) {
	var p JobPayload
	if len(data) == 0 {
		return p, ErrInvalidPayload
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}
