package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

// Possible job status values. A job only ever moves
// pending -> processing -> {completed, failed}.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobKind identifies the handler responsible for a job
type JobKind string

// Known job kinds, persisted as plain text.
const (
	JobKindGeneratePdfs    JobKind = "generate_pdfs"
	JobKindRefetchPlaylist JobKind = "refetch_playlist"
)

// Common validation errors for Job
var (
	ErrEmptyJobID         = errors.New("job ID cannot be empty")
	ErrInvalidJobStatus   = errors.New("invalid job status")
	ErrInvalidJobKind     = errors.New("invalid job kind")
	ErrMissingCompletedAt = errors.New("terminal job must have a completion time")
	ErrUnexpectedDone     = errors.New("non-terminal job cannot have a completion time")
)

// JobKinds returns every kind the system knows how to execute.
func JobKinds() []JobKind {
	return []JobKind{JobKindGeneratePdfs, JobKindRefetchPlaylist}
}

// Valid reports whether k is one of the known job kinds.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindGeneratePdfs, JobKindRefetchPlaylist:
		return true
	default:
		return false
	}
}

func (k JobKind) String() string {
	return string(k)
}

// Valid reports whether s is one of the four job statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are permitted from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next follows the job state machine.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

func (s JobStatus) String() string {
	return string(s)
}

// Job is a durable unit of asynchronous work. Jobs are created pending by a
// producer, claimed by exactly one worker, and retained after reaching a
// terminal state so their outcome can be queried later.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Kind        JobKind    `json:"kind"`
	Status      JobStatus  `json:"status"`
	Payload     JobPayload `json:"payload"`
	ErrorDetail string     `json:"error_detail,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job of the given kind.
// Returns an error if the kind is unknown or the payload does not fit it.
func NewJob(kind JobKind, payload JobPayload) (*Job, error) {
	if err := payload.Validate(kind); err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    JobStatusPending,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks that the job's fields are consistent with its status.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if !j.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJobKind, j.Kind)
	}

	if !j.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJobStatus, j.Status)
	}

	if j.Status.IsTerminal() && j.CompletedAt == nil {
		return ErrMissingCompletedAt
	}

	if !j.Status.IsTerminal() && j.CompletedAt != nil {
		return ErrUnexpectedDone
	}

	return nil
}

// PlaylistID returns the playlist the job targets, or uuid.Nil when the job
// is an import that has not resolved a playlist yet.
func (j *Job) PlaylistID() uuid.UUID {
	if j.Payload.PlaylistID == nil {
		return uuid.Nil
	}
	return *j.Payload.PlaylistID
}
