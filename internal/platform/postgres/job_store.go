package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/platform/logger"
	"github.com/phrazzld/hitster/internal/store"
)

const jobColumns = `id, kind, status, payload, error_detail, created_at, claimed_at, completed_at`

// PostgresJobStore implements the store.JobStore interface
// using a PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the JobStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// Create implements store.JobStore.Create
func (s *PostgresJobStore) Create(
	ctx context.Context,
	kind domain.JobKind,
	payload domain.JobPayload,
) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	job, err := domain.NewJob(kind, payload)
	if err != nil {
		log.Warn("job validation failed during create",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return uuid.Nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	data, err := domain.MarshalPayload(job.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO jobs (id, kind, status, payload, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
	`
	_, err = s.db.ExecContext(ctx, query, job.ID, string(job.Kind), string(job.Status), string(data), job.CreatedAt)
	if err != nil {
		log.Error("failed to create job",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return uuid.Nil, MapError(err, "job", "create")
	}

	log.Debug("job created",
		slog.String("job_id", job.ID.String()),
		slog.String("kind", string(kind)))
	return job.ID, nil
}

// ClaimNext implements store.JobStore.ClaimNext.
// The oldest pending row is locked with SKIP LOCKED and flipped to processing
// in the same statement, so concurrent claimers never receive the same job.
func (s *PostgresJobStore) ClaimNext(ctx context.Context) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = 'processing', claimed_at = $1
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'pending'
			ORDER BY created_at, seq
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to claim next job", slog.String("error", err.Error()))
		return nil, MapError(err, "job", "claim")
	}

	return job, nil
}

// Complete implements store.JobStore.Complete
func (s *PostgresJobStore) Complete(ctx context.Context, id uuid.UUID, result domain.JobResult) error {
	data, err := domain.MarshalResult(result)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE jobs
		SET status = 'completed', completed_at = $2, payload = payload || $3::jsonb
		WHERE id = $1 AND status = 'processing'
	`
	return s.finish(ctx, id, domain.JobStatusCompleted, query, time.Now().UTC(), string(data))
}

// Fail implements store.JobStore.Fail
func (s *PostgresJobStore) Fail(ctx context.Context, id uuid.UUID, detail string) error {
	query := `
		UPDATE jobs
		SET status = 'failed', completed_at = $2, error_detail = $3
		WHERE id = $1 AND status = 'processing'
	`
	return s.finish(ctx, id, domain.JobStatusFailed, query, time.Now().UTC(), detail)
}

// finish runs a guarded terminal transition and explains a zero-row update.
func (s *PostgresJobStore) finish(
	ctx context.Context,
	id uuid.UUID,
	to domain.JobStatus,
	query string,
	args ...any,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	res, err := s.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		log.Error("failed to finish job",
			slog.String("job_id", id.String()),
			slog.String("status", string(to)),
			slog.String("error", err.Error()))
		return MapError(err, "job", string(to))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return MapError(err, "job", string(to))
	}
	if n == 1 {
		return nil
	}

	var current domain.JobStatus
	err = s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrJobNotFound
	}
	if err != nil {
		return MapError(err, "job", string(to))
	}

	log.Error("rejected job status transition",
		slog.String("job_id", id.String()),
		slog.String("from", string(current)),
		slog.String("to", string(to)))
	return fmt.Errorf("%w: job %s is %s, cannot become %s", store.ErrInvalidTransition, id, current, to)
}

// Get implements store.JobStore.Get
func (s *PostgresJobStore) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, MapError(err, "job", "get")
	}
	return job, nil
}

// ListByPlaylist implements store.JobStore.ListByPlaylist
func (s *PostgresJobStore) ListByPlaylist(ctx context.Context, playlistID uuid.UUID) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE payload ->> 'playlist_id' = $1
		ORDER BY created_at DESC, seq DESC
	`
	return s.list(ctx, "list_by_playlist", query, playlistID.String())
}

// LatestForPlaylist implements store.JobStore.LatestForPlaylist
func (s *PostgresJobStore) LatestForPlaylist(
	ctx context.Context,
	playlistID uuid.UUID,
	kind domain.JobKind,
) (*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE payload ->> 'playlist_id' = $1 AND kind = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, playlistID.String(), string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, MapError(err, "job", "latest_for_playlist")
	}
	return job, nil
}

// ListStale implements store.JobStore.ListStale
func (s *PostgresJobStore) ListStale(ctx context.Context, olderThan time.Duration) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = 'processing' AND claimed_at < $1
		ORDER BY claimed_at
	`
	return s.list(ctx, "list_stale", query, time.Now().UTC().Add(-olderThan))
}

func (s *PostgresJobStore) list(ctx context.Context, op, query string, args ...any) ([]*domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err, "job", op)
	}
	defer func() { _ = rows.Close() }()

	jobs := []*domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, MapError(err, "job", op)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "job", op)
	}
	return jobs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job         domain.Job
		payload     []byte
		detail      sql.NullString
		claimedAt   sql.NullTime
		completedAt sql.NullTime
	)

	if err := row.Scan(
		&job.ID,
		&job.Kind,
		&job.Status,
		&payload,
		&detail,
		&job.CreatedAt,
		&claimedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	// An undecodable payload is left zero-valued; the handler rejects it and
	// fails the job instead of leaving it claimed.
	if p, err := domain.UnmarshalPayload(payload); err == nil {
		job.Payload = p
	}
	job.ErrorDetail = detail.String
	job.CreatedAt = job.CreatedAt.UTC()
	if claimedAt.Valid {
		t := claimedAt.Time.UTC()
		job.ClaimedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}

	return &job, nil
}
