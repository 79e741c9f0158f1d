package sqlite

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

// SQLiteJobStore implements store.JobStore on SQLite.
type SQLiteJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteJobStore creates a SQLiteJobStore. If logger is nil, a default logger will be used.
func NewSQLiteJobStore(db store.DBTX, logger *slog.Logger) *SQLiteJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

var _ store.JobStore = (*SQLiteJobStore)(nil)

// Create implements store.JobStore.Create
func (s *SQLiteJobStore) Create(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (uuid.UUID, error) {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, kind, status, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		job.ID.String(), string(job.Kind), string(job.Status), string(data), job.CreatedAt.UnixNano())
	if err != nil {
		log.Error("failed to create job",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return uuid.Nil, MapError(err, "job", "create")
	}

	return job.ID, nil
}

// ClaimNext implements store.JobStore.ClaimNext.
// SQLite holds the write lock for the whole statement, and the status guard
// in the outer WHERE makes a lost race update zero rows.
func (s *SQLiteJobStore) ClaimNext(ctx context.Context) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = 'processing', claimed_at = ?
		WHERE status = 'pending' AND id = (
			SELECT id FROM jobs
			WHERE status = 'pending'
			ORDER BY created_at, rowid
			LIMIT 1
		)
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query, time.Now().UTC().UnixNano()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to claim next job",
			slog.String("error", err.Error()))
		return nil, MapError(err, "job", "claim")
	}
	return job, nil
}

// Complete implements store.JobStore.Complete
func (s *SQLiteJobStore) Complete(ctx context.Context, id uuid.UUID, result domain.JobResult) error {
	data, err := domain.MarshalResult(result)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	return s.finish(ctx, id, domain.JobStatusCompleted, `
		UPDATE jobs
		SET status = 'completed', completed_at = ?, payload = json_patch(payload, ?)
		WHERE id = ? AND status = 'processing'`,
		time.Now().UTC().UnixNano(), string(data), id.String())
}

// Fail implements store.JobStore.Fail
func (s *SQLiteJobStore) Fail(ctx context.Context, id uuid.UUID, detail string) error {
	return s.finish(ctx, id, domain.JobStatusFailed, `
		UPDATE jobs
		SET status = 'failed', completed_at = ?, error_detail = ?
		WHERE id = ? AND status = 'processing'`,
		time.Now().UTC().UnixNano(), detail, id.String())
}

func (s *SQLiteJobStore) finish(ctx context.Context, id uuid.UUID, to domain.JobStatus, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	res, err := s.db.ExecContext(ctx, query, args...)
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
	err = s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id.String()).Scan(&current)
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
func (s *SQLiteJobStore) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, MapError(err, "job", "get")
	}
	return job, nil
}

// ListByPlaylist implements store.JobStore.ListByPlaylist
func (s *SQLiteJobStore) ListByPlaylist(ctx context.Context, playlistID uuid.UUID) ([]*domain.Job, error) {
	return s.list(ctx, "list_by_playlist", `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE json_extract(payload, '$.playlist_id') = ?
		ORDER BY created_at DESC, rowid DESC`,
		playlistID.String())
}

// LatestForPlaylist implements store.JobStore.LatestForPlaylist
func (s *SQLiteJobStore) LatestForPlaylist(
	ctx context.Context,
	playlistID uuid.UUID,
	kind domain.JobKind,
) (*domain.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE json_extract(payload, '$.playlist_id') = ? AND kind = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`,
		playlistID.String(), string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, MapError(err, "job", "latest_for_playlist")
	}
	return job, nil
}

// ListStale implements store.JobStore.ListStale
func (s *SQLiteJobStore) ListStale(ctx context.Context, olderThan time.Duration) ([]*domain.Job, error) {
	cutoff := time.Now().UTC().Add(-olderThan).UnixNano()
	return s.list(ctx, "list_stale", `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'processing' AND claimed_at < ?
		ORDER BY claimed_at`,
		cutoff)
}

func (s *SQLiteJobStore) list(ctx context.Context, op, query string, args ...any) ([]*domain.Job, error) {
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job         domain.Job
		id          string
		kind        string
		status      string
		payload     string
		detail      sql.NullString
		createdAt   int64
		claimedAt   sql.NullInt64
		completedAt sql.NullInt64
	)
	if err := row.Scan(&id, &kind, &status, &payload, &detail, &createdAt, &claimedAt, &completedAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: job id %q", domain.ErrInvalidID, id)
	}
	job.ID = parsed
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	// An undecodable payload is left zero-valued; the handler rejects it and
	// fails the job instead of leaving it claimed.
	if p, err := domain.UnmarshalPayload([]byte(payload)); err == nil {
		job.Payload = p
	}
	job.ErrorDetail = detail.String
	job.CreatedAt = fromNanos(createdAt)
	job.ClaimedAt = fromNullNanos(claimedAt)
	job.CompletedAt = fromNullNanos(completedAt)
	return &job, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
