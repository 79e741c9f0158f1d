package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/store"
)

// MockJobStore is an in-memory store.JobStore. Jobs are claimed in creation order.
type MockJobStore struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]*domain.Job
	order []uuid.UUID

	CreateFn            func(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (uuid.UUID, error)
	ClaimNextFn         func(ctx context.Context) (*domain.Job, error)
	CompleteFn          func(ctx context.Context, id uuid.UUID, result domain.JobResult) error
	FailFn              func(ctx context.Context, id uuid.UUID, detail string) error
	GetFn               func(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	ListByPlaylistFn    func(ctx context.Context, playlistID uuid.UUID) ([]*domain.Job, error)
	LatestForPlaylistFn func(ctx context.Context, playlistID uuid.UUID, kind domain.JobKind) (*domain.Job, error)
	ListStaleFn         func(ctx context.Context, olderThan time.Duration) ([]*domain.Job, error)
}

// NewMockJobStore creates an empty MockJobStore.
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

var _ store.JobStore = (*MockJobStore)(nil)

// Put stores a copy of job as is, bypassing validation. Useful for seeding
// rows with unknown kinds or stale claims.
func (m *MockJobStore) Put(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		m.order = append(m.order, job.ID)
	}
	m.jobs[job.ID] = cloneJob(job)
}

// Jobs returns copies of every stored job in creation order.
func (m *MockJobStore) Jobs() []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneJob(m.jobs[id]))
	}
	return out
}

func (m *MockJobStore) Create(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (uuid.UUID, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, kind, payload)
	}
	job, err := domain.NewJob(kind, payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	m.Put(job)
	return job.ID, nil
}

func (m *MockJobStore) ClaimNext(ctx context.Context) (*domain.Job, error) {
	if m.ClaimNextFn != nil {
		return m.ClaimNextFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		job := m.jobs[id]
		if job.Status != domain.JobStatusPending {
			continue
		}
		now := time.Now().UTC()
		job.Status = domain.JobStatusProcessing
		job.ClaimedAt = &now
		return cloneJob(job), nil
	}
	return nil, nil
}

func (m *MockJobStore) Complete(ctx context.Context, id uuid.UUID, result domain.JobResult) error {
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, id, result)
	}
	return m.finish(id, domain.JobStatusCompleted, func(job *domain.Job) {
		job.Payload = job.Payload.WithResult(result)
	})
}

func (m *MockJobStore) Fail(ctx context.Context, id uuid.UUID, detail string) error {
	if m.FailFn != nil {
		return m.FailFn(ctx, id, detail)
	}
	return m.finish(id, domain.JobStatusFailed, func(job *domain.Job) {
		job.ErrorDetail = detail
	})
}

func (m *MockJobStore) finish(id uuid.UUID, to domain.JobStatus, apply func(*domain.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	if job.Status != domain.JobStatusProcessing {
		return fmt.Errorf("%w: job %s is %s, cannot become %s", store.ErrInvalidTransition, id, job.Status, to)
	}
	now := time.Now().UTC()
	job.Status = to
	job.CompletedAt = &now
	apply(job)
	return nil
}

func (m *MockJobStore) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (m *MockJobStore) ListByPlaylist(ctx context.Context, playlistID uuid.UUID) ([]*domain.Job, error) {
	if m.ListByPlaylistFn != nil {
		return m.ListByPlaylistFn(ctx, playlistID)
	}
	return m.filter(func(j *domain.Job) bool { return j.PlaylistID() == playlistID }, true), nil
}

func (m *MockJobStore) LatestForPlaylist(
	ctx context.Context,
	playlistID uuid.UUID,
	kind domain.JobKind,
) (*domain.Job, error) {
	if m.LatestForPlaylistFn != nil {
		return m.LatestForPlaylistFn(ctx, playlistID, kind)
	}
	jobs := m.filter(func(j *domain.Job) bool {
		return j.PlaylistID() == playlistID && j.Kind == kind
	}, true)
	if len(jobs) == 0 {
		return nil, store.ErrJobNotFound
	}
	return jobs[0], nil
}

func (m *MockJobStore) ListStale(ctx context.Context, olderThan time.Duration) ([]*domain.Job, error) {
	if m.ListStaleFn != nil {
		return m.ListStaleFn(ctx, olderThan)
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return m.filter(func(j *domain.Job) bool {
		return j.Status == domain.JobStatusProcessing && j.ClaimedAt != nil && j.ClaimedAt.Before(cutoff)
	}, false), nil
}

func (m *MockJobStore) filter(keep func(*domain.Job) bool, newestFirst bool) []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Job{}
	for _, id := range m.order {
		if job := m.jobs[id]; keep(job) {
			out = append(out, cloneJob(job))
		}
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func cloneJob(job *domain.Job) *domain.Job {
	c := *job
	if job.Payload.PlaylistID != nil {
		id := *job.Payload.PlaylistID
		c.Payload.PlaylistID = &id
	}
	if job.ClaimedAt != nil {
		t := *job.ClaimedAt
		c.ClaimedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
