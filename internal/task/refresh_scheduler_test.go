package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/mocks"
	"github.com/phrazzld/hitster/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshScheduler_InvalidSchedule(t *testing.T) {
	t.Parallel()

	_, err := NewRefreshScheduler("every day", mocks.NewMockPlaylistStore(), mocks.NewMockJobStore(), nil)
	assert.Error(t, err)
}

func TestRefreshScheduler_RunOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	playlists := mocks.NewMockPlaylistStore()
	linked, err := playlists.Upsert(ctx, &domain.Playlist{ExternalID: "abc", Name: "Linked"}, nil)
	require.NoError(t, err)
	queued, err := playlists.Upsert(ctx, &domain.Playlist{ExternalID: "def", Name: "Already queued"}, nil)
	require.NoError(t, err)
	_, err = playlists.Upsert(ctx, &domain.Playlist{Name: "Local"}, nil)
	require.NoError(t, err)

	jobs := mocks.NewMockJobStore()
	pendingID, err := jobs.Create(ctx, domain.JobKindRefetchPlaylist, domain.RefetchPayload(queued))
	require.NoError(t, err)

	s, err := NewRefreshScheduler("0 3 * * *", playlists, jobs, nil)
	require.NoError(t, err)

	n, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the linked playlist without an open refetch gets a job")

	latest, err := jobs.LatestForPlaylist(ctx, linked, domain.JobKindRefetchPlaylist)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, latest.Status)

	latest, err = jobs.LatestForPlaylist(ctx, queued, domain.JobKindRefetchPlaylist)
	require.NoError(t, err)
	assert.Equal(t, pendingID, latest.ID)

	assert.Len(t, jobs.Jobs(), 2)
}

func TestRefreshScheduler_RequeuesAfterTerminalJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	playlists := mocks.NewMockPlaylistStore()
	id, err := playlists.Upsert(ctx, &domain.Playlist{ExternalID: "abc", Name: "Linked"}, nil)
	require.NoError(t, err)

	jobs := mocks.NewMockJobStore()
	done, err := jobs.Create(ctx, domain.JobKindRefetchPlaylist, domain.RefetchPayload(id))
	require.NoError(t, err)
	_, err = jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, jobs.Fail(ctx, done, "catalog unavailable"))

	s, err := NewRefreshScheduler("@hourly", playlists, jobs, nil)
	require.NoError(t, err)

	n, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRefreshScheduler_CollectsErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	playlists := mocks.NewMockPlaylistStore()
	for _, ref := range []string{"a", "b"} {
		_, err := playlists.Upsert(ctx, &domain.Playlist{ExternalID: ref, Name: ref}, nil)
		require.NoError(t, err)
	}

	jobs := mocks.NewMockJobStore()
	var calls int
	jobs.CreateFn = func(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (uuid.UUID, error) {
		calls++
		if calls == 1 {
			return uuid.Nil, store.NewStoreError("job", "create", "database error", errors.New("down"))
		}
		return uuid.New(), nil
	}

	s, err := NewRefreshScheduler("@daily", playlists, jobs, nil)
	require.NoError(t, err)

	n, err := s.RunOnce(ctx)
	assert.Equal(t, 1, n, "one failure does not stop the pass")
	assert.ErrorIs(t, err, store.ErrStorage)
}

func TestRefreshScheduler_OverlappingRunsShareOnePass(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		lists int
	)
	playlists := mocks.NewMockPlaylistStore()
	playlists.ListFn = func(ctx context.Context) ([]*domain.Playlist, error) {
		mu.Lock()
		lists++
		first := lists == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
		return nil, nil
	}

	s, err := NewRefreshScheduler("@daily", playlists, mocks.NewMockJobStore(), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.RunOnce(ctx)
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.RunOnce(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, lists, "the second run joins the first")
}

func TestRefreshScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s, err := NewRefreshScheduler("@every 1h", mocks.NewMockPlaylistStore(), mocks.NewMockJobStore(), nil)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
