package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/mocks"
	"github.com/phrazzld/hitster/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	jobs      *mocks.MockJobStore
	playlists *mocks.MockPlaylistStore
	svc       JobService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	jobs := mocks.NewMockJobStore()
	playlists := mocks.NewMockPlaylistStore()
	svc, err := NewJobService(jobs, playlists, nil)
	require.NoError(t, err)
	return fixture{jobs: jobs, playlists: playlists, svc: svc}
}

func (f fixture) seed(t *testing.T, externalID string, tracks int) uuid.UUID {
	t.Helper()
	list := make([]domain.Track, tracks)
	for i := range list {
		list[i] = domain.Track{Title: "t", Artist: "a", Year: 2000, ExternalURL: "https://open.spotify.com/track/x"}
	}
	id, err := f.playlists.Upsert(context.Background(), &domain.Playlist{ExternalID: externalID, Name: "p"}, list)
	require.NoError(t, err)
	return id
}

func TestNewJobService_RequiresStores(t *testing.T) {
	t.Parallel()

	_, err := NewJobService(nil, mocks.NewMockPlaylistStore(), nil)
	assert.Error(t, err)
	_, err = NewJobService(mocks.NewMockJobStore(), nil, nil)
	assert.Error(t, err)
}

func TestEnqueueRefetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	linked := f.seed(t, "abc", 1)
	local := f.seed(t, "", 1)

	id, err := f.svc.EnqueueRefetch(ctx, linked)
	require.NoError(t, err)

	job, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobKindRefetchPlaylist, job.Kind)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, linked, job.PlaylistID())

	_, err = f.svc.EnqueueRefetch(ctx, local)
	assert.ErrorIs(t, err, ErrNotRefetchable)

	_, err = f.svc.EnqueueRefetch(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestEnqueueImport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("new playlist", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.svc.EnqueueImport(ctx, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc")
		require.NoError(t, err)

		job, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M", job.Payload.ExternalID)
		assert.Nil(t, job.Payload.PlaylistID)
	})

	t.Run("known playlist is refreshed by id", func(t *testing.T) {
		f := newFixture(t)
		existing := f.seed(t, "37i9dQZF1DXcBWIGoYBM5M", 2)

		id, err := f.svc.EnqueueImport(ctx, "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M")
		require.NoError(t, err)

		job, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, existing, job.PlaylistID())
		assert.Empty(t, job.Payload.ExternalID)
	})

	t.Run("invalid reference", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.EnqueueImport(ctx, "https://example.com/playlist/abc")
		assert.ErrorIs(t, err, ErrInvalidReference)
		assert.ErrorIs(t, err, domain.ErrInvalidExternalRef)
		assert.Empty(t, f.jobs.Jobs())
	})

	t.Run("lookup failure", func(t *testing.T) {
		f := newFixture(t)
		f.playlists.GetByExternalIDFn = func(ctx context.Context, externalID string) (*domain.Playlist, error) {
			return nil, store.NewStoreError("playlist", "get_by_external_id", "database error", errors.New("down"))
		}
		_, err := f.svc.EnqueueImport(ctx, "abc")
		var svcErr *JobServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "enqueue_import", svcErr.Operation)
		assert.ErrorIs(t, err, store.ErrStorage)
	})
}

func TestEnqueueGeneratePdfs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	full := f.seed(t, "abc", 3)
	empty := f.seed(t, "def", 0)

	id, err := f.svc.EnqueueGeneratePdfs(ctx, full)
	require.NoError(t, err)
	job, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobKindGeneratePdfs, job.Kind)

	_, err = f.svc.EnqueueGeneratePdfs(ctx, empty)
	assert.ErrorIs(t, err, ErrEmptyPlaylist)

	_, err = f.svc.EnqueueGeneratePdfs(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestEnqueue_StoreFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	playlistID := f.seed(t, "abc", 1)

	f.jobs.CreateFn = func(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (uuid.UUID, error) {
		return uuid.Nil, store.NewStoreError("job", "create", "database error", errors.New("down"))
	}

	_, err := f.svc.EnqueueGeneratePdfs(context.Background(), playlistID)
	var svcErr *JobServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "enqueue_generate_pdfs", svcErr.Operation)
	assert.ErrorIs(t, err, store.ErrStorage)
}

func TestStatusQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	playlistID := f.seed(t, "abc", 1)

	refetch, err := f.svc.EnqueueRefetch(ctx, playlistID)
	require.NoError(t, err)
	generate, err := f.svc.EnqueueGeneratePdfs(ctx, playlistID)
	require.NoError(t, err)

	history, err := f.svc.History(ctx, playlistID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, generate, history[0].ID)
	assert.Equal(t, refetch, history[1].ID)

	latest, err := f.svc.LatestForPlaylist(ctx, playlistID, domain.JobKindRefetchPlaylist)
	require.NoError(t, err)
	assert.Equal(t, refetch, latest.ID)

	_, err = f.svc.LatestForPlaylist(ctx, uuid.New(), domain.JobKindGeneratePdfs)
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = f.svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestNewJobServiceError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewJobServiceError("op", "msg", nil))
	assert.Equal(t, ErrJobNotFound, NewJobServiceError("op", "msg", store.ErrJobNotFound))
	assert.Equal(t, ErrPlaylistNotFound, NewJobServiceError("op", "msg", store.ErrPlaylistNotFound))

	err := NewJobServiceError("get_job", "failed to get job", errors.New("boom"))
	assert.Equal(t, "job service get_job failed: failed to get job: boom", err.Error())
}
