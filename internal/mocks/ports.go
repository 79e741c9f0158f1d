package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/catalog"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/render"
	"github.com/stretchr/testify/mock"
)

// MockFetcher is a catalog.Fetcher that records the requested IDs.
// Without FetchFn every fetch fails with catalog.ErrNotFound.
type MockFetcher struct {
	mu    sync.Mutex
	calls []string

	FetchFn func(ctx context.Context, externalID string) (*catalog.Playlist, error)
}

var _ catalog.Fetcher = (*MockFetcher)(nil)

func (m *MockFetcher) Fetch(ctx context.Context, externalID string) (*catalog.Playlist, error) {
	m.mu.Lock()
	m.calls = append(m.calls, externalID)
	m.mu.Unlock()
	if m.FetchFn == nil {
		return nil, catalog.ErrNotFound
	}
	return m.FetchFn(ctx, externalID)
}

// Calls returns the external IDs fetched so far.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.calls...)
}

// MockRenderer is a testify mock of render.Renderer.
type MockRenderer struct {
	mock.Mock
}

var _ render.Renderer = (*MockRenderer)(nil)

func (m *MockRenderer) Render(
	ctx context.Context,
	playlistID uuid.UUID,
	title string,
	tracks []domain.Track,
) (render.Documents, error) {
	args := m.Called(ctx, playlistID, title, tracks)
	docs, _ := args.Get(0).(render.Documents)
	return docs, args.Error(1)
}
