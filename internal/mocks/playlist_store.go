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

// MockPlaylistStore is an in-memory store.PlaylistStore.
type MockPlaylistStore struct {
	mu        sync.Mutex
	playlists map[uuid.UUID]*domain.Playlist
	tracks    map[uuid.UUID][]domain.Track
	order     []uuid.UUID
	upserts   int

	UpsertFn          func(ctx context.Context, playlist *domain.Playlist, tracks []domain.Track) (uuid.UUID, error)
	GetFn             func(ctx context.Context, id uuid.UUID) (*domain.Playlist, []domain.Track, error)
	GetByExternalIDFn func(ctx context.Context, externalID string) (*domain.Playlist, error)
	ListFn            func(ctx context.Context) ([]*domain.Playlist, error)
}

// NewMockPlaylistStore creates an empty MockPlaylistStore.
func NewMockPlaylistStore() *MockPlaylistStore {
	return &MockPlaylistStore{
		playlists: make(map[uuid.UUID]*domain.Playlist),
		tracks:    make(map[uuid.UUID][]domain.Track),
	}
}

var _ store.PlaylistStore = (*MockPlaylistStore)(nil)

// Upserts returns how many successful in-memory upserts have run.
func (m *MockPlaylistStore) Upserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// Len returns the number of stored playlists.
func (m *MockPlaylistStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.playlists)
}

func (m *MockPlaylistStore) Upsert(
	ctx context.Context,
	playlist *domain.Playlist,
	tracks []domain.Track,
) (uuid.UUID, error) {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, playlist, tracks)
	}
	if err := playlist.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var existing *domain.Playlist
	if playlist.ExternalID != "" {
		for _, p := range m.playlists {
			if p.ExternalID == playlist.ExternalID {
				existing = p
				break
			}
		}
	}
	if existing == nil {
		existing = &domain.Playlist{ID: uuid.New(), ExternalID: playlist.ExternalID, CreatedAt: now}
		m.playlists[existing.ID] = existing
		m.order = append(m.order, existing.ID)
	}
	existing.Name = playlist.Name
	existing.UpdatedAt = now

	stored := make([]domain.Track, len(tracks))
	for i, t := range tracks {
		t.ID = uuid.New()
		t.PlaylistID = existing.ID
		t.Position = i
		stored[i] = t
	}
	m.tracks[existing.ID] = stored
	m.upserts++
	return existing.ID, nil
}

func (m *MockPlaylistStore) Get(ctx context.Context, id uuid.UUID) (*domain.Playlist, []domain.Track, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[id]
	if !ok {
		return nil, nil, store.ErrPlaylistNotFound
	}
	c := *p
	return &c, append([]domain.Track{}, m.tracks[id]...), nil
}

func (m *MockPlaylistStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Playlist, error) {
	if m.GetByExternalIDFn != nil {
		return m.GetByExternalIDFn(ctx, externalID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.playlists {
		if p.ExternalID != "" && p.ExternalID == externalID {
			c := *p
			return &c, nil
		}
	}
	return nil, store.ErrPlaylistNotFound
}

func (m *MockPlaylistStore) List(ctx context.Context) ([]*domain.Playlist, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Playlist, 0, len(m.order))
	for _, id := range m.order {
		c := *m.playlists[id]
		out = append(out, &c)
	}
	return out, nil
}
