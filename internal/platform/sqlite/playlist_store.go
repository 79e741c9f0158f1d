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

const playlistColumns = `id, external_id, name, created_at, updated_at`

// SQLitePlaylistStore implements store.PlaylistStore on SQLite.
type SQLitePlaylistStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLitePlaylistStore creates a SQLitePlaylistStore. When db is a *sql.DB,
// Upsert opens its own transaction; a *sql.Tx is used as is.
func NewSQLitePlaylistStore(db store.DBTX, logger *slog.Logger) *SQLitePlaylistStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLitePlaylistStore{
		db:     db,
		logger: logger.With(slog.String("component", "playlist_store")),
	}
}

var _ store.PlaylistStore = (*SQLitePlaylistStore)(nil)

// Upsert implements store.PlaylistStore.Upsert
func (s *SQLitePlaylistStore) Upsert(
	ctx context.Context,
	playlist *domain.Playlist,
	tracks []domain.Track,
) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := playlist.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var id uuid.UUID
	err := s.inTx(ctx, func(ctx context.Context, tx store.DBTX) error {
		now := time.Now().UTC().UnixNano()

		var row *sql.Row
		if playlist.ExternalID == "" {
			row = tx.QueryRowContext(ctx, `
				INSERT INTO playlists (id, external_id, name, created_at, updated_at)
				VALUES (?, NULL, ?, ?, ?)
				RETURNING id`,
				uuid.NewString(), playlist.Name, now, now)
		} else {
			row = tx.QueryRowContext(ctx, `
				INSERT INTO playlists (id, external_id, name, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (external_id)
				DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
				RETURNING id`,
				uuid.NewString(), playlist.ExternalID, playlist.Name, now, now)
		}
		var raw string
		if err := row.Scan(&raw); err != nil {
			return MapError(err, "playlist", "upsert")
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: playlist id %q", domain.ErrInvalidID, raw)
		}
		id = parsed

		if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE playlist_id = ?`, raw); err != nil {
			return MapError(err, "track", "replace")
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tracks (id, playlist_id, title, artist, year, external_url, cover_url, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return MapError(err, "track", "replace")
		}
		defer func() { _ = stmt.Close() }()

		for i, t := range tracks {
			_, err := stmt.ExecContext(ctx,
				uuid.NewString(), raw, t.Title, t.Artist, t.Year, t.ExternalURL, nullString(t.CoverURL), i)
			if err != nil {
				return MapError(err, "track", "replace")
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to upsert playlist",
			slog.String("external_id", playlist.ExternalID),
			slog.Int("tracks", len(tracks)),
			slog.String("error", err.Error()))
		return uuid.Nil, err
	}

	log.Debug("playlist upserted",
		slog.String("playlist_id", id.String()),
		slog.Int("tracks", len(tracks)))
	return id, nil
}

// Get implements store.PlaylistStore.Get. Both reads share one transaction.
func (s *SQLitePlaylistStore) Get(ctx context.Context, id uuid.UUID) (*domain.Playlist, []domain.Track, error) {
	var (
		playlist *domain.Playlist
		tracks   []domain.Track
	)
	err := s.inTx(ctx, func(ctx context.Context, tx store.DBTX) error {
		p, err := scanPlaylist(tx.QueryRowContext(ctx,
			`SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id.String()))
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrPlaylistNotFound
		}
		if err != nil {
			return MapError(err, "playlist", "get")
		}

		t, err := listTracks(ctx, tx, id)
		if err != nil {
			return err
		}
		playlist, tracks = p, t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return playlist, tracks, nil
}

func listTracks(ctx context.Context, q store.DBTX, playlistID uuid.UUID) ([]domain.Track, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, title, artist, year, external_url, cover_url, position
		FROM tracks
		WHERE playlist_id = ?
		ORDER BY position`, playlistID.String())
	if err != nil {
		return nil, MapError(err, "track", "list")
	}
	defer func() { _ = rows.Close() }()

	tracks := []domain.Track{}
	for rows.Next() {
		var (
			t       domain.Track
			trackID string
			cover   sql.NullString
		)
		if err := rows.Scan(&trackID, &t.Title, &t.Artist, &t.Year, &t.ExternalURL, &cover, &t.Position); err != nil {
			return nil, MapError(err, "track", "list")
		}
		if t.ID, err = uuid.Parse(trackID); err != nil {
			return nil, fmt.Errorf("%w: track id %q", domain.ErrInvalidID, trackID)
		}
		t.PlaylistID = playlistID
		t.CoverURL = cover.String
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "track", "list")
	}
	return tracks, nil
}

// GetByExternalID implements store.PlaylistStore.GetByExternalID
func (s *SQLitePlaylistStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Playlist, error) {
	playlist, err := scanPlaylist(s.db.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE external_id = ?`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, MapError(err, "playlist", "get_by_external_id")
	}
	return playlist, nil
}

// List implements store.PlaylistStore.List
func (s *SQLitePlaylistStore) List(ctx context.Context) ([]*domain.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+playlistColumns+` FROM playlists ORDER BY created_at, rowid`)
	if err != nil {
		return nil, MapError(err, "playlist", "list")
	}
	defer func() { _ = rows.Close() }()

	playlists := []*domain.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, MapError(err, "playlist", "list")
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "playlist", "list")
	}
	return playlists, nil
}

// inTx runs fn inside a transaction. With a single pooled connection every
// statement in fn must go through tx, never s.db.
func (s *SQLitePlaylistStore) inTx(ctx context.Context, fn func(context.Context, store.DBTX) error) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return fn(ctx, s.db)
	}
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, tx)
	})
}

func scanPlaylist(row rowScanner) (*domain.Playlist, error) {
	var (
		p          domain.Playlist
		id         string
		externalID sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&id, &externalID, &p.Name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: playlist id %q", domain.ErrInvalidID, id)
	}
	p.ID = parsed
	p.ExternalID = externalID.String
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
