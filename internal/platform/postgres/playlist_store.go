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

const playlistColumns = `id, external_id, name, created_at, updated_at`

// PostgresPlaylistStore implements the store.PlaylistStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPlaylistStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPlaylistStore creates a new PostgreSQL implementation of the PlaylistStore interface.
// db may be a *sql.DB, in which case Upsert opens its own transaction, or a
// *sql.Tx owned by the caller.
func NewPostgresPlaylistStore(db store.DBTX, logger *slog.Logger) *PostgresPlaylistStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPlaylistStore{
		db:     db,
		logger: logger.With(slog.String("component", "playlist_store")),
	}
}

// Ensure PostgresPlaylistStore implements store.PlaylistStore interface
var _ store.PlaylistStore = (*PostgresPlaylistStore)(nil)

// Upsert implements store.PlaylistStore.Upsert
func (s *PostgresPlaylistStore) Upsert(
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
		now := time.Now().UTC()

		var row *sql.Row
		if playlist.ExternalID == "" {
			row = tx.QueryRowContext(ctx, `
				INSERT INTO playlists (id, external_id, name, created_at, updated_at)
				VALUES ($1, NULL, $2, $3, $3)
				RETURNING id`,
				uuid.New(), playlist.Name, now)
		} else {
			row = tx.QueryRowContext(ctx, `
				INSERT INTO playlists (id, external_id, name, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $4)
				ON CONFLICT (external_id)
				DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
				RETURNING id`,
				uuid.New(), playlist.ExternalID, playlist.Name, now)
		}
		if err := row.Scan(&id); err != nil {
			return MapError(err, "playlist", "upsert")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE playlist_id = $1`, id); err != nil {
			return MapError(err, "track", "replace")
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tracks (id, playlist_id, title, artist, year, external_url, cover_url, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
		if err != nil {
			return MapError(err, "track", "replace")
		}
		defer func() { _ = stmt.Close() }()

		for i, t := range tracks {
			_, err := stmt.ExecContext(ctx,
				uuid.New(), id, t.Title, t.Artist, t.Year, t.ExternalURL, nullString(t.CoverURL), i)
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

// Get implements store.PlaylistStore.Get. The playlist row and its tracks are
// read from one REPEATABLE READ snapshot so a concurrent Upsert cannot pair a
// header with another version's tracks.
func (s *PostgresPlaylistStore) Get(ctx context.Context, id uuid.UUID) (*domain.Playlist, []domain.Track, error) {
	var (
		playlist *domain.Playlist
		tracks   []domain.Track
	)
	err := s.inTxWithOptions(ctx, store.ReadSnapshot, func(ctx context.Context, tx store.DBTX) error {
		query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = $1`
		p, err := scanPlaylist(tx.QueryRowContext(ctx, query, id))
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
		SELECT id, playlist_id, title, artist, year, external_url, cover_url, position
		FROM tracks
		WHERE playlist_id = $1
		ORDER BY position`, playlistID)
	if err != nil {
		return nil, MapError(err, "track", "list")
	}
	defer func() { _ = rows.Close() }()

	tracks := []domain.Track{}
	for rows.Next() {
		var (
			t     domain.Track
			cover sql.NullString
		)
		if err := rows.Scan(
			&t.ID, &t.PlaylistID, &t.Title, &t.Artist, &t.Year, &t.ExternalURL, &cover, &t.Position,
		); err != nil {
			return nil, MapError(err, "track", "list")
		}
		t.CoverURL = cover.String
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "track", "list")
	}
	return tracks, nil
}

// GetByExternalID implements store.PlaylistStore.GetByExternalID
func (s *PostgresPlaylistStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE external_id = $1`
	playlist, err := scanPlaylist(s.db.QueryRowContext(ctx, query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, MapError(err, "playlist", "get_by_external_id")
	}
	return playlist, nil
}

// List implements store.PlaylistStore.List
func (s *PostgresPlaylistStore) List(ctx context.Context) ([]*domain.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+playlistColumns+` FROM playlists ORDER BY created_at, id`)
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

// inTx runs fn in a new transaction when the store owns a *sql.DB, or directly
// on the caller's transaction otherwise.
func (s *PostgresPlaylistStore) inTx(ctx context.Context, fn func(context.Context, store.DBTX) error) error {
	return s.inTxWithOptions(ctx, nil, fn)
}

func (s *PostgresPlaylistStore) inTxWithOptions(
	ctx context.Context,
	opts *sql.TxOptions,
	fn func(context.Context, store.DBTX) error,
) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return fn(ctx, s.db)
	}
	return store.RunInTransactionWithOptions(ctx, db, opts, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, tx)
	})
}

func scanPlaylist(row rowScanner) (*domain.Playlist, error) {
	var (
		p          domain.Playlist
		externalID sql.NullString
	)
	if err := row.Scan(&p.ID, &externalID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ExternalID = externalID.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
