package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/hitster/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), store.ErrNotFound},
		{"unique", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "playlists_external_id_key"}, store.ErrDuplicate},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolationCode}), store.ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: foreignKeyViolationCode}, store.ErrInvalidEntity},
		{"check", &pgconn.PgError{Code: checkViolationCode}, store.ErrInvalidEntity},
		{"not null", &pgconn.PgError{Code: notNullViolationCode, ColumnName: "name"}, store.ErrInvalidEntity},
		{"other pg error", &pgconn.PgError{Code: "57P01"}, store.ErrStorage},
		{"connection error", errors.New("dial tcp: connection refused"), store.ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mapped := MapError(tt.err, "job", "claim")
			assert.ErrorIs(t, mapped, tt.target)
		})
	}

	assert.NoError(t, MapError(nil, "job", "get"))
	assert.False(t, store.IsStorageError(MapError(sql.ErrNoRows, "job", "get")),
		"a missing row is not an I/O failure")
}
