package testdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("HITSTER_TEST_DB_URL", "postgres://fallback")
	assert.Equal(t, "postgres://fallback", GetTestDatabaseURL())

	t.Setenv("DATABASE_URL", "postgres://primary")
	assert.Equal(t, "postgres://primary", GetTestDatabaseURL())
}

func TestOpenSQLite(t *testing.T) {
	t.Parallel()
	db := OpenSQLite(t)

	var tables int
	err := db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('jobs', 'playlists', 'tracks')`,
	).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 3, tables, "migrations should create every table")
}
