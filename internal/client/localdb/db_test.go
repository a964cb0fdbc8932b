package localdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpen_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "keybox")

	repos, err := Open(ctx, dir)
	require.NoError(t, err)
	defer repos.Close()

	require.NoError(t, repos.DB.PingContext(ctx))
	for _, table := range []string{"goose_db_version", "blobs", "metadata"} {
		require.True(t, tableExists(t, repos.DB, table), table)
	}
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "app.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	require.True(t, tableExists(t, db, "blobs"))
}

func TestInitDatabase_ReposShareDatabase(t *testing.T) {
	ctx := context.Background()
	repos, err := InitDatabase(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer repos.Close()

	require.NoError(t, repos.Blobs.Put(ctx, "k", []byte("v")))
	require.NoError(t, repos.Metadata.Set(ctx, "m", []byte("1")))

	v, err := repos.Blobs.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	m, err := repos.Metadata.Get(ctx, "m")
	require.NoError(t, err)
	require.Equal(t, []byte("1"), m)
}
