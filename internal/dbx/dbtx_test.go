package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSettings(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT)`)
	require.NoError(t, err)
	return db
}

func settingsCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&n))
	return n
}

func putSetting(ctx context.Context, tx DBTX, key, value string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db := openSettings(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := putSetting(ctx, tx, "pin_salt", "s"); err != nil {
			return err
		}
		return putSetting(ctx, tx, "pin_verifier", "v")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, settingsCount(t, db))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := openSettings(t)
	errStop := errors.New("stop")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, putSetting(ctx, tx, "pin_salt", "s"))
		return errStop
	})
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, 0, settingsCount(t, db))
}

func TestWithTx_RollbackOnConstraint(t *testing.T) {
	db := openSettings(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := putSetting(ctx, tx, "cloud_sync_enabled", "true"); err != nil {
			return err
		}
		return putSetting(ctx, tx, "cloud_sync_enabled", "false")
	})
	require.Error(t, err)
	assert.Equal(t, 0, settingsCount(t, db))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := openSettings(t)

	assert.PanicsWithValue(t, "boom", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, putSetting(ctx, tx, "pin_salt", "s"))
			panic("boom")
		})
	})
	assert.Equal(t, 0, settingsCount(t, db))
}

func TestWithTx_BeginFails(t *testing.T) {
	db := openSettings(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
