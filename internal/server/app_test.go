package server

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/s3x"
	"github.com/dmitrijs2005/keybox/internal/server/blobs"
	"github.com/dmitrijs2005/keybox/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func testConfig(t *testing.T) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.Storage = config.StorageMemory
	c.EndpointAddrGRPC = freeAddr(t)
	c.EndpointAddrHTTP = freeAddr(t)
	return c
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, closer, err := openRepository(ctx, testConfig(t))
		require.NoError(t, err)
		assert.IsType(t, &blobs.MemoryRepository{}, repo)
		assert.Nil(t, closer)
	})

	t.Run("postgres", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		orig := openPostgres
		t.Cleanup(func() { openPostgres = orig })
		var gotDSN string
		openPostgres = func(_ context.Context, dsn string) (*sql.DB, error) {
			gotDSN = dsn
			return db, nil
		}

		c := testConfig(t)
		c.Storage = config.StoragePostgres
		c.DatabaseDSN = "postgres://db/keybox"
		repo, closer, err := openRepository(ctx, c)
		require.NoError(t, err)
		assert.IsType(t, &blobs.PostgresRepository{}, repo)
		assert.Equal(t, db, closer)
		assert.Equal(t, "postgres://db/keybox", gotDSN)
		_ = closer.Close()
	})

	t.Run("postgres failure", func(t *testing.T) {
		orig := openPostgres
		t.Cleanup(func() { openPostgres = orig })
		openPostgres = func(context.Context, string) (*sql.DB, error) { return nil, errors.New("refused") }

		c := testConfig(t)
		c.Storage = config.StoragePostgres
		_, _, err := openRepository(ctx, c)
		assert.ErrorContains(t, err, "db init error")
	})

	t.Run("s3", func(t *testing.T) {
		orig := openBucket
		t.Cleanup(func() { openBucket = orig })
		var got s3x.Config
		openBucket = func(_ context.Context, c s3x.Config) (*s3x.Bucket, error) {
			got = c
			return s3x.NewBucket(nil, c.Bucket, c.Prefix), nil
		}

		c := testConfig(t)
		c.Storage = config.StorageS3
		repo, _, err := openRepository(ctx, c)
		require.NoError(t, err)
		assert.IsType(t, &blobs.S3Repository{}, repo)
		assert.Equal(t, "keybox", got.Bucket)
	})

	t.Run("unknown", func(t *testing.T) {
		c := testConfig(t)
		c.Storage = "floppy"
		_, _, err := openRepository(ctx, c)
		assert.ErrorContains(t, err, "unknown storage")
	})
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	app, err := newApp(context.Background(), testConfig(t), logging.NewDiscardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("app exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_RunStopsWhenServerFails(t *testing.T) {
	c := testConfig(t)
	c.EndpointAddrGRPC = "127.0.0.1:99999"
	app, err := newApp(context.Background(), c, logging.NewDiscardLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("app kept running after the gRPC server failed")
	}
}
