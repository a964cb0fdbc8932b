// Package server initializes and runs keybox-server: it opens the
// configured blob storage, serves the gRPC BlobStore API and the REST
// gateway over it, and shuts both down on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/keybox/internal/buildinfo"
	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/s3x"
	"github.com/dmitrijs2005/keybox/internal/server/blobs"
	"github.com/dmitrijs2005/keybox/internal/server/config"
	"github.com/dmitrijs2005/keybox/internal/server/httpapi"

	gs "github.com/dmitrijs2005/keybox/internal/server/grpc"
)

// package-level seams for tests
var (
	openPostgres = blobs.OpenPostgres
	openBucket   = s3x.Open
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	blobs   *blobs.Service
	closers []io.Closer
}

// openRepository builds the blob repository selected by c.Storage.
func openRepository(ctx context.Context, c *config.Config) (blobs.Repository, io.Closer, error) {
	switch c.Storage {
	case config.StorageMemory:
		return blobs.NewMemoryRepository(), nil, nil
	case config.StoragePostgres:
		db, err := openPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		return blobs.NewPostgresRepository(db), db, nil
	case config.StorageS3:
		bucket, err := openBucket(ctx, c.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("s3 init error: %w", err)
		}
		return blobs.NewS3Repository(bucket), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage %q", c.Storage)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.NewJSONLogger(c.LogLevel))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	repo, closer, err := openRepository(ctx, c)
	if err != nil {
		return nil, err
	}

	app := &App{
		config: c,
		logger: logger,
		blobs:  blobs.NewService(repo, blobs.NewBroker(), logger),
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.blobs, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.blobs, app.logger, app.config.SecretKey)
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, h)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails,
// then releases storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting keybox-server", "build", buildinfo.String(), "storage", app.config.Storage)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrHTTP != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startHTTPServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	var errs []error
	for _, c := range app.closers {
		errs = append(errs, c.Close())
	}
	app.logger.Info(context.Background(), "keybox-server stopped")
	return errors.Join(errs...)
}
