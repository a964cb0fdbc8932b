// Package grpc serves the keybox.v1.BlobStore service: authenticated
// Get/Set of encrypted collection blobs and a change stream per vault.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/rpc"
	"github.com/dmitrijs2005/keybox/internal/server/blobs"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address   string
	blobs     *blobs.Service
	logger    logging.Logger
	jwtSecret []byte
	shutdown  chan struct{}
}

func NewGRPCServer(a string, l logging.Logger, bs *blobs.Service, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		blobs:     bs,
		jwtSecret: []byte(secretKey),
		shutdown:  make(chan struct{}),
	}
}

// newServer creates the gRPC server with auth interceptors and the
// BlobStore service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)
	rpc.RegisterBlobStoreServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is cancelled,
// then ends open Watch streams and stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run over an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		close(s.shutdown)
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
