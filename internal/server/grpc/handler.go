package grpc

import (
	"context"
	"errors"
	"slices"

	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var _ rpc.BlobStoreServer = (*GRPCServer)(nil)

func mapError(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorInvalidKey):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorBlobTooLarge):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, common.ErrUnavailable):
		return status.Error(codes.Unavailable, "storage unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func blobKeys(ctx context.Context) []string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}
	return md.Get(common.BlobKeyHeaderName)
}

func (s *GRPCServer) Get(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	ns, err := namespaceFrom(ctx)
	if err != nil {
		return nil, err
	}

	v, err := s.blobs.Get(ctx, ns, req.GetValue())
	if err != nil {
		return nil, mapError(err)
	}
	return wrapperspb.Bytes(v), nil
}

// Set stores req under the key named by the blob-key metadata.
func (s *GRPCServer) Set(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	ns, err := namespaceFrom(ctx)
	if err != nil {
		return nil, err
	}
	keys := blobKeys(ctx)
	if len(keys) != 1 {
		return nil, status.Errorf(codes.InvalidArgument, "expected one %s header, got %d", common.BlobKeyHeaderName, len(keys))
	}

	if err := s.blobs.Put(ctx, ns, keys[0], req.GetValue()); err != nil {
		return nil, mapError(err)
	}
	s.logger.Info(ctx, "blob stored", "namespace", ns, "key", keys[0], "size", len(req.GetValue()))
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.blobs.Ping(ctx); err != nil {
		s.logger.Error(ctx, "ping failed", "error", err)
		return nil, mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// Watch streams the key of every write to the caller's namespace made
// after the stream opened. Repeated blob-key metadata narrows the stream to
// those keys.
func (s *GRPCServer) Watch(_ *emptypb.Empty, stream rpc.BlobStoreWatchServer) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	ns, err := namespaceFrom(ctx)
	if err != nil {
		return err
	}
	want := blobKeys(ctx)

	go func() {
		select {
		case <-s.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Debug(ctx, "watch opened", "namespace", ns, "keys", want)
	after := s.blobs.Seq()
	for {
		changed, seq, err := s.blobs.Watch(ctx, ns, after)
		if err != nil {
			select {
			case <-s.shutdown:
				return status.Error(codes.Unavailable, "server shutting down")
			default:
			}
			if stream.Context().Err() != nil {
				return nil
			}
			return mapError(err)
		}
		after = seq

		for _, k := range changed {
			if len(want) > 0 && !slices.Contains(want, k) {
				continue
			}
			if err := stream.Send(wrapperspb.String(k)); err != nil {
				return err
			}
		}
	}
}
