package remote

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPC talks to keybox-server's BlobStore service.
type GRPC struct {
	endpointURL string
	accessToken string
	conn        *grpc.ClientConn
	client      rpc.BlobStoreClient
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func withBlobKeys(ctx context.Context, keys ...string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.BlobKeyHeaderName, keys...)

	return metadata.NewOutgoingContext(ctx, md)
}

func (g *GRPC) unaryInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, g.accessToken), method, req, reply, cc, opts...)
}

func (g *GRPC) streamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, g.accessToken), desc, cc, method, opts...)
}

// NewGRPC creates a client for endpointURL. Extra dial options are appended
// to the defaults (insecure transport and the access token interceptors).
func NewGRPC(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPC, error) {
	g := &GRPC{endpointURL: endpointURL, accessToken: accessToken}

	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(g.unaryInterceptor),
		grpc.WithStreamInterceptor(g.streamInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dial...)
	if err != nil {
		return nil, err
	}
	g.conn = conn
	g.client = rpc.NewBlobStoreClient(conn)
	return g, nil
}

func (g *GRPC) mapError(err error) error {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return common.ErrorUnauthorized
		case codes.Unavailable, codes.DeadlineExceeded:
			return common.ErrUnavailable
		case codes.InvalidArgument:
			return fmt.Errorf("%w: %s", common.ErrorInvalidKey, st.Message())
		case codes.ResourceExhausted:
			return common.ErrorBlobTooLarge
		}
	}
	return fmt.Errorf("rpc error: %w", err)
}

func (g *GRPC) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := g.client.Get(ctx, wrapperspb.String(key))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, g.mapError(err)
	}
	return resp.GetValue(), nil
}

func (g *GRPC) Set(ctx context.Context, key string, value []byte) error {
	_, err := g.client.Set(withBlobKeys(ctx, key), wrapperspb.Bytes(value))
	if err != nil {
		return g.mapError(err)
	}
	return nil
}

func (g *GRPC) Synchronize(ctx context.Context) error {
	if _, err := g.client.Ping(ctx, &emptypb.Empty{}); err != nil {
		return g.mapError(err)
	}
	return nil
}

func (g *GRPC) Watch(ctx context.Context, keys []string, fn func(key string)) error {
	stream, err := g.client.Watch(withBlobKeys(ctx, keys...), &emptypb.Empty{})
	if err != nil {
		return g.mapError(err)
	}

	for {
		msg, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return g.mapError(err)
		}
		if contains(keys, msg.GetValue()) {
			fn(msg.GetValue())
		}
	}
}

func (g *GRPC) Close() error {
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}
