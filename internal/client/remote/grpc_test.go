package remote

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeBlobServer struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	tokens     []string
	watchKeys  []string
	subscribed chan struct{}
	events     chan string
	pingErr    error
}

func newFakeBlobServer() *fakeBlobServer {
	return &fakeBlobServer{
		blobs:      map[string][]byte{},
		subscribed: make(chan struct{}, 1),
		events:     make(chan string, 4),
	}
}

func (f *fakeBlobServer) token(ctx context.Context) {
	md, _ := metadata.FromIncomingContext(ctx)
	f.mu.Lock()
	f.tokens = append(f.tokens, md.Get(common.AccessTokenHeaderName)...)
	f.mu.Unlock()
}

func (f *fakeBlobServer) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	f.token(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.blobs[in.GetValue()]
	if !ok {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return wrapperspb.Bytes(v), nil
}

func (f *fakeBlobServer) Set(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	f.token(ctx)
	md, _ := metadata.FromIncomingContext(ctx)
	keys := md.Get(common.BlobKeyHeaderName)
	if len(keys) != 1 {
		return nil, status.Error(codes.InvalidArgument, "missing key")
	}
	f.mu.Lock()
	f.blobs[keys[0]] = in.GetValue()
	f.mu.Unlock()
	return &emptypb.Empty{}, nil
}

func (f *fakeBlobServer) Ping(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	f.token(ctx)
	if f.pingErr != nil {
		return nil, f.pingErr
	}
	return &emptypb.Empty{}, nil
}

func (f *fakeBlobServer) Watch(_ *emptypb.Empty, stream rpc.BlobStoreWatchServer) error {
	f.token(stream.Context())
	md, _ := metadata.FromIncomingContext(stream.Context())
	f.mu.Lock()
	f.watchKeys = md.Get(common.BlobKeyHeaderName)
	f.mu.Unlock()
	f.subscribed <- struct{}{}

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case k := <-f.events:
			if err := stream.Send(wrapperspb.String(k)); err != nil {
				return err
			}
		}
	}
}

func startBlobServer(t *testing.T, impl rpc.BlobStoreServer) *GRPC {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	rpc.RegisterBlobStoreServer(srv, impl)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	g, err := NewGRPC("passthrough:///bufnet", "secret-token",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGRPC_GetSet(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBlobServer()
	g := startBlobServer(t, fake)

	v, err := g.Get(ctx, common.TokensKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, g.Set(ctx, common.TokensKey, []byte("cipher")))

	v, err = g.Get(ctx, common.TokensKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("cipher"), v)

	require.NoError(t, g.Synchronize(ctx))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.tokens, 4)
	for _, tok := range fake.tokens {
		assert.Equal(t, "secret-token", tok)
	}
}

func TestGRPC_MapsErrors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBlobServer()
	g := startBlobServer(t, fake)

	fake.pingErr = status.Error(codes.Unauthenticated, "bad token")
	require.ErrorIs(t, g.Synchronize(ctx), common.ErrorUnauthorized)

	fake.pingErr = status.Error(codes.Unavailable, "down")
	require.ErrorIs(t, g.Synchronize(ctx), common.ErrUnavailable)

	fake.pingErr = status.Error(codes.ResourceExhausted, "too big")
	require.ErrorIs(t, g.Synchronize(ctx), common.ErrorBlobTooLarge)

	fake.pingErr = status.Error(codes.Internal, "oops")
	err := g.Synchronize(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc error")
}

func TestGRPC_Watch(t *testing.T) {
	fake := newFakeBlobServer()
	g := startBlobServer(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- g.Watch(ctx, []string{common.TokensKey, common.AccountsKey}, func(k string) { got <- k })
	}()

	select {
	case <-fake.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("watch never subscribed")
	}

	fake.mu.Lock()
	assert.Equal(t, []string{common.TokensKey, common.AccountsKey}, fake.watchKeys)
	fake.mu.Unlock()

	fake.events <- "unrelated"
	fake.events <- common.AccountsKey

	select {
	case k := <-got:
		assert.Equal(t, common.AccountsKey, k)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Empty(t, got)
}
