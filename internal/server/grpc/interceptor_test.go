package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer() *GRPCServer {
	return NewGRPCServer("", nopLogger{}, newTestService(), testSecret)
}

func withToken(tok string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, tok))
}

var getInfo = &grpc.UnaryServerInfo{FullMethod: "/keybox.v1.BlobStore/Get"}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer()

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, getInfo, h)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestInterceptor_InvalidAndExpiredToken(t *testing.T) {
	s := newTestServer()
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(withToken("garbage"), nil, getInfo, h)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	expired, err := auth.GenerateToken("vault", []byte(testSecret), -time.Second)
	require.NoError(t, err)
	_, err = s.accessTokenInterceptor(withToken(expired), nil, getInfo, h)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), common.ErrTokenExpired.Error())
}

func TestInterceptor_ValidTokenSetsNamespace(t *testing.T) {
	s := newTestServer()

	var got string
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		ns, err := namespaceFrom(ctx)
		require.NoError(t, err)
		got = ns
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(withToken(token(t, "alice")), nil, getInfo, h)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, "alice", got)
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f fakeStream) Context() context.Context { return f.ctx }

func TestStreamInterceptor(t *testing.T) {
	s := newTestServer()
	info := &grpc.StreamServerInfo{FullMethod: "/keybox.v1.BlobStore/Watch"}

	err := s.accessTokenStreamInterceptor(nil, fakeStream{ctx: context.Background()}, info,
		func(interface{}, grpc.ServerStream) error {
			t.Fatal("handler should not be called")
			return nil
		})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	var got string
	err = s.accessTokenStreamInterceptor(nil, fakeStream{ctx: withToken(token(t, "bob"))}, info,
		func(_ interface{}, ss grpc.ServerStream) error {
			got, _ = namespaceFrom(ss.Context())
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "bob", got)
}

func TestNamespaceFrom_Missing(t *testing.T) {
	_, err := namespaceFrom(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
