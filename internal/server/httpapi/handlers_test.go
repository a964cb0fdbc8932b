package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/keybox/internal/client/remote"
	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/server/auth"
	"github.com/dmitrijs2005/keybox/internal/server/blobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secret"

func newTestHandler() *Handler {
	l := logging.NewDiscardLogger()
	h := NewHandler(blobs.NewService(blobs.NewMemoryRepository(), blobs.NewBroker(), l), l, testSecret)
	h.pollTimeout = 100 * time.Millisecond
	return h
}

func token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := auth.GenerateToken(subject, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return tok
}

func startServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h.NewRouter())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, tok string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHTTP_RoundTripWithClient(t *testing.T) {
	ctx := context.Background()
	srv := startServer(t, newTestHandler())
	c := remote.NewHTTP(srv.URL, token(t, "vault"), nil)

	v, err := c.Get(ctx, common.TokensKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, common.TokensKey, []byte("cipher")))
	v, err = c.Get(ctx, common.TokensKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("cipher"), v)

	require.NoError(t, c.Synchronize(ctx))

	other := remote.NewHTTP(srv.URL, token(t, "other"), nil)
	v, err = other.Get(ctx, common.TokensKey)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestHTTP_ErrorsMapToClientErrors(t *testing.T) {
	ctx := context.Background()
	srv := startServer(t, newTestHandler())
	c := remote.NewHTTP(srv.URL, token(t, "vault"), nil)

	assert.ErrorIs(t, c.Set(ctx, "bad key", []byte("x")), common.ErrorInvalidKey)
	assert.ErrorIs(t, c.Set(ctx, common.TokensKey, make([]byte, blobs.MaxBlobSize+1)), common.ErrorBlobTooLarge)

	anon := remote.NewHTTP(srv.URL, "", nil)
	_, err := anon.Get(ctx, common.TokensKey)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	expired, err := auth.GenerateToken("vault", []byte(testSecret), -time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, remote.NewHTTP(srv.URL, expired, nil).Synchronize(ctx), common.ErrorUnauthorized)
}

func TestHTTP_RawStatuses(t *testing.T) {
	srv := startServer(t, newTestHandler())
	tok := token(t, "vault")

	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodGet, srv.URL+"/v1/ping", "", nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodGet, srv.URL+"/v1/ping", tok, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/v1/blobs/missing", tok, nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodPut, srv.URL+"/v1/blobs/k", tok, []byte("v")).StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, http.MethodDelete, srv.URL+"/v1/blobs/k", tok, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/v1/watch?after=soon", tok, nil).StatusCode)
}

func TestHTTP_WatchFirstCallReturnsSeq(t *testing.T) {
	srv := startServer(t, newTestHandler())
	tok := token(t, "vault")

	do(t, http.MethodPut, srv.URL+"/v1/blobs/k", tok, []byte("v"))

	resp := do(t, http.MethodGet, srv.URL+"/v1/watch", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var w watchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&w))
	assert.Equal(t, uint64(1), w.Seq)
	assert.Empty(t, w.Keys)
}

func TestHTTP_WatchTimesOutWithSameSeq(t *testing.T) {
	srv := startServer(t, newTestHandler())
	tok := token(t, "vault")

	start := time.Now()
	resp := do(t, http.MethodGet, srv.URL+"/v1/watch?after=0", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	var w watchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&w))
	assert.Equal(t, uint64(0), w.Seq)
	assert.Empty(t, w.Keys)
}

func TestHTTP_WatchWithClient(t *testing.T) {
	srv := startServer(t, newTestHandler())
	watcher := remote.NewHTTP(srv.URL, token(t, "vault"), nil)
	writer := remote.NewHTTP(srv.URL, token(t, "vault"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 16)
	go func() {
		_ = watcher.Watch(ctx, []string{common.AccountsKey}, func(k string) { got <- k })
	}()

	deadline := time.After(3 * time.Second)
	for {
		require.NoError(t, writer.Set(context.Background(), common.TokensKey, []byte("ignored")))
		require.NoError(t, writer.Set(context.Background(), common.AccountsKey, []byte("v")))
		select {
		case k := <-got:
			assert.Equal(t, common.AccountsKey, k)
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("watcher saw no change")
		}
	}
}

func TestServer_StopsOnContextCancel(t *testing.T) {
	h := newTestHandler()
	h.pollTimeout = time.Minute
	s := NewServer("127.0.0.1:0", h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ReturnsErrorOnBadAddress(t *testing.T) {
	s := NewServer("127.0.0.1:99999", newTestHandler())
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "99999"))
}
