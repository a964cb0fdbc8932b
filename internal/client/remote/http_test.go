package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	auth    []string
	polls   []string
	changes chan WatchResponse
}

func (f *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/v1/ping":
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/v1/watch":
		f.mu.Lock()
		f.polls = append(f.polls, r.URL.Query().Get("after"))
		f.mu.Unlock()
		if r.URL.Query().Get("after") == "" {
			_ = json.NewEncoder(w).Encode(WatchResponse{Seq: 7})
			return
		}
		select {
		case resp := <-f.changes:
			_ = json.NewEncoder(w).Encode(resp)
		case <-r.Context().Done():
		}
	case strings.HasPrefix(r.URL.Path, "/v1/blobs/"):
		key := strings.TrimPrefix(r.URL.Path, "/v1/blobs/")
		if key == "forbidden" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			v, ok := f.blobs[key]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(v)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			f.blobs[key] = body
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		http.NotFound(w, r)
	}
}

func newFakeGateway(t *testing.T) (*fakeGateway, *HTTP) {
	t.Helper()
	f := &fakeGateway{blobs: map[string][]byte{}, changes: make(chan WatchResponse, 4)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, NewHTTP(srv.URL+"/", "tok", srv.Client())
}

func TestHTTP_GetSetPing(t *testing.T) {
	ctx := context.Background()
	f, h := newFakeGateway(t)

	v, err := h.Get(ctx, common.TokensKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, h.Set(ctx, common.TokensKey, []byte("cipher")))
	v, err = h.Get(ctx, common.TokensKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("cipher"), v)

	require.NoError(t, h.Synchronize(ctx))

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.auth {
		assert.Equal(t, "Bearer tok", a)
	}
}

func TestHTTP_Unauthorized(t *testing.T) {
	_, h := newFakeGateway(t)

	_, err := h.Get(context.Background(), "forbidden")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestHTTP_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h := NewHTTP(url, "", nil)
	_, err := h.Get(context.Background(), "k")
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestHTTP_Watch(t *testing.T) {
	f, h := newFakeGateway(t)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- h.Watch(ctx, []string{common.TokensKey}, func(k string) { got <- k })
	}()

	f.changes <- WatchResponse{Seq: 9, Keys: []string{common.AccountsKey, common.TokensKey}}

	select {
	case k := <-got:
		assert.Equal(t, common.TokensKey, k)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.polls) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"", "7", "9"}, f.polls[:3])
}
