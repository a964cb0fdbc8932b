package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/keybox/internal/common"
)

// WatchResponse is the body of GET /v1/watch.
type WatchResponse struct {
	Seq  uint64   `json:"seq"`
	Keys []string `json:"keys"`
}

// HTTP talks to keybox-server's REST gateway.
type HTTP struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewHTTP returns a client for baseURL. A nil client means
// http.DefaultClient.
func NewHTTP(baseURL, accessToken string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &HTTP{baseURL: strings.TrimRight(baseURL, "/"), accessToken: accessToken, client: client}
}

func (h *HTTP) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if h.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.accessToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return common.ErrorUnauthorized
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return common.ErrorBlobTooLarge
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrorInvalidKey, strings.TrimSpace(string(msg)))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, resp.Status)
	default:
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
}

func (h *HTTP) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := h.do(ctx, http.MethodGet, "/v1/blobs/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, statusError(resp)
	}
}

func (h *HTTP) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	resp, err := h.do(ctx, http.MethodPut, "/v1/blobs/"+url.PathEscape(key), value)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func (h *HTTP) Synchronize(ctx context.Context) error {
	resp, err := h.do(ctx, http.MethodGet, "/v1/ping", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	return nil
}

func (h *HTTP) poll(ctx context.Context, after *uint64) (WatchResponse, error) {
	path := "/v1/watch"
	if after != nil {
		path += "?after=" + strconv.FormatUint(*after, 10)
	}

	resp, err := h.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return WatchResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WatchResponse{}, statusError(resp)
	}

	var w WatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return WatchResponse{}, fmt.Errorf("decode watch response: %w", err)
	}
	return w, nil
}

// Watch long-polls GET /v1/watch. The first request only learns the current
// sequence number so changes made before Watch started are not reported.
func (h *HTTP) Watch(ctx context.Context, keys []string, fn func(key string)) error {
	w, err := h.poll(ctx, nil)
	if err != nil {
		return err
	}
	seq := w.Seq

	for {
		w, err := h.poll(ctx, &seq)
		if err != nil {
			return err
		}
		seq = w.Seq
		for _, k := range w.Keys {
			if contains(keys, k) {
				fn(k)
			}
		}
	}
}

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
