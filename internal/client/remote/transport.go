// Package remote provides the cloud transports the sync engine talks to:
// keybox-server over gRPC or HTTP, an S3 bucket, and an in-memory store.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/keybox/internal/s3x"
)

// Transport is a shared key/value blob store visible to every device of a
// vault.
type Transport interface {
	// Get returns the blob stored under key, or nil when there is none.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Synchronize asks the backend to settle pending writes.
	Synchronize(ctx context.Context) error
	// Watch calls fn for every remote change to one of keys. It blocks until
	// ctx is done or the subscription breaks.
	Watch(ctx context.Context, keys []string, fn func(key string)) error
	Close() error
}

type Kind string

const (
	KindNone Kind = "none"
	KindGRPC Kind = "grpc"
	KindHTTP Kind = "http"
	KindS3   Kind = "s3"
)

var (
	ErrNotConfigured = errors.New("no cloud transport configured")
	ErrUnknownKind   = errors.New("unknown transport")
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindNone, nil
	case KindNone, KindGRPC, KindHTTP, KindS3:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

type Options struct {
	Kind         Kind
	Address      string
	AccessToken  string
	S3           s3x.Config
	PollInterval time.Duration
}

// Open builds the transport described by o.
func Open(ctx context.Context, o Options) (Transport, error) {
	switch o.Kind {
	case KindNone, "":
		return Offline{}, nil
	case KindGRPC:
		return NewGRPC(o.Address, o.AccessToken)
	case KindHTTP:
		return NewHTTP(o.Address, o.AccessToken, nil), nil
	case KindS3:
		b, err := s3x.Open(ctx, o.S3)
		if err != nil {
			return nil, err
		}
		return NewS3(b, o.PollInterval), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, o.Kind)
	}
}

// Offline is the transport used when no cloud backend is configured.
type Offline struct{}

func (Offline) Get(context.Context, string) ([]byte, error) { return nil, ErrNotConfigured }
func (Offline) Set(context.Context, string, []byte) error { return ErrNotConfigured }
func (Offline) Synchronize(context.Context) error { return ErrNotConfigured }
func (Offline) Close() error { return nil }
func (Offline) Watch(context.Context, []string, func(string)) error {
	return ErrNotConfigured
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
