package blobs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/logging"
)

const (
	// MaxBlobSize bounds one stored document.
	MaxBlobSize = 1 << 20
	// MaxNameLength bounds namespaces and keys.
	MaxNameLength = 128
)

// ValidateName checks a namespace or key: 1 to MaxNameLength characters
// from [A-Za-z0-9._-].
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return fmt.Errorf("%w: length must be 1..%d", common.ErrorInvalidKey, MaxNameLength)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: %q contains %q", common.ErrorInvalidKey, name, r)
		}
	}
	return nil
}

// Service validates requests, stores blobs in a Repository and publishes
// writes to a Broker.
type Service struct {
	repo   Repository
	broker *Broker
	logger logging.Logger
}

func NewService(repo Repository, broker *Broker, logger logging.Logger) *Service {
	return &Service{repo: repo, broker: broker, logger: logger.With("module", "blobs")}
}

func validate(namespace, key string) error {
	if err := ValidateName(namespace); err != nil {
		return fmt.Errorf("namespace: %w", err)
	}
	return ValidateName(key)
}

// Get returns the value of key, or common.ErrorNotFound.
func (s *Service) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := validate(namespace, key); err != nil {
		return nil, err
	}
	v, err := s.repo.Get(ctx, namespace, key)
	if err != nil {
		s.logger.Error(ctx, "get blob failed", "namespace", namespace, "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if v == nil {
		return nil, common.ErrorNotFound
	}
	return v, nil
}

// Put stores value under key and notifies watchers of namespace.
func (s *Service) Put(ctx context.Context, namespace, key string, value []byte) error {
	if err := validate(namespace, key); err != nil {
		return err
	}
	if len(value) > MaxBlobSize {
		return fmt.Errorf("%w: %d bytes, limit %d", common.ErrorBlobTooLarge, len(value), MaxBlobSize)
	}
	if err := s.repo.Put(ctx, namespace, key, value); err != nil {
		s.logger.Error(ctx, "put blob failed", "namespace", namespace, "key", key, "error", err)
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	seq := s.broker.Publish(namespace, key)
	s.logger.Debug(ctx, "blob stored", "namespace", namespace, "key", key, "size", len(value), "seq", seq)
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return nil
}

// Seq returns the current change sequence.
func (s *Service) Seq() uint64 {
	return s.broker.Seq()
}

// Watch waits for writes to namespace newer than after; see Broker.Wait.
func (s *Service) Watch(ctx context.Context, namespace string, after uint64) ([]string, uint64, error) {
	if err := ValidateName(namespace); err != nil {
		return nil, after, fmt.Errorf("namespace: %w", err)
	}
	return s.broker.Wait(ctx, namespace, after)
}
