// Package store persists a vault collection as one encrypted blob.
//
// A Store holds a flat list of records under a fixed logical key. Every Save
// writes the whole collection: JSON, then AES-GCM through the Cipher, then the
// blob repository. Load reverses that and falls back to reading a plaintext
// JSON blob left by older versions, rewriting it encrypted on the spot. A
// blob that is neither yields an empty collection; Load never fails.
//
// All read-modify-write sequences hold the store's mutex, so concurrent
// mutations from the CLI and the sync engine never interleave.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmitrijs2005/keybox/internal/client/repositories/blobs"
	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/models"
)

// Cipher is the encryption service a Store seals its blob with.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(blob []byte) ([]byte, bool)
}

// Notifier is told after every successful Save. Implementations must return
// promptly; the call is made outside the store lock.
type Notifier interface {
	CollectionSaved(key string)
}

type Option func(*options)

type options struct {
	notifier Notifier
}

// WithNotifier registers n to be told about saves.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

type Store[T models.Record] struct {
	key      string
	repo     blobs.Repository
	cipher   Cipher
	logger   logging.Logger
	notifier Notifier

	mu sync.Mutex
}

func New[T models.Record](key string, repo blobs.Repository, c Cipher, l logging.Logger, opts ...Option) *Store[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		key:      key,
		repo:     repo,
		cipher:   c,
		logger:   l.With("module", "store", "collection", key),
		notifier: o.notifier,
	}
}

// SetNotifier replaces the save notifier. It exists for wiring cycles where
// the notifier is built after the store.
func (s *Store[T]) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

func (s *Store[T]) Key() string {
	return s.key
}

// Load returns the current collection.
func (s *Store[T]) Load(ctx context.Context) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Save replaces the whole collection.
func (s *Store[T]) Save(ctx context.Context, items []T) error {
	s.mu.Lock()
	err := s.saveLocked(ctx, items)
	n := s.notifier
	s.mu.Unlock()

	if err == nil && n != nil {
		n.CollectionSaved(s.key)
	}
	return err
}

// Mutate runs fn over the current collection and saves the result when fn
// reports a change. The whole sequence holds the store lock.
func (s *Store[T]) Mutate(ctx context.Context, fn func([]T) ([]T, bool)) error {
	s.mu.Lock()
	items, changed := fn(s.loadLocked(ctx))
	if !changed {
		s.mu.Unlock()
		return nil
	}
	err := s.saveLocked(ctx, items)
	n := s.notifier
	s.mu.Unlock()

	if err == nil && n != nil {
		n.CollectionSaved(s.key)
	}
	return err
}

func (s *Store[T]) Add(ctx context.Context, item T) error {
	return s.Mutate(ctx, func(items []T) ([]T, bool) {
		return append(items, item), true
	})
}

// Update replaces the record with item's ID and returns the previous value.
// ok is false, and nothing is written, when no such record exists.
func (s *Store[T]) Update(ctx context.Context, item T) (prev T, ok bool, err error) {
	err = s.Mutate(ctx, func(items []T) ([]T, bool) {
		i := models.IndexOf(items, item.RecordID())
		if i < 0 {
			return items, false
		}
		prev, ok = items[i], true
		items[i] = item
		return items, true
	})
	return prev, ok, err
}

// Delete removes the record with id and returns it.
func (s *Store[T]) Delete(ctx context.Context, id string) (removed T, ok bool, err error) {
	err = s.Mutate(ctx, func(items []T) ([]T, bool) {
		i := models.IndexOf(items, id)
		if i < 0 {
			return items, false
		}
		removed, ok = items[i], true
		return append(items[:i], items[i+1:]...), true
	})
	return removed, ok, err
}

// Upsert overwrites the record with item's ID, or appends item when absent.
// replaced reports which of the two happened.
func (s *Store[T]) Upsert(ctx context.Context, item T) (replaced bool, err error) {
	err = s.Mutate(ctx, func(items []T) ([]T, bool) {
		if i := models.IndexOf(items, item.RecordID()); i >= 0 {
			items[i] = item
			replaced = true
			return items, true
		}
		return append(items, item), true
	})
	return replaced, err
}

func (s *Store[T]) Get(ctx context.Context, id string) (T, bool) {
	items := s.Load(ctx)
	if i := models.IndexOf(items, id); i >= 0 {
		return items[i], true
	}
	var zero T
	return zero, false
}

// Clear saves an empty collection.
func (s *Store[T]) Clear(ctx context.Context) error {
	return s.Save(ctx, []T{})
}

func (s *Store[T]) loadLocked(ctx context.Context) []T {
	blob, err := s.repo.Get(ctx, s.key)
	if err != nil {
		s.logger.Error(ctx, "failed to read collection", "error", err)
		return []T{}
	}
	if len(blob) == 0 {
		return []T{}
	}

	items, encrypted, ok := s.decode(blob)
	if !ok {
		s.logger.Warn(ctx, "collection blob is unreadable, starting empty", "size", len(blob))
		return []T{}
	}

	if !encrypted {
		s.logger.Info(ctx, "upgrading plaintext collection to encrypted form", "records", len(items))
		if err := s.saveLocked(ctx, items); err != nil {
			s.logger.Warn(ctx, "failed to re-save legacy collection", "error", err)
		}
	}

	return items
}

// decode reads blob as an encrypted collection, then as legacy plaintext.
func (s *Store[T]) decode(blob []byte) (items []T, encrypted bool, ok bool) {
	if plain, ok := s.cipher.Decrypt(blob); ok {
		if err := json.Unmarshal(plain, &items); err == nil {
			return nonNil(items), true, true
		}
	}
	if err := json.Unmarshal(blob, &items); err == nil {
		return nonNil(items), false, true
	}
	return nil, false, false
}

func (s *Store[T]) saveLocked(ctx context.Context, items []T) error {
	plain, err := json.Marshal(nonNil(items))
	if err != nil {
		return err
	}
	blob, err := s.cipher.Encrypt(plain)
	if err != nil {
		s.logger.Error(ctx, "failed to encrypt collection", "error", err)
		return err
	}
	return s.repo.Put(ctx, s.key, blob)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
