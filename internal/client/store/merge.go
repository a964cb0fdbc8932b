package store

import (
	"context"

	"github.com/dmitrijs2005/keybox/internal/models"
)

// Union merges remote into local: every local record is kept as is, and
// remote records whose ID is not present locally are appended in remote
// order. It returns the merged list and the number of records appended.
func Union[T models.Record](local, remote []T) ([]T, int) {
	seen := make(map[string]struct{}, len(local))
	for _, it := range local {
		seen[it.RecordID()] = struct{}{}
	}

	merged := append(make([]T, 0, len(local)+len(remote)), local...)
	added := 0
	for _, it := range remote {
		id := it.RecordID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, it)
		added++
	}
	return merged, added
}

// MergeRemote decodes a blob fetched from the cloud and unions it into the
// local collection. The merged collection is saved only when records were
// added, and the save does not notify: the caller is the sync engine itself.
// Unreadable or empty blobs merge nothing.
func (s *Store[T]) MergeRemote(ctx context.Context, blob []byte) (int, error) {
	if len(blob) == 0 {
		return 0, nil
	}

	remote, _, ok := s.decode(blob)
	if !ok {
		s.logger.Warn(ctx, "remote collection is unreadable, ignoring", "size", len(blob))
		return 0, nil
	}
	if len(remote) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged, added := Union(s.loadLocked(ctx), remote)
	if added == 0 {
		return 0, nil
	}
	if err := s.saveLocked(ctx, merged); err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "merged remote records", "added", added)
	return added, nil
}

// Blob returns the persisted form of the collection for upload. A collection
// that was never saved yields nil.
func (s *Store[T]) Blob(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.repo.Get(ctx, s.key)
	if err != nil || len(blob) == 0 {
		return nil, err
	}
	if _, encrypted, ok := s.decode(blob); ok && !encrypted {
		// never ship plaintext; loading upgrades it in place
		s.loadLocked(ctx)
		return s.repo.Get(ctx, s.key)
	}
	return blob, nil
}
