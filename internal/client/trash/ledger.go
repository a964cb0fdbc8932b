// Package trash keeps snapshots of deleted and overwritten records so they
// can be restored later.
package trash

import (
	"context"

	"github.com/dmitrijs2005/keybox/internal/client/store"
	"github.com/dmitrijs2005/keybox/internal/models"
	"github.com/dmitrijs2005/keybox/internal/timex"
)

// Ledger archives records of type T into an encrypted collection. With a
// positive limit the oldest entries are evicted once the ledger grows past
// it; zero keeps everything.
type Ledger[T models.Record] struct {
	store *store.Store[models.TrashEntry[T]]
	clock timex.Clock
	limit int
}

func NewLedger[T models.Record](s *store.Store[models.TrashEntry[T]], clock timex.Clock, limit int) *Ledger[T] {
	if clock == nil {
		clock = timex.SystemClock()
	}
	if limit < 0 {
		limit = 0
	}
	return &Ledger[T]{store: s, clock: clock, limit: limit}
}

// Archive stores a snapshot of rec and returns the trash entry ID.
func (l *Ledger[T]) Archive(ctx context.Context, rec T) (string, error) {
	entry := models.TrashEntry[T]{
		ID:        models.NewID(),
		Record:    rec,
		DeletedAt: l.clock.Now(),
	}

	err := l.store.Mutate(ctx, func(items []models.TrashEntry[T]) ([]models.TrashEntry[T], bool) {
		items = append(items, entry)
		if l.limit > 0 && len(items) > l.limit {
			items = items[len(items)-l.limit:]
		}
		return items, true
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Restore removes the entry and hands back the archived record. ok is false
// when no entry has that ID, including when it was already restored.
func (l *Ledger[T]) Restore(ctx context.Context, id string) (rec T, ok bool, err error) {
	entry, ok, err := l.store.Delete(ctx, id)
	if err != nil || !ok {
		return rec, false, err
	}
	return entry.Record, true, nil
}

func (l *Ledger[T]) Get(ctx context.Context, id string) (models.TrashEntry[T], bool) {
	return l.store.Get(ctx, id)
}

// List returns entries oldest first.
func (l *Ledger[T]) List(ctx context.Context) []models.TrashEntry[T] {
	return l.store.Load(ctx)
}

func (l *Ledger[T]) Empty(ctx context.Context) error {
	return l.store.Clear(ctx)
}
