// Package activity records user-visible events (adds, deletes, reveals,
// syncs) newest first, keeping the most recent MaxEvents.
package activity

import (
	"context"

	"github.com/dmitrijs2005/keybox/internal/client/store"
	"github.com/dmitrijs2005/keybox/internal/models"
	"github.com/dmitrijs2005/keybox/internal/timex"
)

const MaxEvents = 100

type Log struct {
	store *store.Store[models.ActivityEvent]
	clock timex.Clock
}

func NewLog(s *store.Store[models.ActivityEvent], clock timex.Clock) *Log {
	if clock == nil {
		clock = timex.SystemClock()
	}
	return &Log{store: s, clock: clock}
}

// Record inserts an unread event at the front of the log. associatedID may
// name the trash entry created by the same action.
func (l *Log) Record(ctx context.Context, typ models.EventType, title, message, associatedID string) (models.ActivityEvent, error) {
	ev := models.ActivityEvent{
		ID:           models.NewID(),
		Type:         typ,
		Title:        title,
		Message:      message,
		CreatedAt:    l.clock.Now(),
		AssociatedID: associatedID,
	}

	err := l.store.Mutate(ctx, func(items []models.ActivityEvent) ([]models.ActivityEvent, bool) {
		items = append([]models.ActivityEvent{ev}, items...)
		if len(items) > MaxEvents {
			items = items[:MaxEvents]
		}
		return items, true
	})
	return ev, err
}

// List returns events newest first.
func (l *Log) List(ctx context.Context) []models.ActivityEvent {
	return l.store.Load(ctx)
}

func (l *Log) Get(ctx context.Context, id string) (models.ActivityEvent, bool) {
	return l.store.Get(ctx, id)
}

func (l *Log) Unread(ctx context.Context) int {
	n := 0
	for _, ev := range l.store.Load(ctx) {
		if !ev.Read {
			n++
		}
	}
	return n
}

func (l *Log) MarkAllRead(ctx context.Context) error {
	return l.store.Mutate(ctx, func(items []models.ActivityEvent) ([]models.ActivityEvent, bool) {
		changed := false
		for i := range items {
			if !items[i].Read {
				items[i].Read = true
				changed = true
			}
		}
		return items, changed
	})
}

func (l *Log) Delete(ctx context.Context, id string) (bool, error) {
	_, ok, err := l.store.Delete(ctx, id)
	return ok, err
}

func (l *Log) Clear(ctx context.Context) error {
	return l.store.Clear(ctx)
}
