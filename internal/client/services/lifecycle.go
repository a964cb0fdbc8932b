// Package services implements the vault operations behind the CLI: adding,
// editing, deleting and restoring tokens and accounts, with every change
// archived to trash and written to the activity log.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keybox/internal/client/authz"
	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/models"
)

// RecordStore is the persisted collection a service edits.
type RecordStore[T models.Record] interface {
	Load(ctx context.Context) []T
	Add(ctx context.Context, item T) error
	Update(ctx context.Context, item T) (prev T, ok bool, err error)
	Delete(ctx context.Context, id string) (removed T, ok bool, err error)
	Upsert(ctx context.Context, item T) (replaced bool, err error)
	Clear(ctx context.Context) error
}

// TrashLedger keeps snapshots of removed or overwritten records.
type TrashLedger[T models.Record] interface {
	Archive(ctx context.Context, rec T) (string, error)
	Restore(ctx context.Context, id string) (T, bool, error)
	List(ctx context.Context) []models.TrashEntry[T]
}

// EventLog records user-visible activity.
type EventLog interface {
	Record(ctx context.Context, typ models.EventType, title, message, associatedID string) (models.ActivityEvent, error)
}

// lifecycle is the edit/delete/restore discipline shared by tokens and
// accounts. noun names the record kind in event titles.
type lifecycle[T models.Record] struct {
	store    RecordStore[T]
	trash    TrashLedger[T]
	events   EventLog
	auth     authz.Authorizer
	logger   logging.Logger
	noun     string
	describe func(T) string
}

func (l *lifecycle[T]) record(ctx context.Context, typ models.EventType, title, message, associatedID string) {
	if _, err := l.events.Record(ctx, typ, title, message, associatedID); err != nil {
		l.logger.Warn(ctx, "failed to record activity", "type", typ, "error", err)
	}
}

// message formats an event message such as "Deleted token: GitHub (me)".
func (l *lifecycle[T]) message(verb string, rec T) string {
	return verb + " " + strings.ToLower(l.noun) + ": " + l.describe(rec)
}

// find resolves ref as a full ID or a unique ID prefix.
func (l *lifecycle[T]) find(ctx context.Context, ref string) (T, error) {
	return resolve(l.store.Load(ctx), ref, func(it T) string { return it.RecordID() })
}

func (l *lifecycle[T]) add(ctx context.Context, rec T) error {
	if err := l.store.Add(ctx, rec); err != nil {
		return fmt.Errorf("save %s: %w", strings.ToLower(l.noun), err)
	}
	l.record(ctx, models.EventAdd, "Added "+l.noun, l.message("Added", rec), "")
	return nil
}

// update archives the stored version and replaces it with rec.
func (l *lifecycle[T]) update(ctx context.Context, rec T) (trashID string, err error) {
	err = authz.Guard(ctx, l.auth, "save "+strings.ToLower(l.noun), func() error {
		prev, ok, err := l.store.Update(ctx, rec)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s %s: %w", strings.ToLower(l.noun), rec.RecordID(), common.ErrorNotFound)
		}

		trashID, err = l.trash.Archive(ctx, prev)
		if err != nil {
			l.logger.Error(ctx, "failed to archive previous version", "id", rec.RecordID(), "error", err)
			trashID = ""
		}
		l.record(ctx, models.EventUpdate, "Updated "+l.noun, l.message("Updated", rec), trashID)
		return nil
	})
	return trashID, err
}

func (l *lifecycle[T]) delete(ctx context.Context, ref string) (trashID string, err error) {
	rec, err := l.find(ctx, ref)
	if err != nil {
		return "", err
	}

	err = authz.Guard(ctx, l.auth, "delete "+strings.ToLower(l.noun), func() error {
		removed, ok, err := l.store.Delete(ctx, rec.RecordID())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s %s: %w", strings.ToLower(l.noun), rec.RecordID(), common.ErrorNotFound)
		}

		trashID, err = l.trash.Archive(ctx, removed)
		if err != nil {
			l.logger.Error(ctx, "failed to move record to trash", "id", removed.RecordID(), "error", err)
			trashID = ""
		}
		l.record(ctx, models.EventDelete, "Deleted "+l.noun, l.message("Deleted", removed), trashID)
		return nil
	})
	return trashID, err
}

// restore brings a trash entry back, overwriting a live record with the
// same ID or appending it. The entry leaves the trash only after the record
// is saved.
func (l *lifecycle[T]) restore(ctx context.Context, trashRef string) (T, error) {
	var zero T

	entry, err := resolve(l.trash.List(ctx), trashRef, func(e models.TrashEntry[T]) string { return e.ID })
	if err != nil {
		return zero, err
	}
	rec := entry.Record

	replaced, err := l.store.Upsert(ctx, rec)
	if err != nil {
		return zero, fmt.Errorf("restore %s: %w", strings.ToLower(l.noun), err)
	}

	if _, _, err := l.trash.Restore(ctx, entry.ID); err != nil {
		l.logger.Error(ctx, "failed to remove restored trash entry", "trash_id", entry.ID, "error", err)
	}

	typ := models.EventAdd
	if replaced {
		typ = models.EventUpdate
	}
	l.record(ctx, typ, "Restored "+l.noun, l.message("Restored", rec), "")
	return rec, nil
}

// restoreIfPresent is restore for callers probing several ledgers.
func (l *lifecycle[T]) restoreIfPresent(ctx context.Context, trashID string) (bool, error) {
	for _, e := range l.trash.List(ctx) {
		if e.ID == trashID {
			_, err := l.restore(ctx, trashID)
			return err == nil, err
		}
	}
	return false, nil
}

func (l *lifecycle[T]) reset(ctx context.Context) error {
	return l.store.Clear(ctx)
}

func resolve[T any](items []T, ref string, id func(T) string) (T, error) {
	var zero T

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, fmt.Errorf("empty id: %w", common.ErrorNotFound)
	}

	var found []T
	for _, it := range items {
		switch {
		case id(it) == ref:
			return it, nil
		case strings.HasPrefix(id(it), ref):
			found = append(found, it)
		}
	}

	switch len(found) {
	case 0:
		return zero, fmt.Errorf("%s: %w", ref, common.ErrorNotFound)
	case 1:
		return found[0], nil
	default:
		return zero, fmt.Errorf("%s matches %d records: %w", ref, len(found), common.ErrorAmbiguous)
	}
}
