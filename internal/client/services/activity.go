package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/keybox/internal/client/activity"
	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/models"
)

// Restorer undoes an action from its trash entry ID. ok is false when the
// ID is not in the restorer's trash.
type Restorer interface {
	RestoreIfPresent(ctx context.Context, trashID string) (bool, error)
}

type ActivityService struct {
	log       *activity.Log
	restorers []Restorer
}

func NewActivityService(log *activity.Log, restorers ...Restorer) *ActivityService {
	return &ActivityService{log: log, restorers: restorers}
}

// List returns events newest first, optionally only the unread ones.
func (s *ActivityService) List(ctx context.Context, unreadOnly bool) []models.ActivityEvent {
	all := s.log.List(ctx)
	if !unreadOnly {
		return all
	}
	var out []models.ActivityEvent
	for _, e := range all {
		if !e.Read {
			out = append(out, e)
		}
	}
	return out
}

func (s *ActivityService) Find(ctx context.Context, ref string) (models.ActivityEvent, error) {
	return resolve(s.log.List(ctx), ref, func(e models.ActivityEvent) string { return e.ID })
}

func (s *ActivityService) Unread(ctx context.Context) int {
	return s.log.Unread(ctx)
}

func (s *ActivityService) MarkAllRead(ctx context.Context) error {
	return s.log.MarkAllRead(ctx)
}

func (s *ActivityService) Delete(ctx context.Context, ref string) error {
	e, err := s.Find(ctx, ref)
	if err != nil {
		return err
	}
	_, err = s.log.Delete(ctx, e.ID)
	return err
}

func (s *ActivityService) Clear(ctx context.Context) error {
	return s.log.Clear(ctx)
}

// Restore undoes the delete or update behind an event by restoring the
// trash entry it points at.
func (s *ActivityService) Restore(ctx context.Context, ref string) error {
	e, err := s.Find(ctx, ref)
	if err != nil {
		return err
	}
	if e.AssociatedID == "" {
		return fmt.Errorf("event %s has nothing to restore: %w", e.ID, common.ErrorNotFound)
	}

	for _, r := range s.restorers {
		ok, err := r.RestoreIfPresent(ctx, e.AssociatedID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("trash entry %s: %w", e.AssociatedID, common.ErrorNotFound)
}

// Record adds an event directly, for actions outside the record services
// (sync, security settings).
func (s *ActivityService) Record(ctx context.Context, typ models.EventType, title, message string) error {
	_, err := s.log.Record(ctx, typ, title, message, "")
	return err
}
