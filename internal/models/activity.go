package models

import "time"

type EventType string

const (
	EventAdd      EventType = "add"
	EventDelete   EventType = "delete"
	EventUpdate   EventType = "update"
	EventView     EventType = "view"
	EventSync     EventType = "sync"
	EventSecurity EventType = "security"
	EventSystem   EventType = "system"
)

// ActivityEvent is one entry of the activity log. AssociatedID optionally
// points at the trash entry created by the same action.
type ActivityEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"date"`
	Read         bool      `json:"isRead"`
	AssociatedID string    `json:"associatedID,omitempty"`
}

func (e ActivityEvent) RecordID() string { return e.ID }
