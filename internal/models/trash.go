package models

import "time"

// TrashEntry keeps a snapshot of a deleted or overwritten record.
type TrashEntry[T Record] struct {
	ID        string    `json:"id"`
	Record    T         `json:"record"`
	DeletedAt time.Time `json:"deletedDate"`
}

func (e TrashEntry[T]) RecordID() string { return e.ID }
