package models

import "github.com/google/uuid"

// Record is anything that can live in a collection.
type Record interface {
	RecordID() string
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// IndexOf returns the position of the record with id, or -1.
func IndexOf[T Record](items []T, id string) int {
	for i, it := range items {
		if it.RecordID() == id {
			return i
		}
	}
	return -1
}
