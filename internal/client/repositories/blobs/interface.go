// Package blobs stores opaque, named byte blobs in the local database.
// Each vault collection is persisted as a single blob under its logical key.
package blobs

import (
	"context"
	"time"
)

// Info describes a stored blob without its content.
type Info struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Stat(ctx context.Context) ([]Info, error)
}
