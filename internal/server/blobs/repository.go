// Package blobs stores the opaque, client-encrypted collection documents
// that keybox vaults mirror to the server, and tells watchers when one
// changes.
//
// Every vault owns a namespace (the subject of its access token); keys are
// collection names such as saved_tokens_v1. The server never looks inside a
// value.
package blobs

import "context"

// Repository persists blob values per namespace.
type Repository interface {
	// Get returns the stored value, or nil with no error when the key has
	// never been written.
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	// Put replaces the value of key.
	Put(ctx context.Context, namespace, key string, value []byte) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
