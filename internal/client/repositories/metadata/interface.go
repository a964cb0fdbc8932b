// Package metadata keeps small local settings (sync flag, last sync time,
// key-derivation salts and verifiers) as key/value pairs.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeySyncEnabled    = "sync_enabled"
	KeyLastSyncAt     = "last_sync_at"
	KeyKDFSalt        = "kdf_salt"
	KeyKDFVerifier    = "kdf_verifier"
	KeyPINSalt        = "pin_salt"
	KeyPINVerifier    = "pin_verifier"
	KeyCloudNamespace = "cloud_namespace"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes all items or none of them.
	SetMany(ctx context.Context, items map[string][]byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
