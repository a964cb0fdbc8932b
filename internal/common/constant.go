// Package common contains shared constants and sentinel errors used across
// keybox components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// BlobKeyHeaderName carries the blob key for calls whose payload is the blob
// itself, and the key filter for watch streams.
const BlobKeyHeaderName = "blob-key"

// Collection keys, shared by the local store and the cloud key/value space.
const (
	TokensKey        = "saved_tokens_v1"
	AccountsKey      = "saved_accounts_v1"
	TrashTokensKey   = "trash_tokens_v1"
	TrashAccountsKey = "trash_accounts_v1"
	ActivityKey      = "app_notifications_v1"
)

// SyncedKeys lists the collections mirrored to the cloud.
var SyncedKeys = []string{TokensKey, AccountsKey}
