// Package cli provides the keybox command-line client.
//
// It wires configuration, the local SQLite vault, the record services and
// the cloud sync engine behind a cobra command tree. Typical flow: load the
// config (defaults, JSON file, environment, flags), open the vault with the
// configured key source, run one command, then wait for background uploads
// before exiting.
//
// Key features:
//   - TOTP tokens: add, import otpauth:// URIs, list, codes (with a live view)
//   - Logins with categories and password generation
//   - Trash with restore, and an activity log that can undo deletes
//   - Cloud sync over gRPC, HTTP or S3 with a union merge that keeps local edits
//   - Optional PIN authorization for revealing secrets and destructive actions
package cli
