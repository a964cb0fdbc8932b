// Package keys resolves the 32-byte key that seals vault collections.
//
// Three sources are supported:
//
//   - static: the built-in key shared by every installation,
//   - keyring: a random per-installation key kept in the OS keyring,
//   - passphrase: argon2id over a passphrase, salted per installation.
package keys

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/keybox/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/keybox/internal/cryptox"
	"github.com/zalando/go-keyring"
)

type Source string

const (
	SourceStatic     Source = "static"
	SourceKeyring    Source = "keyring"
	SourcePassphrase Source = "passphrase"
)

const (
	KeyringService = "keybox"
	KeyringUser    = "vault-key"
	saltSize       = 16
)

var (
	ErrUnknownSource   = errors.New("unknown key source")
	ErrWrongPassphrase = errors.New("wrong passphrase")
	ErrEmptyPassphrase = errors.New("passphrase is empty")
)

// PassphraseFunc asks the user for the passphrase. The returned slice is
// wiped after use.
type PassphraseFunc func() ([]byte, error)

// ParseSource validates a configured key source name.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceStatic, SourceKeyring, SourcePassphrase:
		return Source(s), nil
	case "":
		return SourceStatic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// Resolve returns the key for src, creating keyring entries and salts on
// first use.
func Resolve(ctx context.Context, src Source, meta metadata.Repository, ask PassphraseFunc) ([]byte, error) {
	switch src {
	case SourceStatic, "":
		return cryptox.StaticKey(), nil
	case SourceKeyring:
		return FromKeyring(KeyringService, KeyringUser)
	case SourcePassphrase:
		return FromPassphrase(ctx, meta, ask)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}
}

// FromKeyring loads the key stored under service/user, generating and
// storing a new one when the entry does not exist.
func FromKeyring(service, user string) ([]byte, error) {
	encoded, err := keyring.Get(service, user)
	if err == nil {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(key) != cryptox.KeySize {
			return nil, fmt.Errorf("keyring entry %s/%s is corrupt", service, user)
		}
		return key, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	key, err := cryptox.RandomBytes(cryptox.KeySize)
	if err != nil {
		return nil, err
	}
	if err := keyring.Set(service, user, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to save to keyring: %w", err)
	}
	return key, nil
}

// FromPassphrase derives the key from the user's passphrase. The first call
// stores a random salt and a verifier; later calls reject a passphrase
// that does not reproduce the verifier.
func FromPassphrase(ctx context.Context, meta metadata.Repository, ask PassphraseFunc) ([]byte, error) {
	salt, err := meta.Get(ctx, metadata.KeyKDFSalt)
	if err != nil {
		return nil, err
	}
	first := salt == nil
	if first {
		if salt, err = cryptox.RandomBytes(saltSize); err != nil {
			return nil, err
		}
	}

	pass, err := ask()
	if err != nil {
		return nil, err
	}
	defer cryptox.Wipe(pass)
	if len(pass) == 0 {
		return nil, ErrEmptyPassphrase
	}

	key := cryptox.DeriveMasterKey(pass, salt)
	verifier := cryptox.MakeVerifier(key)

	if first {
		err := meta.SetMany(ctx, map[string][]byte{
			metadata.KeyKDFSalt:     salt,
			metadata.KeyKDFVerifier: verifier,
		})
		if err != nil {
			return nil, err
		}
		return key, nil
	}

	stored, err := meta.Get(ctx, metadata.KeyKDFVerifier)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(stored, verifier) != 1 {
		cryptox.Wipe(key)
		return nil, ErrWrongPassphrase
	}
	return key, nil
}
