// Package authz gates sensitive vault actions (reveal, edit, delete) behind
// a user check.
package authz

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/keybox/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/cryptox"
	"github.com/dmitrijs2005/keybox/internal/logging"
)

// Authorizer decides whether the action described by reason may proceed.
// It may block while asking the user.
type Authorizer interface {
	Authorize(ctx context.Context, reason string) bool
}

type Mode string

const (
	ModeNone Mode = "none"
	ModePIN  Mode = "pin"
)

// AllowAll grants every request.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, string) bool { return true }

// Guard runs fn only when a grants reason, and returns
// common.ErrorUnauthorized otherwise.
func Guard(ctx context.Context, a Authorizer, reason string, fn func() error) error {
	if !a.Authorize(ctx, reason) {
		return fmt.Errorf("%s: %w", reason, common.ErrorUnauthorized)
	}
	return fn()
}

// PromptFunc asks the user for their PIN, showing reason.
type PromptFunc func(reason string) ([]byte, error)

var ErrPINNotSet = errors.New("pin is not set")

// PINAuthorizer checks a PIN against an argon2id verifier kept in local
// metadata. While no PIN is configured every request is granted.
type PINAuthorizer struct {
	meta   metadata.Repository
	prompt PromptFunc
	logger logging.Logger
}

func NewPINAuthorizer(meta metadata.Repository, prompt PromptFunc, l logging.Logger) *PINAuthorizer {
	return &PINAuthorizer{meta: meta, prompt: prompt, logger: l.With("module", "authz")}
}

func (p *PINAuthorizer) Authorize(ctx context.Context, reason string) bool {
	if ctx.Err() != nil {
		return false
	}

	salt, verifier, err := p.load(ctx)
	if err != nil {
		p.logger.Error(ctx, "failed to read pin verifier", "error", err)
		return false
	}
	if salt == nil {
		return true
	}

	pin, err := p.prompt(reason)
	if err != nil {
		p.logger.Warn(ctx, "pin prompt failed", "reason", reason, "error", err)
		return false
	}
	defer cryptox.Wipe(pin)

	key := cryptox.DeriveMasterKey(pin, salt)
	defer cryptox.Wipe(key)

	if subtle.ConstantTimeCompare(cryptox.MakeVerifier(key), verifier) != 1 {
		p.logger.Warn(ctx, "pin rejected", "reason", reason)
		return false
	}
	return true
}

// Enabled reports whether a PIN is configured.
func (p *PINAuthorizer) Enabled(ctx context.Context) (bool, error) {
	salt, _, err := p.load(ctx)
	return salt != nil, err
}

// SetPIN stores a fresh salt and verifier for pin.
func (p *PINAuthorizer) SetPIN(ctx context.Context, pin []byte) error {
	if len(pin) == 0 {
		return errors.New("pin is empty")
	}
	salt, err := cryptox.RandomBytes(16)
	if err != nil {
		return err
	}
	key := cryptox.DeriveMasterKey(pin, salt)
	defer cryptox.Wipe(key)

	return p.meta.SetMany(ctx, map[string][]byte{
		metadata.KeyPINSalt:     salt,
		metadata.KeyPINVerifier: cryptox.MakeVerifier(key),
	})
}

// ClearPIN removes the PIN; the caller is expected to have authorized first.
func (p *PINAuthorizer) ClearPIN(ctx context.Context) error {
	if ok, err := p.Enabled(ctx); err != nil {
		return err
	} else if !ok {
		return ErrPINNotSet
	}
	if err := p.meta.Delete(ctx, metadata.KeyPINVerifier); err != nil {
		return err
	}
	return p.meta.Delete(ctx, metadata.KeyPINSalt)
}

func (p *PINAuthorizer) load(ctx context.Context) (salt, verifier []byte, err error) {
	salt, err = p.meta.Get(ctx, metadata.KeyPINSalt)
	if err != nil || salt == nil {
		return nil, nil, err
	}
	verifier, err = p.meta.Get(ctx, metadata.KeyPINVerifier)
	if err != nil {
		return nil, nil, err
	}
	return salt, verifier, nil
}
