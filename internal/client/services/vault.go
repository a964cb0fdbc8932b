package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/keybox/internal/client/authz"
	"github.com/dmitrijs2005/keybox/internal/models"
)

// Vault groups the services of one local vault.
type Vault struct {
	Tokens   *TokenService
	Accounts *AccountService
	Activity *ActivityService
	auth     authz.Authorizer
}

func NewVault(tokens *TokenService, accounts *AccountService, activity *ActivityService, auth authz.Authorizer) *Vault {
	return &Vault{Tokens: tokens, Accounts: accounts, Activity: activity, auth: auth}
}

// ResetAll removes every token and account after authorization and logs a
// security event. Trash and activity history are kept.
func (v *Vault) ResetAll(ctx context.Context) error {
	return authz.Guard(ctx, v.auth, "reset all data", func() error {
		err := errors.Join(v.Tokens.Reset(ctx), v.Accounts.Reset(ctx))
		if err != nil {
			return err
		}
		return v.Activity.Record(ctx, models.EventSecurity, "Data Reset", "All data has been successfully reset.")
	})
}
