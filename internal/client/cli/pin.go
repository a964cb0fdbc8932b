package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/keybox/internal/client/authz"
	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/cryptox"
	"github.com/dmitrijs2005/keybox/internal/models"
	"github.com/spf13/cobra"
)

var ErrPINMode = errors.New("PIN authorization is off; run with --auth pin or set \"auth\" in the config file")

func newPINCommand(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the PIN that guards secrets, edits and deletes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set",
			Short: "Set or change the PIN",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.app.setPIN(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the PIN",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.app.clearPIN(cmd.Context())
			},
		},
	)
	return cmd
}

func (a *App) setPIN(ctx context.Context) error {
	if a.pin == nil {
		return ErrPINMode
	}
	return authz.Guard(ctx, a.pin, "change pin", func() error {
		pin, err := GetHidden(a.reader, "New PIN", a.out)
		if err != nil {
			return err
		}
		defer cryptox.Wipe(pin)
		again, err := GetHidden(a.reader, "Repeat PIN", a.out)
		if err != nil {
			return err
		}
		defer cryptox.Wipe(again)
		if !bytes.Equal(pin, again) {
			return errors.New("PINs do not match")
		}

		if err := a.pin.SetPIN(ctx, pin); err != nil {
			return err
		}
		a.recordSecurity(ctx, "PIN Changed", "Authorization PIN has been set.")
		fmt.Fprintln(a.out, "PIN set")
		return nil
	})
}

func (a *App) clearPIN(ctx context.Context) error {
	if a.pin == nil {
		return ErrPINMode
	}
	return authz.Guard(ctx, a.pin, "remove pin", func() error {
		if err := a.pin.ClearPIN(ctx); err != nil {
			if errors.Is(err, authz.ErrPINNotSet) {
				return fmt.Errorf("%w: %w", err, common.ErrorNotFound)
			}
			return err
		}
		a.recordSecurity(ctx, "PIN Removed", "Authorization PIN has been removed.")
		fmt.Fprintln(a.out, "PIN removed")
		return nil
	})
}

func (a *App) recordSecurity(ctx context.Context, title, message string) {
	if err := a.vault.Activity.Record(ctx, models.EventSecurity, title, message); err != nil {
		a.logger.Warn(ctx, "failed to record security event", "error", err)
	}
}
