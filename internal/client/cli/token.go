package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keybox/internal/models"
	"github.com/dmitrijs2005/keybox/internal/otp"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTokenCommand(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "token",
		Aliases: []string{"tokens", "t"},
		Short:   "Manage TOTP tokens",
	}
	cmd.AddCommand(
		newTokenAddCommand(r),
		newTokenImportCommand(r),
		newTokenListCommand(r),
		newTokenCodeCommand(r),
		newTokenShowCommand(r),
		newTokenEditCommand(r),
		newTokenDeleteCommand(r),
		newTokenRestoreCommand(r),
	)
	return cmd
}

func newTokenAddCommand(r *root) *cobra.Command {
	var secret string
	var generate bool

	cmd := &cobra.Command{
		Use:   "add <issuer> <account>",
		Short: "Add a token from its Base32 secret",
		Long: `Add a token from its Base32 secret. Without --secret the secret is read
from the terminal without echo; --generate creates a random one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()

			switch {
			case generate:
				s, err := otp.RandomSecret(otp.DefaultSecretLength)
				if err != nil {
					return err
				}
				secret = s
			case secret == "":
				b, err := GetHidden(a.reader, "Secret (Base32)", cmd.OutOrStdout())
				if err != nil {
					return err
				}
				secret = string(b)
			}

			rec, err := a.vault.Tokens.Add(ctx, args[0], args[1], secret)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added token %s %s\n", shortID(rec.ID), describe(rec))
			if generate {
				fmt.Fprintf(cmd.OutOrStdout(), "Secret: %s\n", rec.Secret)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Base32 secret")
	cmd.Flags().BoolVarP(&generate, "generate", "g", false, "generate a random secret")
	cmd.MarkFlagsMutuallyExclusive("secret", "generate")
	return cmd
}

func newTokenImportCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "import <otpauth-uri>",
		Short: "Add a token from an otpauth:// provisioning URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := r.app.vault.Tokens.ImportURI(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported token %s %s\n", shortID(rec.ID), describe(rec))
			return nil
		},
	}
}

func newTokenListCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:     "list [query]",
		Aliases: []string{"ls"},
		Short:   "List tokens, optionally filtered by issuer or account",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := r.app.vault.Tokens.List(cmd.Context(), strings.Join(args, " "))
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tokens.")
				return nil
			}
			t := newTable(cmd.OutOrStdout(), table.Row{"ID", "Issuer", "Account", "Digits", "Period"})
			for _, s := range list {
				t.AppendRow(table.Row{shortID(s.ID), s.Issuer, s.AccountName, s.Digits, fmt.Sprintf("%ds", s.Period)})
			}
			t.Render()
			return nil
		},
	}
}

func newTokenCodeCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "code <token>",
		Short: "Print the current code of one token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.app.vault.Tokens.Code(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%ds left)\n", c.Code, c.SecondsLeft)
			return nil
		},
	}
}

func newTokenShowCommand(r *root) *cobra.Command {
	var uri bool

	cmd := &cobra.Command{
		Use:   "show <token>",
		Short: "Reveal the secret of a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()

			rec, err := a.vault.Tokens.Find(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\nIssuer:  %s\nAccount: %s\nDigits:  %d\nPeriod:  %ds\n",
				rec.ID, rec.Issuer, rec.AccountName, rec.Digits, rec.Period)

			if uri {
				u, err := a.vault.Tokens.ExportURI(ctx, rec.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "URI:     %s\n", u)
				return nil
			}
			secret, err := a.vault.Tokens.Reveal(ctx, rec.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Secret:  %s\n", secret)
			return nil
		},
	}
	cmd.Flags().BoolVar(&uri, "uri", false, "print the otpauth:// URI instead of the bare secret")
	return cmd
}

func newTokenEditCommand(r *root) *cobra.Command {
	var (
		issuer, account, secret string
		digits, period          int
	)

	cmd := &cobra.Command{
		Use:   "edit <token>",
		Short: "Change a token; the previous version goes to trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()

			rec, err := a.vault.Tokens.Find(ctx, args[0])
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("issuer") {
				rec.Issuer = strings.TrimSpace(issuer)
			}
			if f.Changed("account") {
				rec.AccountName = strings.TrimSpace(account)
			}
			if f.Changed("secret") {
				rec.Secret = secret
			}
			if f.Changed("digits") {
				rec.Digits = digits
			}
			if f.Changed("period") {
				rec.Period = period
			}

			trashID, err := a.vault.Tokens.Update(ctx, rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated token %s; previous version kept as trash entry %s\n",
				shortID(rec.ID), shortID(trashID))
			return nil
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", "", "new issuer")
	cmd.Flags().StringVar(&account, "account", "", "new account name")
	cmd.Flags().StringVar(&secret, "secret", "", "new Base32 secret")
	cmd.Flags().IntVar(&digits, "digits", otp.DefaultDigits, "code length")
	cmd.Flags().IntVar(&period, "period", otp.DefaultPeriod, "code period in seconds")
	return cmd
}

func newTokenDeleteCommand(r *root) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <token>",
		Aliases: []string{"rm"},
		Short:   "Move a token to trash",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()

			rec, err := a.vault.Tokens.Find(ctx, args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := Confirm(a.reader, "Delete token "+describe(rec)+"?", cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			trashID, err := a.vault.Tokens.Delete(ctx, rec.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted token %s; restore with: keybox token restore %s\n",
				describe(rec), shortID(trashID))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newTokenRestoreCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <trash-entry>",
		Short: "Put a token back from trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := r.app.vault.Tokens.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored token %s %s\n", shortID(rec.ID), describe(rec))
			return nil
		},
	}
}

func describe(s models.Secret) string {
	if s.AccountName == "" {
		return s.Issuer
	}
	return s.Issuer + " (" + s.AccountName + ")"
}
