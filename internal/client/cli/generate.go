package cli

import (
	"fmt"

	"github.com/dmitrijs2005/keybox/internal/generator"
	"github.com/dmitrijs2005/keybox/internal/otp"
	"github.com/spf13/cobra"
)

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate passwords, TOTP secrets and provisioning URIs",
	}
	cmd.AddCommand(
		noVault(newGeneratePasswordCommand()),
		noVault(newGenerateSecretCommand()),
		noVault(newGenerateURICommand()),
	)
	return noVault(cmd)
}

func newGeneratePasswordCommand() *cobra.Command {
	o := generator.DefaultOptions()
	var noUpper, noNumbers, noSymbols bool

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Print a random password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.Uppercase, o.Numbers, o.Symbols = !noUpper, !noNumbers, !noSymbols
			pw, err := generator.Password(o)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pw)
			return nil
		},
	}
	cmd.Flags().IntVarP(&o.Length, "length", "l", generator.DefaultLength,
		fmt.Sprintf("password length (%d-%d)", generator.MinLength, generator.MaxLength))
	cmd.Flags().BoolVar(&noUpper, "no-upper", false, "leave out upper-case letters")
	cmd.Flags().BoolVar(&noNumbers, "no-numbers", false, "leave out digits")
	cmd.Flags().BoolVar(&noSymbols, "no-symbols", false, "leave out symbols")
	return cmd
}

func newGenerateSecretCommand() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Print a random Base32 TOTP secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := otp.RandomSecret(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().IntVarP(&length, "length", "l", otp.DefaultSecretLength, "secret length in Base32 characters")
	return cmd
}

func newGenerateURICommand() *cobra.Command {
	k := otp.Key{}

	cmd := &cobra.Command{
		Use:   "uri",
		Short: "Print an otpauth:// provisioning URI, generating the secret when none is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if k.Secret == "" {
				s, err := otp.RandomSecret(otp.DefaultSecretLength)
				if err != nil {
					return err
				}
				k.Secret = s
			}
			k.Secret = otp.NormalizeSecret(k.Secret)
			if _, err := otp.DecodeBase32(k.Secret); err != nil {
				return fmt.Errorf("secret: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), otp.BuildURI(k))
			return nil
		},
	}
	cmd.Flags().StringVar(&k.Issuer, "issuer", "", "issuer shown by authenticator apps")
	cmd.Flags().StringVar(&k.AccountName, "account", "", "account name")
	cmd.Flags().StringVar(&k.Secret, "secret", "", "Base32 secret")
	cmd.Flags().IntVar(&k.Digits, "digits", otp.DefaultDigits, "code length")
	cmd.Flags().IntVar(&k.Period, "period", otp.DefaultPeriod, "code period in seconds")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
