package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/keybox/internal/client/config"
	"github.com/spf13/cobra"
)

// annotationNoVault marks commands that run without opening the vault.
const annotationNoVault = "keybox/no-vault"

type root struct {
	flags *config.Flags
	app   *App
}

// NewRootCommand builds the keybox command tree. The vault is opened lazily
// before the first command that needs it; call closeApp when done.
func NewRootCommand() (*cobra.Command, func() error) {
	r := &root{}

	cmd := &cobra.Command{
		Use:   "keybox",
		Short: "Offline-first TOTP authenticator and password vault",
		Long: `keybox keeps TOTP secrets and logins in an encrypted local vault and can
mirror them to keybox-server, its HTTP gateway or an S3 bucket.

Examples:
  keybox token import 'otpauth://totp/GitHub:octo?secret=JBSWY3DPEHPK3PXP'
  keybox codes --watch
  keybox account add Steam --account gamer --generate
  keybox sync enable --transport grpc -a 127.0.0.1:50051 --token $TOKEN`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.open,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	r.flags = config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "vault", Title: "Vault Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	for _, c := range []*cobra.Command{
		newTokenCommand(r),
		newCodesCommand(r),
		newAccountCommand(r),
		newTrashCommand(r),
	} {
		c.GroupID = "vault"
		cmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		newActivityCommand(r),
		newSyncCommand(r),
		newGenerateCommand(),
		newPINCommand(r),
		newResetCommand(r),
		newVersionCommand(),
	} {
		c.GroupID = "management"
		cmd.AddCommand(c)
	}

	return cmd, r.close
}

func (r *root) open(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationNoVault] != "" || cmd.Name() == "help" || r.app != nil {
		return nil
	}

	cfg, err := config.Load(r.flags.ConfigFile)
	if err != nil {
		return err
	}
	r.flags.Apply(cfg)

	app, err := NewApp(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	r.app = app
	return nil
}

func (r *root) close() error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil
	return err
}

func noVault(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationNoVault] = "true"
	return cmd
}

// Execute runs keybox with args and returns the process exit code.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	cmd, closeApp := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.ExecuteContext(ctx)
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}
