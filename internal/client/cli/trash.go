package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTrashCommand(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Inspect deleted and overwritten records",
	}
	cmd.AddCommand(newTrashListCommand(r))
	return cmd
}

func newTrashListCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List trash entries, oldest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tokens := r.app.vault.Tokens.Trash(ctx)
			accounts := r.app.vault.Accounts.Trash(ctx)
			if len(tokens) == 0 && len(accounts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Trash is empty.")
				return nil
			}

			t := newTable(cmd.OutOrStdout(), table.Row{"ID", "Kind", "Record", "Deleted"})
			for _, e := range tokens {
				t.AppendRow(table.Row{shortID(e.ID), "token", describe(e.Record), formatTime(e.DeletedAt)})
			}
			for _, e := range accounts {
				t.AppendRow(table.Row{shortID(e.ID), "account", e.Record.Title, formatTime(e.DeletedAt)})
			}
			t.Render()
			return nil
		},
	}
}
