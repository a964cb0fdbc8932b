package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newActivityCommand(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activity",
		Aliases: []string{"log"},
		Short:   "Review recent vault activity",
	}
	cmd.AddCommand(
		newActivityListCommand(r),
		newActivityReadCommand(r),
		newActivityRestoreCommand(r),
		newActivityDeleteCommand(r),
		newActivityClearCommand(r),
	)
	return cmd
}

func newActivityListCommand(r *root) *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List events, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := r.app.vault.Activity
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			events := svc.List(ctx, unread)
			if len(events) == 0 {
				fmt.Fprintln(out, "No activity.")
				return nil
			}
			t := newTable(out, table.Row{"ID", "", "When", "Type", "Title", "Message"})
			for _, e := range events {
				flag := ""
				if !e.Read {
					flag = "*"
				}
				t.AppendRow(table.Row{shortID(e.ID), flag, formatTime(e.CreatedAt), e.Type, e.Title, e.Message})
			}
			t.Render()
			fmt.Fprintf(out, "%d unread\n", svc.Unread(ctx))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&unread, "unread", "u", false, "only unread events")
	return cmd
}

func newActivityReadCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Mark every event as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.app.vault.Activity.MarkAllRead(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All events marked as read")
			return nil
		},
	}
}

func newActivityRestoreCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <event>",
		Short: "Undo the delete or edit recorded by an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.app.vault.Activity.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Restored")
			return nil
		},
	}
}

func newActivityDeleteCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <event>",
		Aliases: []string{"rm"},
		Short:   "Remove one event",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.app.vault.Activity.Delete(cmd.Context(), args[0])
		},
	}
}

func newActivityClearCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.app.vault.Activity.Clear(cmd.Context())
		},
	}
}
