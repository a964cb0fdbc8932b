package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/keybox/internal/client/cloudsync"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var ErrSyncDisabled = errors.New("cloud sync is disabled; run `keybox sync enable`")

func newSyncCommand(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror tokens and accounts to the configured cloud transport",
	}
	cmd.AddCommand(
		newSyncStatusCommand(r),
		newSyncNowCommand(r),
		newSyncPullCommand(r),
		newSyncEnableCommand(r),
		newSyncDisableCommand(r),
		newSyncWatchCommand(r),
	)
	return cmd
}

func newSyncStatusCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether sync is on and when it last ran",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			out := cmd.OutOrStdout()

			last, ok, err := a.engine.LastSync(cmd.Context())
			if err != nil {
				return err
			}
			lastStr := "never"
			if ok {
				lastStr = formatTime(last)
			}

			fmt.Fprintf(out, "Transport: %s\nEnabled:   %t\nLast sync: %s\n", a.config.Transport, a.engine.Enabled(), lastStr)

			t := newTable(out, table.Row{"Collection", "State"})
			for _, k := range a.engine.Keys() {
				st, _ := a.engine.State(k)
				t.AppendRow(table.Row{k, st})
			}
			t.Render()
			return nil
		},
	}
}

func newSyncNowCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Push the local vault to the cloud, even when sync is off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.app.syncConfigured(); err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), r.app.engine.ForceSync(cmd.Context()))
		},
	}
}

func newSyncPullCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Merge records from the cloud into the local vault, even when sync is off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.app.syncConfigured(); err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), r.app.engine.ForceRestore(cmd.Context()))
		},
	}
}

func newSyncEnableCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "Turn sync on and push the local vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.app.syncConfigured(); err != nil {
				return err
			}
			results, err := r.app.engine.SetEnabled(cmd.Context(), true)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cloud sync enabled")
			return printResults(cmd.OutOrStdout(), results)
		},
	}
}

func newSyncDisableCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Turn sync off; local data is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := r.app.engine.SetEnabled(cmd.Context(), false); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cloud sync disabled")
			return nil
		},
	}
}

func newSyncWatchCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay in the foreground and merge remote changes as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			if err := a.syncConfigured(); err != nil {
				return err
			}
			if !a.engine.Enabled() {
				return ErrSyncDisabled
			}

			out := cmd.OutOrStdout()
			a.engine.OnMerged(func(_ context.Context, key string, added int) {
				fmt.Fprintf(out, "%s  merged %d record(s) into %s\n", time.Now().Format(time.TimeOnly), added, key)
			})
			if err := printResults(out, a.engine.ForceRestore(cmd.Context())); err != nil {
				a.logger.Warn(cmd.Context(), "initial sync failed", "error", err)
			}
			fmt.Fprintln(out, "Watching for remote changes, press Ctrl+C to stop")

			<-cmd.Context().Done()
			return nil
		},
	}
}

// printResults writes one line per cycle and returns the joined cycle
// errors.
func printResults(w io.Writer, results []cloudsync.Result) error {
	var errs []error
	for _, res := range results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "%-20s failed: %v\n", res.Key, res.Err)
			errs = append(errs, fmt.Errorf("%s: %w", res.Key, res.Err))
		case res.Uploaded:
			fmt.Fprintf(w, "%-20s merged %d, uploaded\n", res.Key, res.Added)
		default:
			fmt.Fprintf(w, "%-20s merged %d\n", res.Key, res.Added)
		}
	}
	return errors.Join(errs...)
}
