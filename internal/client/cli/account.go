package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keybox/internal/generator"
	"github.com/dmitrijs2005/keybox/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newAccountCommand(r *root) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts", "a"},
		Short:   "Manage stored logins",
	}
	cmd.AddCommand(
		newAccountAddCommand(r),
		newAccountListCommand(r),
		newAccountShowCommand(r),
		newAccountEditCommand(r),
		newAccountDeleteCommand(r),
		newAccountRestoreCommand(r),
	)
	return cmd
}

type accountFlags struct {
	account  string
	password string
	note     string
	category string
}

func (f *accountFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.account, "account", "u", "", "user name or e-mail")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "password (prompted without echo when omitted)")
	cmd.Flags().StringVarP(&f.note, "note", "n", "", "free-form note")
	cmd.Flags().StringVar(&f.category, "category", "", "one of "+categoryNames())
}

func categoryNames() string {
	names := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func parseCategory(s string) (models.Category, error) {
	if s == "" {
		return "", nil
	}
	return models.ParseCategory(s)
}

func newAccountAddCommand(r *root) *cobra.Command {
	var f accountFlags
	var generate bool

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Store a login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			out := cmd.OutOrStdout()

			category, err := parseCategory(f.category)
			if err != nil {
				return err
			}

			password := f.password
			switch {
			case generate:
				if password, err = generator.Password(generator.DefaultOptions()); err != nil {
					return err
				}
			case !cmd.Flags().Changed("password"):
				b, err := GetHidden(a.reader, "Password", out)
				if err != nil {
					return err
				}
				password = string(b)
			}

			e, err := a.vault.Accounts.Add(cmd.Context(), models.VaultEntry{
				Title:    args[0],
				Account:  f.account,
				Password: password,
				Note:     f.note,
				Category: category,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Added account %s %s\n", shortID(e.ID), e.Title)
			if generate {
				fmt.Fprintf(out, "Password: %s\n", e.Password)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&generate, "generate", "g", false, "generate a random password")
	cmd.MarkFlagsMutuallyExclusive("password", "generate")
	return cmd
}

func newAccountListCommand(r *root) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:     "list [query]",
		Aliases: []string{"ls"},
		Short:   "List logins, optionally filtered by text or category",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCategory(category)
			if err != nil {
				return err
			}
			list := r.app.vault.Accounts.List(cmd.Context(), strings.Join(args, " "), c)
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts.")
				return nil
			}
			t := newTable(cmd.OutOrStdout(), table.Row{"ID", "Title", "Account", "Category", "Created"})
			for _, e := range list {
				t.AppendRow(table.Row{shortID(e.ID), e.Title, e.Account, e.Category, formatTime(e.CreatedAt)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only show this category")
	return cmd
}

func newAccountShowCommand(r *root) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show <account>",
		Short: "Show a login; --reveal prints the password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()

			e, err := a.vault.Accounts.Find(ctx, args[0])
			if err != nil {
				return err
			}
			password := mask(e.Password)
			if reveal {
				if password, err = a.vault.Accounts.Reveal(ctx, e.ID); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"ID:       %s\nTitle:    %s\nAccount:  %s\nPassword: %s\nCategory: %s\nCreated:  %s\n",
				e.ID, e.Title, e.Account, password, e.Category, formatTime(e.CreatedAt))
			if e.Note != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Note:     %s\n", e.Note)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&reveal, "reveal", "r", false, "print the password")
	return cmd
}

func newAccountEditCommand(r *root) *cobra.Command {
	var f accountFlags
	var title string

	cmd := &cobra.Command{
		Use:   "edit <account>",
		Short: "Change a login; the previous version goes to trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()

			e, err := a.vault.Accounts.Find(ctx, args[0])
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if fl.Changed("title") {
				e.Title = strings.TrimSpace(title)
			}
			if fl.Changed("account") {
				e.Account = strings.TrimSpace(f.account)
			}
			if fl.Changed("password") {
				e.Password = f.password
			}
			if fl.Changed("note") {
				e.Note = f.note
			}
			if fl.Changed("category") {
				if e.Category, err = models.ParseCategory(f.category); err != nil {
					return err
				}
			}

			trashID, err := a.vault.Accounts.Update(ctx, e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated account %s; previous version kept as trash entry %s\n",
				shortID(e.ID), shortID(trashID))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "new title")
	return cmd
}

func newAccountDeleteCommand(r *root) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <account>",
		Aliases: []string{"rm"},
		Short:   "Move a login to trash",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()

			e, err := a.vault.Accounts.Find(ctx, args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := Confirm(a.reader, "Delete account "+e.Title+"?", cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			trashID, err := a.vault.Accounts.Delete(ctx, e.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s; restore with: keybox account restore %s\n",
				e.Title, shortID(trashID))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newAccountRestoreCommand(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <trash-entry>",
		Short: "Put a login back from trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := r.app.vault.Accounts.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored account %s %s\n", shortID(e.ID), e.Title)
			return nil
		},
	}
}
