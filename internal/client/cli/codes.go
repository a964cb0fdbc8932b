package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/keybox/internal/client/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const (
	refreshInterval = time.Second
	barWidth        = 20
)

func newCodesCommand(r *root) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "codes [query]",
		Short: "Show the current code of every token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")
			list := func() []services.Code { return r.app.vault.Tokens.Codes(ctx, query) }

			if watch {
				p := tea.NewProgram(newCodesModel(list),
					tea.WithContext(ctx),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()))
				if _, err := p.Run(); err != nil {
					return fmt.Errorf("error running code view: %w", err)
				}
				return nil
			}

			codes := list()
			if len(codes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tokens.")
				return nil
			}
			t := newTable(cmd.OutOrStdout(), table.Row{"ID", "Token", "Code", "Left"})
			for _, c := range codes {
				t.AppendRow(table.Row{shortID(c.Secret.ID), describe(c.Secret), c.Code, fmt.Sprintf("%ds", c.SecondsLeft)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep the codes on screen and refresh them every second")
	return cmd
}

type codesStyles struct {
	Title  lipgloss.Style
	Name   lipgloss.Style
	Code   lipgloss.Style
	Bar    lipgloss.Style
	Urgent lipgloss.Style
	Help   lipgloss.Style
	Empty  lipgloss.Style
}

func defaultCodesStyles() codesStyles {
	return codesStyles{
		Title:  lipgloss.NewStyle().Foreground(lipgloss.Color("32")).Bold(true),
		Name:   lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Code:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		Bar:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Urgent: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Empty:  lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Italic(true),
	}
}

type tickMsg time.Time

// codesModel is the bubbletea model behind `keybox codes --watch`.
type codesModel struct {
	list     func() []services.Code
	codes    []services.Code
	styles   codesStyles
	quitting bool
}

func newCodesModel(list func() []services.Code) codesModel {
	return codesModel{list: list, codes: list(), styles: defaultCodesStyles()}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m codesModel) Init() tea.Cmd {
	return tick()
}

func (m codesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		}
	case tickMsg:
		m.codes = m.list()
		return m, tick()
	}
	return m, nil
}

func (m codesModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("keybox codes"))
	b.WriteString("\n\n")

	if len(m.codes) == 0 {
		b.WriteString(m.styles.Empty.Render("No tokens"))
		b.WriteString("\n")
	}
	for _, c := range m.codes {
		bar := m.styles.Bar
		if c.SecondsLeft <= 5 {
			bar = m.styles.Urgent
		}
		fmt.Fprintf(&b, "%s  %s %s\n",
			m.styles.Code.Render(groupDigits(c.Code)),
			bar.Render(progressBar(c.Remaining, barWidth)+fmt.Sprintf(" %2ds", c.SecondsLeft)),
			m.styles.Name.Render(describe(c.Secret)))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("q or Esc to quit"))
	return b.String()
}

// groupDigits splits a code in two halves for readability: 123 456.
func groupDigits(code string) string {
	if len(code) < 6 {
		return code
	}
	half := len(code) / 2
	return code[:half] + " " + code[half:]
}

// progressBar renders the remaining fraction of the period; fraction is
// 1 at the start of a period and falls towards 0.
func progressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
