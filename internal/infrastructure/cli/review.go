package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/pkg/application"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review suggestions in an interactive terminal table",
	Long: `Step through the batch in a terminal table. Press a to accept the
selected suggestion, r to reject it, q to quit. Highlights still pending
when you quit are stripped before the document is saved.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("REDLINE_SKIP_REVIEW_RUN") == "true" {
			return nil
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(true)

		p := tea.NewProgram(newReviewModel(cmd.Context(), s.Store))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("review run failed: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(reviewCmd)
}

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

// reviewer is the part of the suggestion store the review table drives.
type reviewer interface {
	List() []suggestion.Suggestion
	Accept(ctx context.Context, id string) (application.Outcome, error)
	Reject(ctx context.Context, id string) error
	Counts() application.Counts
	Summary() suggestion.Summary
}

type reviewModel struct {
	ctx     context.Context
	store   reviewer
	table   table.Model
	message string
	err     error
}

func newReviewModel(ctx context.Context, store reviewer) reviewModel {
	t := table.New(
		table.WithColumns(suggestionColumns()),
		table.WithRows(suggestionRows(store.List())),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return reviewModel{ctx: ctx, store: store, table: t}
}

func (m reviewModel) Init() tea.Cmd { return nil }

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "a":
			return m.decide(true), nil
		case "r":
			return m.decide(false), nil
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// decide accepts or rejects the selected row and refreshes the table.
func (m reviewModel) decide(accept bool) reviewModel {
	row := m.table.SelectedRow()
	if row == nil {
		return m
	}
	id := row[0]

	m.err = nil
	if accept {
		out, err := m.store.Accept(m.ctx, id)
		if err != nil {
			m.err = MapError(err)
		} else if out.Applied {
			m.message = fmt.Sprintf("%s accepted and applied", id)
		} else {
			m.message = fmt.Sprintf("%s accepted; apply it manually (%s)", id, out.Reason)
		}
	} else {
		if err := m.store.Reject(m.ctx, id); err != nil {
			m.err = MapError(err)
		} else {
			m.message = fmt.Sprintf("%s rejected", id)
		}
	}

	m.table.SetRows(suggestionRows(m.store.List()))
	return m
}

func (m reviewModel) View() string {
	summary := m.store.Summary()
	header := headerStyle.Render(fmt.Sprintf("Review  score %d", summary.Score))

	c := m.store.Counts()
	counts := fmt.Sprintf("%d pending  %s  %s  %s",
		c.Pending,
		statusApplied.Render(fmt.Sprintf("%d applied", c.Applied)),
		statusManual.Render(fmt.Sprintf("%d manual", c.Accepted-c.Applied)),
		statusRejected.Render(fmt.Sprintf("%d rejected", c.Rejected)),
	)

	status := m.message
	if m.err != nil {
		status = statusRejected.Render(m.err.Error())
	}

	return baseStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			summary.Overall,
			counts,
			m.table.View(),
			status,
			"[a] Accept  [r] Reject  [Up/Down] Navigate  [q] Quit",
		),
	) + "\n"
}
