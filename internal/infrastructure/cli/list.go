package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

var (
	listStatus string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the suggestions of the current batch",
	Long: `List the suggestions of the current batch in submission order.

Examples:
  redline list
  redline list --status pending
  redline list --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var want suggestion.Status
		if listStatus != "" {
			st, err := suggestion.ParseStatus(listStatus)
			if err != nil {
				return err
			}
			want = st
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(true)

		list := filterByStatus(s.Store.List(), want)
		out := cmd.OutOrStdout()
		if listJSON {
			return writeJSON(out, list)
		}
		if len(list) == 0 {
			_, _ = fmt.Fprintln(out, "No suggestions. Hand feedback to 'redline intake'.")
			return nil
		}
		_, _ = fmt.Fprintln(out, renderTable(list))
		return nil
	},
}

func filterByStatus(list []suggestion.Suggestion, want suggestion.Status) []suggestion.Suggestion {
	if want == "" {
		return list
	}
	filtered := make([]suggestion.Suggestion, 0, len(list))
	for _, sug := range list {
		if sug.Status == want {
			filtered = append(filtered, sug)
		}
	}
	return filtered
}

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#C0392B")).
			PaddingLeft(1).
			PaddingRight(1)

	statusApplied  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusManual   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusRejected = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// statusLabel names the review state, telling applied accepts from those
// left for manual editing.
func statusLabel(sug suggestion.Suggestion) string {
	switch {
	case sug.Status == suggestion.StatusAccepted && sug.Applied:
		return "applied"
	case sug.Status == suggestion.StatusAccepted:
		return "manual"
	case sug.Status == "":
		return string(suggestion.StatusPending)
	default:
		return string(sug.Status)
	}
}

func styledStatus(sug suggestion.Suggestion) string {
	label := statusLabel(sug)
	switch label {
	case "applied":
		return statusApplied.Render(label)
	case "manual":
		return statusManual.Render(label)
	case string(suggestion.StatusRejected):
		return statusRejected.Render(label)
	default:
		return label
	}
}

func suggestionColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 12},
		{Title: "Type", Width: 8},
		{Title: "Status", Width: 9},
		{Title: "Target", Width: 30},
		{Title: "Suggested", Width: 30},
	}
}

func suggestionRows(list []suggestion.Suggestion) []table.Row {
	rows := make([]table.Row, 0, len(list))
	for _, sug := range list {
		rows = append(rows, table.Row{
			sug.ID,
			string(sug.Type),
			statusLabel(sug),
			oneLine(sug.Target(), 30),
			oneLine(sug.Suggested, 30),
		})
	}
	return rows
}

func renderTable(list []suggestion.Suggestion) string {
	t := table.New(
		table.WithColumns(suggestionColumns()),
		table.WithRows(suggestionRows(list)),
		table.WithHeight(len(list)+1),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Cell
	t.SetStyles(st)
	return t.View()
}

// oneLine collapses whitespace and truncates s to width runes.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Only list suggestions in this status (pending, accepted, rejected)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(listCmd)
}
