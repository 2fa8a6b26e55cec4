package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/pkg/application"
	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

var (
	showSummary bool
	showJSON    bool
)

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print the document, one suggestion, or the review summary",
	Long: `Print the current document markup. With an id, print that suggestion
instead; with --summary, print the reviewer's summary and decision counts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(true)

		out := cmd.OutOrStdout()
		switch {
		case len(args) == 1:
			sug, err := s.Store.Get(args[0])
			if err != nil {
				return MapError(err)
			}
			if showJSON {
				return writeJSON(out, sug)
			}
			printSuggestion(out, sug)
		case showSummary:
			view := summaryJSONOutput{
				Summary: s.Store.Summary(),
				Counts:  s.Store.Counts(),
				BatchID: s.Store.BatchID(),
			}
			if showJSON {
				return writeJSON(out, view)
			}
			printSummary(out, view)
		default:
			// The session flushes pending highlights on close; print what
			// will be saved.
			if s.Scheduler != nil {
				s.Scheduler.Flush()
			}
			_, _ = fmt.Fprintln(out, s.Document.Markup())
		}
		return nil
	},
}

type summaryJSONOutput struct {
	Summary suggestion.Summary `json:"summary"`
	Counts  application.Counts `json:"counts"`
	BatchID string             `json:"batch_id"`
}

func printSuggestion(w io.Writer, sug suggestion.Suggestion) {
	_, _ = fmt.Fprintf(w, "%s  [%s] %s\n", headerStyle.Render(sug.ID), sug.Type, styledStatus(sug))
	if sug.Category != "" || sug.Severity != "" {
		_, _ = fmt.Fprintf(w, "Category: %s  Severity: %s\n", dash(sug.Category), dash(sug.Severity))
	}
	if sug.Anchor != "" {
		_, _ = fmt.Fprintf(w, "Anchor:    %s\n", sug.Anchor)
	}
	if sug.Original != "" {
		_, _ = fmt.Fprintf(w, "Original:  %s\n", sug.Original)
	}
	if sug.Suggested != "" {
		_, _ = fmt.Fprintf(w, "Suggested: %s\n", sug.Suggested)
	}
	if sug.Note != "" {
		_, _ = fmt.Fprintf(w, "Note:      %s\n", sug.Note)
	}
}

func printSummary(w io.Writer, view summaryJSONOutput) {
	_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Score %d", view.Summary.Score)))
	if view.Summary.Overall != "" {
		_, _ = fmt.Fprintln(w, view.Summary.Overall)
	}
	if len(view.Summary.Strengths) > 0 {
		_, _ = fmt.Fprintf(w, "\nStrengths:\n  - %s\n", strings.Join(view.Summary.Strengths, "\n  - "))
	}
	if len(view.Summary.Weaknesses) > 0 {
		_, _ = fmt.Fprintf(w, "\nWeaknesses:\n  - %s\n", strings.Join(view.Summary.Weaknesses, "\n  - "))
	}
	c := view.Counts
	_, _ = fmt.Fprintf(w, "\nSuggestions: %d total, %d pending, %d accepted (%d applied), %d rejected\n",
		c.Total, c.Pending, c.Accepted, c.Applied, c.Rejected)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	showCmd.Flags().BoolVar(&showSummary, "summary", false, "Print the review summary and decision counts")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(showCmd)
}
