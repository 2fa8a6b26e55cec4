package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/pkg/application"
)

var (
	acceptKeepHighlight bool
	decideJSON          bool
)

var acceptCmd = &cobra.Command{
	Use:   "accept <id>...",
	Short: "Accept suggestions and apply them to the document",
	Long: `Accept one or more pending suggestions. Each accepted edit is applied to
the document when its target can be found; otherwise the suggestion is still
accepted and left for manual editing.

The applied text is wrapped in a highlight marker that a one-shot command
strips before saving. Pass --keep-highlight to leave the markers in the saved
document until 'redline strip' or the next session removes them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(!acceptKeepHighlight)

		var outcomes []application.Outcome
		var errs []error
		for _, id := range args {
			o, err := s.Store.Accept(cmd.Context(), id)
			if err != nil {
				errs = append(errs, MapError(err))
				continue
			}
			outcomes = append(outcomes, o)
		}

		out := cmd.OutOrStdout()
		if decideJSON {
			if err := writeJSON(out, outcomes); err != nil {
				return err
			}
		} else {
			for _, o := range outcomes {
				printOutcome(out, o)
			}
		}
		return errors.Join(errs...)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>...",
	Short: "Reject suggestions without touching the document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(true)

		var rejected []string
		var errs []error
		for _, id := range args {
			if err := s.Store.Reject(cmd.Context(), id); err != nil {
				errs = append(errs, MapError(err))
				continue
			}
			rejected = append(rejected, id)
		}

		out := cmd.OutOrStdout()
		if decideJSON {
			if err := writeJSON(out, map[string][]string{"rejected": rejected}); err != nil {
				return err
			}
		} else {
			for _, id := range rejected {
				_, _ = fmt.Fprintf(out, "%s rejected\n", id)
			}
		}
		return errors.Join(errs...)
	},
}

func printOutcome(w io.Writer, o application.Outcome) {
	switch {
	case o.Applied && o.Appended:
		_, _ = fmt.Fprintf(w, "%s accepted and appended to the document\n", o.ID)
	case o.Applied:
		_, _ = fmt.Fprintf(w, "%s accepted and applied\n", o.ID)
	default:
		_, _ = fmt.Fprintf(w, "%s accepted; apply it manually (%s)\n", o.ID, o.Reason)
	}
	if o.Note != "" {
		_, _ = fmt.Fprintf(w, "  note: %s\n", o.Note)
	}
}

func init() {
	acceptCmd.Flags().BoolVar(&acceptKeepHighlight, "keep-highlight", false, "Leave highlight markers in the saved document")
	acceptCmd.Flags().BoolVar(&decideJSON, "json", false, "Output in JSON format")
	rejectCmd.Flags().BoolVar(&decideJSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(acceptCmd)
	RootCmd.AddCommand(rejectCmd)
}
