package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/pkg/domain/suggestion"
)

var intakeJSON bool

var intakeCmd = &cobra.Command{
	Use:   "intake <feedback.json|->",
	Short: "Replace the suggestion batch with a feedback payload",
	Long: `Read a feedback payload, store it in the workspace and make it the current
batch. Earlier decisions are forgotten. Records that are malformed, use an
unknown edit type or repeat an id are refused and reported; the rest of the
batch is admitted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		fb, err := suggestion.ParseFeedback(data)
		if err != nil {
			return MapError(err)
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(true)

		report, err := s.Intake(cmd.Context(), fb)
		if err != nil && len(report.Refused) == 0 {
			return MapError(fmt.Errorf("failed to intake feedback: %w", err))
		}

		out := cmd.OutOrStdout()
		if intakeJSON {
			return writeJSON(out, intakeView(report.BatchID, report.Admitted, report.Refused))
		}

		_, _ = fmt.Fprintf(out, "Batch %s: %d admitted, %d refused\n", report.BatchID, len(report.Admitted), len(report.Refused))
		for _, r := range report.Refused {
			_, _ = fmt.Fprintf(out, "  refused %s\n", r.Error())
		}
		return nil
	},
}

type refusedJSON struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
}

type intakeJSONOutput struct {
	BatchID  string        `json:"batch_id"`
	Admitted []string      `json:"admitted"`
	Refused  []refusedJSON `json:"refused"`
}

func intakeView(batchID string, admitted []string, refused []*suggestion.IntakeError) intakeJSONOutput {
	view := intakeJSONOutput{BatchID: batchID, Admitted: admitted, Refused: []refusedJSON{}}
	for _, r := range refused {
		kind := "malformed"
		if errors.Is(r, suggestion.ErrDuplicateID) {
			kind = "duplicate"
		}
		view.Refused = append(view.Refused, refusedJSON{Index: r.Index, ID: r.ID, Reason: r.Reason, Kind: kind})
	}
	return view
}

func init() {
	intakeCmd.Flags().BoolVar(&intakeJSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(intakeCmd)
}
