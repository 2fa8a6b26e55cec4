package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/pkg/domain/events"
)

var (
	historyAll        bool
	historySuggestion string
	historyType       string
	historyLimit      int
	historyJSON       bool
	historyVerify     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the event journal of the review session",
	Long: `Show the hash-chained event journal. By default only the current
session is shown; --all includes earlier sessions of the workspace and
--suggestion follows one suggestion across all of them.

Examples:
  redline history
  redline history --type suggestion.accepted
  redline history --suggestion s2
  redline history --all --limit 20
  redline history --verify`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if historyVerify {
			broken, err := ws.Journal.VerifyIntegrity()
			if err != nil {
				return fmt.Errorf("failed to read journal: %w", err)
			}
			if broken >= 0 {
				return NewCLIError(fmt.Sprintf("journal chain broken at record %d", broken),
					"The events file was edited or truncated outside redline", nil)
			}
			_, _ = fmt.Fprintln(out, "Journal chain intact")
			return nil
		}

		var records []*events.BaseEvent
		switch {
		case historySuggestion != "":
			records, err = ws.Journal.LoadSuggestion(historySuggestion)
		case historyAll:
			records, err = ws.Journal.LoadAll()
		default:
			info, lerr := ws.Repo.LoadSession()
			if lerr != nil {
				return lerr
			}
			records, err = ws.Journal.LoadSession(info.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}

		records = filterRecords(records, historyType, historyLimit)
		if historyJSON {
			return writeJSON(out, records)
		}
		if len(records) == 0 {
			_, _ = fmt.Fprintln(out, "No events recorded.")
			return nil
		}
		for _, r := range records {
			_, _ = fmt.Fprintf(out, "%s  %-22s %s%s\n",
				r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Type, r.AggregateID_, formatMetadata(r.Metadata))
		}
		return nil
	},
}

// filterRecords keeps records of eventType (all when empty) and then the
// last limit of them (all when limit is not positive).
func filterRecords(records []*events.BaseEvent, eventType string, limit int) []*events.BaseEvent {
	if eventType != "" {
		kept := records[:0:0]
		for _, r := range records {
			if r.Type == eventType {
				kept = append(kept, r)
			}
		}
		records = kept
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records
}

func formatMetadata(md map[string]any) string {
	if len(md) == 0 {
		return ""
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, md[k]))
	}
	return "  " + strings.Join(parts, " ")
}

func init() {
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Include earlier sessions")
	historyCmd.Flags().StringVarP(&historySuggestion, "suggestion", "s", "", "Only show events of this suggestion, across sessions")
	historyCmd.Flags().StringVarP(&historyType, "type", "t", "", "Only show events of this type")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show only the last n events")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output in JSON format")
	historyCmd.Flags().BoolVar(&historyVerify, "verify", false, "Verify the journal hash chain instead of listing it")
	RootCmd.AddCommand(historyCmd)
}
