package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/internal/infrastructure/logging"
	"github.com/felixgeelhaar/redline/internal/infrastructure/wiring"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a session open and follow host edits of the document and feedback",
	Long: `Keep a review session open and reload the document or the feedback
whenever another program rewrites them in the workspace. A rewritten
feedback file starts a new batch. Highlights expire on their timer while
the session runs. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(true)

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes... (Ctrl+C to stop)\n", s.Workspace.Repo.Dir())
		if err := s.Watch(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("watch failed: %w", err)
		}
		return nil
	},
}

// followHostEdits runs the session watcher until ctx ends. Failures are
// logged because the server it runs beside keeps going without it.
func followHostEdits(ctx context.Context, s *wiring.Session) {
	go func() {
		if err := s.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Component("watch").Warn().Err(err).Msg("watch stopped")
		}
	}()
}

func init() {
	RootCmd.AddCommand(watchCmd)
}
