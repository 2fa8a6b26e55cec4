package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stripCmd = &cobra.Command{
	Use:   "strip",
	Short: "Remove every highlight marker from the document",
	Long: `Remove every highlight marker from the saved document, keeping the
highlighted text. Use it after 'redline accept --keep-highlight' or when a
session ended without clearing its markers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(false)

		n, err := s.Strip(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to strip markers: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d highlight markers\n", n)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(stripCmd)
}
