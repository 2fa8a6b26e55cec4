package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/internal/infrastructure/wiring"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init <document.html|->",
	Short: "Create a review workspace for an HTML document",
	Long: `Create a .redline workspace holding a copy of the document, a default
config.yaml and a fresh review session. Use '-' to read the document from
stdin. An existing workspace is only replaced with --force; its config is
kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		root, err := workspaceRoot()
		if err != nil {
			return err
		}

		ws, err := wiring.InitWorkspace(root, string(data), initForce)
		if err != nil {
			return MapError(fmt.Errorf("failed to initialize workspace: %w", err))
		}
		session, err := ws.Repo.LoadSession()
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Initialized redline workspace in %s (session %s)\n",
			filepath.Clean(ws.Repo.Dir()), session.ID)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Replace an existing workspace document and session")
	RootCmd.AddCommand(initCmd)
}
