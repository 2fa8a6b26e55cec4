package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/internal/infrastructure/config"
	"github.com/felixgeelhaar/redline/internal/infrastructure/logging"
	"github.com/felixgeelhaar/redline/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/redline/pkg/storage"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	workspaceDir string
	logLevel     string
	logJSON      bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "redline",
	Version: Version,
	Short:   "Apply reviewer suggestions to an HTML document one decision at a time",
	Long: `Redline takes a batch of review suggestions for an HTML document and
lets you accept or reject them one by one. Accepted edits are applied to
the live document and briefly highlighted; rejected ones leave it alone.

Start with 'redline init <document.html>', hand it feedback with
'redline intake <feedback.json>', then review with 'redline list',
'redline accept <id>' and 'redline reject <id>', or open the browser view
with 'redline serve'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(resolveLogLevel(), cmd.ErrOrStderr(), !logJSON)
	},
}

// Execute runs the root command until it returns or the process is
// interrupted. Errors are printed with their hints.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := RootCmd.ExecuteContext(ctx)
	if err != nil {
		PrintError(RootCmd.ErrOrStderr(), MapError(err))
	}
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&workspaceDir, "dir", "C", "", "Directory holding the .redline workspace (default: current directory)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON instead of console text")
	RootCmd.SetVersionTemplate("redline {{.Version}} (commit " + Commit + ", built " + Date + ")\n")
}

func workspaceRoot() (string, error) {
	if workspaceDir != "" {
		return workspaceDir, nil
	}
	return os.Getwd()
}

// resolveLogLevel prefers the flag, then the workspace config.
func resolveLogLevel() string {
	if logLevel != "" {
		return logLevel
	}
	root, err := workspaceRoot()
	if err != nil {
		return config.Default().LogLevel
	}
	cfg, err := config.Load(storage.NewFilesystemRepository(root))
	if err != nil {
		return config.Default().LogLevel
	}
	return cfg.LogLevel
}

// openSession opens the workspace session for a one-shot command.
func openSession(cmd *cobra.Command) (*wiring.Session, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}
	s, err := wiring.OpenSession(cmd.Context(), root)
	if err != nil {
		return nil, MapError(err)
	}
	return s, nil
}

func openWorkspace() (*wiring.Workspace, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}
	ws, err := wiring.NewWorkspace(root)
	if err != nil {
		return nil, MapError(err)
	}
	return ws, nil
}
