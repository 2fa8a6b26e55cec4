package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/redline/internal/infrastructure/logging"
	"github.com/felixgeelhaar/redline/pkg/infrastructure/dashboard"
)

var (
	serveAddr    string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review page with live updates",
	Long: `Serve the document and its suggestions in the browser. Accept and reject
buttons apply decisions to the live document, and the page follows every
change over a server-sent event stream at /events. Host edits of the
workspace files are picked up unless --no-watch is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(true)

		srv, err := dashboard.NewServer(serveAddr, s.Store, s.Stream, logging.Component("http"))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if !serveNoWatch {
			followHostEdits(ctx, s)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Review server listening on %s (Ctrl+C to stop)\n", serveAddr)

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:7878", "Address to listen on")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not follow host edits of the workspace files")
	RootCmd.AddCommand(serveCmd)
}
