package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	inframcp "github.com/felixgeelhaar/redline/internal/infrastructure/mcp"
)

var (
	mcpTransport string
	mcpAddr      string
	mcpWatch     bool
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Redline MCP server",
	Long: `Expose the review session to an MCP client. The stdio transport is meant
for agents that launch redline themselves; http and ws listen on --addr.
Logs go to stderr so they never mix with the stdio protocol stream.
With --watch, host edits of the document or feedback reload the session
while the client works.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(true)

		server, err := inframcp.NewServer(s)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if mcpWatch {
			followHostEdits(ctx, s)
		}

		switch strings.ToLower(mcpTransport) {
		case "stdio", "":
			return server.ServeStdio(ctx)
		case "http":
			return server.ServeHTTP(ctx, mcpAddr)
		case "ws", "websocket":
			return server.ServeWebSocket(ctx, mcpAddr)
		default:
			return fmt.Errorf("unsupported transport: %s", mcpTransport)
		}
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio, http, ws)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8080", "Address for http/ws transports")
	mcpCmd.Flags().BoolVar(&mcpWatch, "watch", false, "Reload the session when the host edits the workspace files")
	RootCmd.AddCommand(mcpCmd)
}
