package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/felixgeelhaar/redline/internal/infrastructure/mcp"
)

var openapiOutput string

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Describe the MCP tools as an OpenAPI 3.0 document",
	Long: `Print an OpenAPI 3.0 document with one POST /tools/<name> operation per
MCP tool, including the errors each tool can answer with and the feedback
payload schema. Use --output to write it to a file instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close(true)

		srv, err := mcpserver.NewServer(s)
		if err != nil {
			return MapError(fmt.Errorf("failed to initialize server: %w", err))
		}
		doc, err := srv.OpenAPI()
		if err != nil {
			return MapError(fmt.Errorf("failed to generate OpenAPI document: %w", err))
		}

		if openapiOutput == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return err
		}
		if err := os.WriteFile(openapiOutput, append(doc, '\n'), 0644); err != nil {
			return MapError(fmt.Errorf("failed to write %s: %w", openapiOutput, err))
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", openapiOutput)
		return nil
	},
}

func init() {
	openapiCmd.Flags().StringVarP(&openapiOutput, "output", "o", "", "Write the document to this file")
	RootCmd.AddCommand(openapiCmd)
}
