package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgebridge/bitbucket-mcp/internal/mcptools"
)

// NewServeCommand creates the serve command
func NewServeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Run the MCP server, speaking the protocol over stdin/stdout.

Logs go to stderr so the protocol stream stays clean. Point an MCP-capable
assistant at this command to give it Bitbucket tools.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, logger, err := createClient()
			if err != nil {
				return err
			}
			defer logger.Sync()

			server := mcptools.New(client, logger, version)

			logger.Info("starting MCP server", map[string]interface{}{
				"variant": string(client.Variant()),
			})

			if err := server.Run(); err != nil {
				return fmt.Errorf("running MCP server: %w", err)
			}

			return nil
		},
	}
}
