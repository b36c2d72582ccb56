package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/bufkit/logger"
	"github.com/teranos/bufkit/mcpserver"
)

// McpCmd serves buf commands over the Model Context Protocol on stdio
var McpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve buf commands as MCP tools over stdio",
	Long: `Expose every bufkit command (generate, lint, custom commands, ...) as an
MCP tool named buf_<command>, plus buf_status and buf_commands.

Command output goes to the MCP client; logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := AppOptions{
			// stdout belongs to the MCP transport
			Log: logger.ComponentLogger("outcome"),
		}
		return withApp(cmd.Context(), opts, func(app *App) error {
			srv, err := mcpserver.New(mcpserver.Config{
				Dispatcher: app.Dispatcher,
				Lifecycle:  app.Lifecycle,
				Logger:     logger.ComponentLogger("mcp"),
			})
			if err != nil {
				return err
			}
			return srv.Serve()
		})
	},
}
