package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/bufkit/am"
	"github.com/teranos/bufkit/cmd/bufkit/commands"
	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/logger"
)

var rootCmd = &cobra.Command{
	Use:   "bufkit",
	Short: "bufkit - Buf commands and language server lifecycle",
	Long: `bufkit - run buf commands and manage the Buf language server.

Available commands:
  generate, lint, build, format  - Run buf in the workspace root
  dep update                     - Update buf.lock
  run                            - Run a custom command from buf.commands_file
  lsp                            - Run the Buf language server with a live status line
  status                         - Show buf detection and available commands
  mcp                            - Serve commands as MCP tools over stdio
  am                             - Manage bufkit configuration

Examples:
  bufkit generate
  bufkit run --list
  bufkit lsp --open proto/acme/v1/user.proto
  bufkit am set buf.path /opt/buf/bin/buf`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")

		jsonOutput := false
		if cfg, err := am.Load(); err == nil {
			jsonOutput = cfg.Log.JSON
			logger.SetTheme(cfg.Log.Theme)
		}

		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.LintCmd)
	rootCmd.AddCommand(commands.BuildCmd)
	rootCmd.AddCommand(commands.FormatCmd)
	rootCmd.AddCommand(commands.DepCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.LspCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.McpCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, commands.ErrCommandFailed) {
			fmt.Fprintln(os.Stderr, err)
			if hints := errors.FlattenHints(err); hints != "" {
				fmt.Fprintln(os.Stderr, "hint:", hints)
			}
		}
		logger.Cleanup()
		os.Exit(1)
	}
}
