package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teranos/bufkit/am"
	bufcmd "github.com/teranos/bufkit/commands"
	"github.com/teranos/bufkit/errors"
)

// GenerateCmd runs buf generate in the workspace root
var GenerateCmd = toolCmd(bufcmd.Generate, "generate", "Generate code with buf generate")

// LintCmd runs buf lint
var LintCmd = toolCmd(bufcmd.Lint, "lint", "Lint Protobuf files with buf lint")

// BuildCmd runs buf build
var BuildCmd = toolCmd(bufcmd.Build, "build", "Build Protobuf files with buf build")

// FormatCmd runs buf format --write
var FormatCmd = toolCmd(bufcmd.Format, "format", "Format Protobuf files in place with buf format")

// DepCmd groups dependency commands
var DepCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage buf module dependencies",
}

// RunCmd runs a custom command from buf.commands_file
var RunCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Run a custom buf command",
	Long: `Run a command declared in the custom commands file (buf.commands_file).

Example bufkit.toml:

  [buf]
  commands_file = "buf-commands.toml"

Example buf-commands.toml:

  [[command]]
  name = "breaking"
  description = "Check for breaking changes against main"
  args = "breaking --against '.git#branch=main'"`,
	Args: func(cmd *cobra.Command, args []string) error {
		if runList {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), AppOptions{}, func(app *App) error {
			if runList {
				printCommandList(cmd.OutOrStdout(), app.Dispatcher)
				return nil
			}
			if _, ok := app.Dispatcher.Lookup(args[0]); !ok {
				return errors.WithHint(
					errors.NewNotFoundError("unknown command %q", args[0]),
					"bufkit run --list shows the available commands",
				)
			}
			return app.Run(cmd.Context(), args[0])
		})
	},
}

var runList bool

func init() {
	DepCmd.AddCommand(toolCmd(bufcmd.DepUpdate, "update", "Update buf.lock with buf dep update"))

	RunCmd.Flags().BoolVar(&runList, "list", false, "List available commands and exit")
}

func toolCmd(name, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), AppOptions{}, func(app *App) error {
				return app.Run(cmd.Context(), name)
			})
		},
	}
}

// withApp loads configuration, assembles an App, runs fn and tears it down
func withApp(ctx context.Context, opts AppOptions, fn func(*App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	app, err := NewApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	return fn(app)
}

// printCommandList writes one line per command, marking enabled ones
func printCommandList(w io.Writer, d *bufcmd.Dispatcher) {
	for _, c := range d.Commands() {
		state := " "
		if d.Enabled(c.Name()) {
			state = "✓"
		}
		fmt.Fprintf(w, "%s %-16s %s\n", state, c.Name(), c.Description())
	}
}
