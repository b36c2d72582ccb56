package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/bufkit/am"
	bufcmd "github.com/teranos/bufkit/commands"
	"github.com/teranos/bufkit/lifecycle"
	"github.com/teranos/bufkit/logger"
	"github.com/teranos/bufkit/status"
)

// LspCmd runs the buf language server under bufkit's lifecycle management
var LspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the Buf language server with a live status line",
	Long: `Start buf lsp serve for the workspace and keep it running.

The status indicator is re-rendered on every lifecycle change. Crashed
servers are restarted up to server.max_restarts_per_minute times. Config
file edits re-run buf detection without restarting bufkit.

Press Ctrl+C to stop the server gracefully; press it again to force exit.`,
	Args: cobra.NoArgs,
	RunE: runLsp,
}

var lspOpen []string

func init() {
	LspCmd.Flags().StringSliceVar(&lspOpen, "open", nil, "Proto files to open in the server once it is running")
}

func runLsp(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := am.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := NewApp(ctx, cfg, AppOptions{Server: true})
	if err != nil {
		return err
	}

	verbosity, _ := cmd.Flags().GetCount("verbose")
	if tool := app.Lifecycle.Tool(); tool != nil && logger.ShouldOutput(verbosity, logger.OutputToolInfo) {
		pterm.Info.Printf("Using buf %v at %s\n", tool.Version(), tool.Path())
	}

	out := cmd.ErrOrStderr()
	indicator := status.Activate(app.Lifecycle, status.OnRender(func(snap status.Snapshot) {
		status.Render(out, snap)
	}))
	defer indicator.Close()

	stopWatcher := watchConfig(ctx, app)
	defer stopWatcher()

	if cfg.Server.Enabled {
		if err := app.Run(ctx, bufcmd.ServerStart); err == nil {
			for _, path := range lspOpen {
				if err := app.Server.DidOpenFile(path); err != nil {
					pterm.Warning.Printf("Could not open %s: %v\n", path, err)
				}
			}
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	<-sigChan
	pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")
	if stats, err := app.Server.Stats(); err == nil && logger.ShouldOutput(verbosity, logger.OutputServerStatus) {
		pterm.Info.Printf("buf lsp pid %d: up %s, %.1f MiB RSS, %d restarts\n",
			stats.PID, stats.Uptime.Round(time.Second), float64(stats.RSSBytes)/(1<<20), stats.Restarts)
	}

	done := make(chan error, 1)
	go func() {
		done <- app.Close(context.Background())
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		pterm.Success.Println("Buf language server stopped cleanly")
		return nil
	case <-sigChan:
		pterm.Warning.Println("Force shutdown - exiting immediately")
		os.Exit(1)
		return nil
	}
}

// watchConfig re-runs detection when any config file changes and starts the
// server if that made buf available. It returns a function that stops the watcher.
func watchConfig(ctx context.Context, app *App) func() {
	cw, err := am.NewConfigWatcher(am.DefaultWatchPaths()...)
	if err != nil {
		logger.Debugw("Config watching unavailable", logger.FieldError, err.Error())
		return func() {}
	}

	cw.OnReload(func(cfg *am.Config) error {
		if err := app.Redetect(ctx, cfg); err != nil {
			return err
		}
		st := app.Lifecycle.Status()
		if app.Lifecycle.Tool() != nil && (st == lifecycle.StatusStopped || st == lifecycle.StatusErrored) {
			_ = app.Run(ctx, bufcmd.ServerStart)
		}
		return nil
	})

	am.SetGlobalWatcher(cw)
	cw.Start()

	return func() {
		am.SetGlobalWatcher(nil)
		_ = cw.Stop()
	}
}
