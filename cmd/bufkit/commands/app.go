package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/teranos/bufkit/am"
	bufcmd "github.com/teranos/bufkit/commands"
	"github.com/teranos/bufkit/detect"
	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/langserver"
	"github.com/teranos/bufkit/lifecycle"
	"github.com/teranos/bufkit/logger"
	"github.com/teranos/bufkit/runner"
	"github.com/teranos/bufkit/workspace"
)

// ErrCommandFailed is returned by subcommands whose outcome was already
// reported; main exits non-zero without printing it again.
var ErrCommandFailed = errors.New("command failed")

// AppOptions controls which parts of the runtime NewApp assembles
type AppOptions struct {
	// Server creates a language server manager and registers the server commands
	Server bool
	// Executor runs buf; nil uses the operating system
	Executor runner.Executor
	// Log receives command outcomes; nil prints to stdout and stderr
	Log bufcmd.Log
	// ServerOutput overrides log.server_log_path
	ServerOutput io.Writer
	// Detector overrides buf detection (tests)
	Detector *detect.Detector
}

// App is the assembled runtime shared by every subcommand: one lifecycle
// context, the detected tool, the workspace and the dispatcher.
type App struct {
	Config     *am.Config
	Root       string
	Lifecycle  *lifecycle.Context
	Detector   *detect.Detector
	Workspace  *workspace.Workspace
	Server     *langserver.Manager
	Dispatcher *bufcmd.Dispatcher

	executor runner.Executor
	log      *zap.SugaredLogger
	mu       sync.Mutex
}

// NewApp wires the runtime from cfg. Detection failures are not errors:
// the lifecycle context simply has no tool, and commands report it.
func NewApp(ctx context.Context, cfg *am.Config, opts AppOptions) (*App, error) {
	log := logger.ComponentLogger("app")

	root, err := workspace.ResolveRoot(cfg.Workspace.Root)
	if err != nil {
		return nil, err
	}
	if found, err := workspace.FindRoot(root); err == nil {
		root = found
	}

	output := opts.ServerOutput
	if output == nil {
		output, err = openServerLog(cfg.Log.ServerLogPath)
		if err != nil {
			return nil, err
		}
	}

	lc := lifecycle.New(
		lifecycle.WithServerOutput(output),
		lifecycle.WithLogger(logger.ComponentLogger("lifecycle")),
	)

	executor := opts.Executor
	if executor == nil {
		executor = runner.NewOS(logger.ComponentLogger("runner"))
	}

	app := &App{
		Config:    cfg,
		Root:      root,
		Lifecycle: lc,
		executor:  executor,
		log:       log,
	}

	app.Detector = opts.Detector
	if app.Detector == nil {
		app.Detector, err = newDetector(cfg, executor)
		if err != nil {
			lc.Close()
			return nil, err
		}
	}
	app.Detector.Refresh(ctx, lc)

	app.Workspace, err = workspace.Load(root)
	if err != nil {
		log.Warnw("Failed to read buf workspace configuration", logger.FieldPath, root, logger.FieldError, err.Error())
		app.Workspace = &workspace.Workspace{Root: root}
	}

	dispatcherLog := opts.Log
	if dispatcherLog == nil {
		dispatcherLog = NewConsoleLog(os.Stdout, os.Stderr)
	}

	dcfg := bufcmd.Config{
		Lifecycle: lc,
		Executor:  executor,
		Root:      root,
		Log:       dispatcherLog,
		Logger:    logger.ComponentLogger("commands"),
	}

	if opts.Server {
		app.Server, err = langserver.NewManager(langserver.Config{
			Lifecycle:            lc,
			Root:                 root,
			Workspace:            app.Workspace,
			Enabled:              cfg.Server.Enabled,
			Args:                 cfg.Server.Args,
			MaxRestartsPerMinute: cfg.Server.MaxRestartsPerMinute,
			Logger:               logger.ComponentLogger("langserver"),
		})
		if err != nil {
			lc.Close()
			return nil, err
		}
		dcfg.Server = app.Server
	}

	app.Dispatcher, err = bufcmd.NewDispatcher(dcfg)
	if err != nil {
		lc.Close()
		return nil, err
	}
	if err := app.registerCommands(); err != nil {
		app.Close(ctx)
		return nil, err
	}

	return app, nil
}

func newDetector(cfg *am.Config, executor runner.Executor) (*detect.Detector, error) {
	return detect.New(detect.Config{
		Path:         cfg.Buf.Path,
		VersionRange: cfg.Buf.VersionRange,
		Executor:     executor,
		Logger:       logger.ComponentLogger("detect"),
	})
}

func (a *App) registerCommands() error {
	for _, cmd := range bufcmd.Builtins() {
		if err := a.Dispatcher.Register(cmd); err != nil {
			return err
		}
	}
	if a.Server != nil {
		for _, cmd := range bufcmd.ServerCommands() {
			if err := a.Dispatcher.Register(cmd); err != nil {
				return err
			}
		}
	}

	if a.Config.Buf.CommandsFile == "" {
		return nil
	}
	path := a.Config.Buf.CommandsFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.Root, path)
	}
	custom, err := bufcmd.LoadCustomFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to load custom commands")
	}
	for _, cmd := range custom {
		if err := a.Dispatcher.Register(cmd); err != nil {
			return err
		}
	}
	a.log.Debugw("Registered custom commands", logger.FieldPath, path, "count", len(custom))
	return nil
}

// Redetect rebuilds the detector from cfg and refreshes the tool. It is
// the config watcher's reload callback.
func (a *App) Redetect(ctx context.Context, cfg *am.Config) error {
	d, err := newDetector(cfg, a.executor)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.Detector = d
	a.Config = cfg
	a.mu.Unlock()

	d.Refresh(ctx, a.Lifecycle)
	return nil
}

// Run executes one dispatcher command and converts a failed outcome into
// ErrCommandFailed.
func (a *App) Run(ctx context.Context, name string) error {
	out, err := a.Dispatcher.Execute(ctx, name)
	if err != nil {
		return err
	}
	if !out.OK() {
		return ErrCommandFailed
	}
	return nil
}

// Close stops the language server, detaches the dispatcher and releases
// the server output.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.Server != nil {
		err = a.Server.Close(ctx)
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if cerr := a.Lifecycle.Close(); err == nil {
		err = cerr
	}
	return err
}

func openServerLog(path string) (io.Writer, error) {
	if path == "" {
		return io.Discard, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), am.DefaultDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, am.DefaultFilePermissions)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open server log %s", path)
	}
	return f, nil
}

// ConsoleLog prints successful outcomes to out and failures to errOut
type ConsoleLog struct {
	out    io.Writer
	errOut io.Writer
}

// NewConsoleLog returns a Log sink for terminal use
func NewConsoleLog(out, errOut io.Writer) *ConsoleLog {
	return &ConsoleLog{out: out, errOut: errOut}
}

func (l *ConsoleLog) Info(args ...interface{}) {
	fmt.Fprintln(l.out, fmt.Sprint(args...))
}

func (l *ConsoleLog) Error(args ...interface{}) {
	fmt.Fprintln(l.errOut, pterm.Red("✗ ")+fmt.Sprint(args...))
}
