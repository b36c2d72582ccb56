package langserver

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/lifecycle"
	"github.com/teranos/bufkit/logger"
	"github.com/teranos/bufkit/workspace"
)

const (
	defaultInitializeTimeout = 30 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

// DefaultArgs starts the language server.
var DefaultArgs = []string{"lsp", "serve"}

var (
	// ErrNotRunning is returned by document operations while no server runs.
	ErrNotRunning = errors.New("buf language server is not running")
	// ErrDisabled is returned by Start when server.enabled is false.
	ErrDisabled = errors.New("buf language server is disabled")
)

// Config configures a Manager.
type Config struct {
	Lifecycle *lifecycle.Context
	// Root is the workspace root, used as cwd and rootUri.
	Root string
	// Workspace maps documents to module names. Optional.
	Workspace *workspace.Workspace
	// Enabled false keeps the server Disabled.
	Enabled bool
	// Args defaults to DefaultArgs.
	Args []string
	// Env is appended to the inherited environment of the server process.
	Env []string
	// MaxRestartsPerMinute bounds automatic restarts after a crash; 0 disables them.
	MaxRestartsPerMinute int

	InitializeTimeout time.Duration
	ShutdownTimeout   time.Duration
	Logger            *zap.SugaredLogger
}

// Manager owns the language server process. It implements the command
// dispatcher's ServerController.
type Manager struct {
	cfg     Config
	lc      *lifecycle.Context
	log     *zap.SugaredLogger
	limiter *rate.Limiter

	// opMu serializes Start/Stop/Restart
	opMu sync.Mutex

	mu       sync.Mutex
	client   *Client
	started  time.Time
	restarts int
	closed   bool
	watchers sync.WaitGroup
}

// NewManager validates cfg. It does not start anything.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Lifecycle == nil {
		return nil, errors.NewInvalidRequestError("language server manager requires a lifecycle context")
	}
	if len(cfg.Args) == 0 {
		cfg.Args = DefaultArgs
	}
	if cfg.InitializeTimeout <= 0 {
		cfg.InitializeTimeout = defaultInitializeTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("langserver")
	}

	m := &Manager{
		cfg: cfg,
		lc:  cfg.Lifecycle,
		log: cfg.Logger,
	}
	if cfg.MaxRestartsPerMinute > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(float64(cfg.MaxRestartsPerMinute)/60.0), cfg.MaxRestartsPerMinute)
	}
	if !cfg.Enabled {
		m.lc.SetStatus(lifecycle.StatusDisabled)
	}
	return m, nil
}

// Start launches and initializes the server. Starting a running server is a
// no-op. Without a detected tool it fails with ErrToolNotFound and leaves the
// status untouched; when disabled it fails with ErrDisabled.
func (m *Manager) Start(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.start(ctx)
}

func (m *Manager) start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.lc.SetStatus(lifecycle.StatusDisabled)
		return ErrDisabled
	}

	m.mu.Lock()
	running := m.client != nil
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return errors.New("language server manager is closed")
	}
	if running {
		return nil
	}

	tool := m.lc.Tool()
	if tool == nil {
		return errors.WithHint(
			errors.Wrap(errors.ErrToolNotFound, "cannot start buf language server"),
			"install buf or set buf.path, then run bufkit server-start")
	}

	m.lc.SetStatus(lifecycle.StatusStarting)
	output := m.lc.ServerOutput()
	output.Infow("Starting buf language server",
		logger.FieldBinary, tool.Path(),
		logger.FieldArgs, m.cfg.Args)

	client, err := startClient(clientSpec{
		Path: tool.Path(),
		Args: m.cfg.Args,
		Dir:  m.cfg.Root,
		Env:  m.cfg.Env,
	}, output)
	if err != nil {
		m.lc.SetStatus(lifecycle.StatusErrored)
		output.Errorw("Failed to launch buf language server", logger.FieldError, err.Error())
		return err
	}

	initCtx, cancel := context.WithTimeout(ctx, m.cfg.InitializeTimeout)
	defer cancel()
	if err := client.Initialize(initCtx, m.cfg.Root); err != nil {
		_ = client.ForceKill()
		m.lc.SetStatus(lifecycle.StatusErrored)
		output.Errorw("buf language server failed to initialize", logger.FieldError, err.Error())
		return err
	}

	m.mu.Lock()
	m.client = client
	m.started = time.Now()
	m.watchers.Add(1)
	m.mu.Unlock()

	m.log.Infow("buf language server running", logger.FieldPID, client.PID(), logger.FieldDir, m.cfg.Root)
	m.lc.SetStatus(lifecycle.StatusRunning)

	// Started after Running is published so a crash always lands on top of it
	go m.watch(client)
	return nil
}

// watch handles an exit that nobody asked for.
func (m *Manager) watch(c *Client) {
	defer m.watchers.Done()
	<-c.Done()

	m.mu.Lock()
	current := m.client == c
	if current {
		m.client = nil
	}
	closed := m.closed
	m.mu.Unlock()
	if !current {
		return
	}

	exitErr := c.ExitErr()
	m.lc.ServerOutput().Errorw("buf language server exited unexpectedly", logger.FieldPID, c.PID(), logger.FieldError, errString(exitErr))
	m.lc.ClearFiles()
	m.lc.SetStatus(lifecycle.StatusErrored)

	if closed || m.limiter == nil {
		return
	}
	if !m.limiter.Allow() {
		m.log.Warnw("Not restarting buf language server: restart limit reached",
			"max_restarts_per_minute", m.cfg.MaxRestartsPerMinute)
		return
	}

	m.mu.Lock()
	m.restarts++
	m.mu.Unlock()
	m.log.Infow("Restarting buf language server after crash")
	if err := m.Start(context.Background()); err != nil {
		m.log.Errorw("Automatic restart failed", logger.FieldError, err.Error())
	}
}

// Stop shuts the server down gracefully, killing it if the handshake fails.
func (m *Manager) Stop(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.stop(ctx)
}

func (m *Manager) stop(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client == nil {
		if m.cfg.Enabled {
			m.lc.SetStatus(lifecycle.StatusStopped)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()

	var result error
	if err := client.Shutdown(shutdownCtx); err != nil {
		m.log.Warnw("Graceful buf lsp shutdown failed, attempting force kill", logger.FieldError, err.Error())
		if killErr := client.ForceKill(); killErr != nil {
			result = errors.Wrapf(err, "buf lsp shutdown failed and force kill also failed (kill err: %v)", killErr)
		}
	}

	m.lc.ClearFiles()
	m.lc.ServerOutput().Infow("buf language server stopped", logger.FieldPID, client.PID())
	if result != nil {
		m.lc.SetStatus(lifecycle.StatusErrored)
		return result
	}
	m.lc.SetStatus(lifecycle.StatusStopped)
	return nil
}

// Restart is Stop followed by Start.
func (m *Manager) Restart(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.stop(ctx); err != nil {
		return err
	}
	return m.start(ctx)
}

// Running reports whether a server process is up.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

// PID of the running server, or 0.
func (m *Manager) PID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return 0
	}
	return m.client.PID()
}

// Restarts counts automatic restarts since the Manager was created.
func (m *Manager) Restarts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts
}

// DidOpen forwards a document open and records it as tracked.
func (m *Manager) DidOpen(path, text string) error {
	client := m.current()
	if client == nil {
		return ErrNotRunning
	}
	if err := client.DidOpen(path, text); err != nil {
		return err
	}

	module := ""
	if m.cfg.Workspace != nil {
		module = m.cfg.Workspace.ModuleName(path)
	}
	m.lc.TrackFile(lifecycle.TrackedFile{Path: path, Module: module})
	m.log.Debugw("Document opened", logger.FieldPath, path, logger.FieldModule, module)
	return nil
}

// DidOpenFile reads path from disk and opens it.
func (m *Manager) DidOpenFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	return m.DidOpen(path, string(data))
}

// DidClose forwards a document close and drops it from the registry.
func (m *Manager) DidClose(path string) error {
	client := m.current()
	if client == nil {
		m.lc.UntrackFile(path)
		return ErrNotRunning
	}
	m.lc.UntrackFile(path)
	return client.DidClose(path)
}

func (m *Manager) current() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// Close stops the server and disables automatic restarts.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	err := m.Stop(ctx)
	m.watchers.Wait()
	return err
}

func errString(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
