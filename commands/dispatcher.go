package commands

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/lifecycle"
	"github.com/teranos/bufkit/logger"
	"github.com/teranos/bufkit/runner"
)

// Log is the outcome sink. *zap.SugaredLogger satisfies it.
type Log interface {
	Info(args ...interface{})
	Error(args ...interface{})
}

// Config configures a Dispatcher.
type Config struct {
	Lifecycle *lifecycle.Context
	Executor  runner.Executor
	// Root is the working directory for every buf invocation.
	Root   string
	Log    Log
	Server ServerController
	// Logger receives debug diagnostics; outcomes go to Log.
	Logger *zap.SugaredLogger
}

// Dispatcher owns the command registry and keeps a gate of which commands
// are currently enabled, recomputed on every lifecycle notification.
type Dispatcher struct {
	env    *Env
	log    Log
	logger *zap.SugaredLogger

	mu       sync.RWMutex
	commands map[string]Command
	order    []string
	enabled  map[string]bool

	unsubscribe func()
}

// NewDispatcher creates a dispatcher bound to cfg.Lifecycle and subscribes
// its command gate. Built-in commands are not registered; see RegisterBuiltins.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Lifecycle == nil {
		return nil, errors.NewInvalidRequestError("dispatcher requires a lifecycle context")
	}
	if cfg.Executor == nil {
		cfg.Executor = runner.NewOS(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("commands")
	}
	if cfg.Log == nil {
		cfg.Log = cfg.Logger
	}

	d := &Dispatcher{
		env: &Env{
			Lifecycle: cfg.Lifecycle,
			Executor:  cfg.Executor,
			Root:      cfg.Root,
			Server:    cfg.Server,
		},
		log:      cfg.Log,
		logger:   cfg.Logger,
		commands: make(map[string]Command),
		enabled:  make(map[string]bool),
	}
	d.unsubscribe = cfg.Lifecycle.Subscribe(d.refreshGate)
	return d, nil
}

// RegisterBuiltins registers the standard tool and server commands.
func (d *Dispatcher) RegisterBuiltins() error {
	for _, cmd := range append(Builtins(), ServerCommands()...) {
		if err := d.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Register adds cmd. Names must be unique.
func (d *Dispatcher) Register(cmd Command) error {
	name := cmd.Name()
	if name == "" {
		return errors.NewInvalidRequestError("command name must not be empty")
	}

	d.mu.Lock()
	if _, exists := d.commands[name]; exists {
		d.mu.Unlock()
		return errors.NewConflictError("command %q is already registered", name)
	}
	d.commands[name] = cmd
	d.order = append(d.order, name)
	d.mu.Unlock()

	d.refreshGate()
	return nil
}

// Commands returns the registered commands in registration order.
func (d *Dispatcher) Commands() []Command {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Command, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.commands[name])
	}
	return out
}

// Lookup returns the command registered under name.
func (d *Dispatcher) Lookup(name string) (Command, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cmd, ok := d.commands[name]
	return cmd, ok
}

// Enabled reports whether the gate currently allows name. Tool commands are
// enabled while a tool is detected; server commands follow the server status.
func (d *Dispatcher) Enabled(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled[name]
}

// EnabledCommands returns the names currently enabled, sorted.
func (d *Dispatcher) EnabledCommands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var names []string
	for name, ok := range d.enabled {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// refreshGate recomputes the gate. The lifecycle state is read while d.mu is
// held so that the last refresh to run always sees the latest state.
func (d *Dispatcher) refreshGate() {
	d.mu.Lock()
	defer d.mu.Unlock()

	lc := d.env.Lifecycle
	hasTool := lc.Tool() != nil
	status := lc.Status()
	for name, cmd := range d.commands {
		if cmd.RequiresTool() {
			d.enabled[name] = hasTool
			continue
		}
		d.enabled[name] = serverCommandEnabled(name, status)
	}
}

func serverCommandEnabled(name string, status lifecycle.ServerStatus) bool {
	switch name {
	case ServerStart:
		return status == lifecycle.StatusStopped || status == lifecycle.StatusErrored
	case ServerStop:
		return status == lifecycle.StatusRunning || status == lifecycle.StatusStarting
	case ServerRestart:
		return status != lifecycle.StatusDisabled
	default:
		return true
	}
}

// Execute runs the named command and reports its single outcome through the
// Log sink. The returned error is non-nil only when name is not registered;
// command failures are carried in the Outcome.
func (d *Dispatcher) Execute(ctx context.Context, name string) (Outcome, error) {
	cmd, ok := d.Lookup(name)
	if !ok {
		return Outcome{}, errors.NewNotFoundError("unknown command %q", name)
	}

	id := uuid.NewString()
	ctx = logger.WithInvocationID(ctx, id)
	ctx = logger.WithComponent(ctx, "commands")
	log := logger.LoggerFromContext(ctx, d.logger)
	log.Debugw("Invoking command", logger.FieldCommand, name, logger.FieldDir, d.env.Root)

	out := d.run(ctx, cmd)
	out.Command = name
	out.InvocationID = id
	d.report(out)

	return out, nil
}

func (d *Dispatcher) run(ctx context.Context, cmd Command) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = executionFailed("Error running "+cmd.Name(), errors.Newf("panic: %v", r))
		}
	}()
	return cmd.Run(ctx, d.env)
}

func (d *Dispatcher) report(out Outcome) {
	if out.OK() {
		if out.Message != "" {
			d.log.Info(out.Message)
		}
		return
	}
	d.log.Error(out.Message)
}

// Close detaches the command gate from the lifecycle context.
func (d *Dispatcher) Close() {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
}
