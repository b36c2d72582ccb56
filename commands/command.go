package commands

import (
	"context"
	"strings"
	"time"

	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/lifecycle"
	"github.com/teranos/bufkit/logger"
	"github.com/teranos/bufkit/runner"
)

// Command is a registered, user-invocable action.
type Command interface {
	Name() string
	Description() string
	// RequiresTool reports whether the command shells out to buf and is
	// therefore gated on a detected tool.
	RequiresTool() bool
	Run(ctx context.Context, env *Env) Outcome
}

// Env is what a running command may use. It is built by the Dispatcher for
// each invocation.
type Env struct {
	Lifecycle *lifecycle.Context
	Executor  runner.Executor
	Root      string
	Server    ServerController
}

// ToolCommand runs buf with a fixed argument list.
type ToolCommand struct {
	CommandName string
	Summary     string
	Args        []string
	// ErrorPrefix starts every error message, e.g. "Error generating buf".
	ErrorPrefix string
	// Busy marks the lifecycle context busy for the duration of the run.
	Busy bool
}

func (c *ToolCommand) Name() string        { return c.CommandName }
func (c *ToolCommand) Description() string { return c.Summary }
func (c *ToolCommand) RequiresTool() bool  { return true }

// Run performs precondition, invoke and classify. It never returns an error;
// every path ends in one Outcome.
func (c *ToolCommand) Run(ctx context.Context, env *Env) Outcome {
	tool := env.Lifecycle.Tool()
	if tool == nil {
		return toolNotFound()
	}

	if c.Busy {
		env.Lifecycle.SetBusy(true)
		defer env.Lifecycle.SetBusy(false)
	}

	start := time.Now()
	res, err := env.Executor.Execute(ctx, tool.Path(), c.Args, runner.Options{Dir: env.Root})
	elapsed := time.Since(start)

	var out Outcome
	switch {
	case err != nil:
		out = executionFailed(c.ErrorPrefix, err)
	case res.Stderr != "":
		// stderr wins over the exit code: anything buf prints there is surfaced
		out = toolReportedError(c.ErrorPrefix, res.Stderr)
	case res.Failed():
		out = executionFailed(c.ErrorPrefix, errors.Newf("exit status %d", res.ExitCode))
	default:
		out = success(res.Stdout)
	}
	out.Duration = elapsed

	logger.LoggerFromContext(ctx, logger.ComponentLogger("commands")).Debugw("Command classified",
		logger.FieldCommand, c.CommandName,
		logger.FieldArgs, strings.Join(c.Args, " "),
		logger.FieldExitCode, res.ExitCode,
		"outcome", out.Kind.String(),
		logger.FieldDurationMS, elapsed.Milliseconds())

	return out
}
