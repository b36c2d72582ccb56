package commands

import (
	"context"

	"github.com/teranos/bufkit/errors"
)

// ServerController is implemented by the language server manager.
type ServerController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
}

// ServerCommand delegates to the ServerController. It does not need buf to be
// detected beforehand; the controller reports that itself.
type ServerCommand struct {
	CommandName string
	Summary     string
	Done        string
	ErrorPrefix string
	action      func(ServerController, context.Context) error
}

func (c *ServerCommand) Name() string        { return c.CommandName }
func (c *ServerCommand) Description() string { return c.Summary }
func (c *ServerCommand) RequiresTool() bool  { return false }

func (c *ServerCommand) Run(ctx context.Context, env *Env) Outcome {
	if env.Server == nil {
		return executionFailed(c.ErrorPrefix, errors.New("language server is not available"))
	}
	if err := c.action(env.Server, ctx); err != nil {
		if errors.IsToolNotFound(err) {
			return toolNotFound()
		}
		return executionFailed(c.ErrorPrefix, err)
	}
	return success(c.Done)
}

// ServerCommands returns start, stop and restart.
func ServerCommands() []Command {
	return []Command{
		&ServerCommand{
			CommandName: ServerStart,
			Summary:     "Start the Buf language server",
			Done:        "Buf language server started",
			ErrorPrefix: "Error starting buf language server",
			action:      ServerController.Start,
		},
		&ServerCommand{
			CommandName: ServerStop,
			Summary:     "Stop the Buf language server",
			Done:        "Buf language server stopped",
			ErrorPrefix: "Error stopping buf language server",
			action:      ServerController.Stop,
		},
		&ServerCommand{
			CommandName: ServerRestart,
			Summary:     "Restart the Buf language server",
			Done:        "Buf language server restarted",
			ErrorPrefix: "Error restarting buf language server",
			action:      ServerController.Restart,
		},
	}
}
