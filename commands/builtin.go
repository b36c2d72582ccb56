package commands

// Names of the built-in commands.
const (
	Generate      = "generate"
	Lint          = "lint"
	Build         = "build"
	Format        = "format"
	DepUpdate     = "dep-update"
	ServerStart   = "server-start"
	ServerStop    = "server-stop"
	ServerRestart = "server-restart"
)

// Builtins returns the standard tool commands.
func Builtins() []Command {
	return []Command{
		&ToolCommand{
			CommandName: Generate,
			Summary:     "Run buf generate in the workspace root",
			Args:        []string{"generate"},
			ErrorPrefix: "Error generating buf",
		},
		&ToolCommand{
			CommandName: Lint,
			Summary:     "Run buf lint in the workspace root",
			Args:        []string{"lint"},
			ErrorPrefix: "Error linting buf",
		},
		&ToolCommand{
			CommandName: Build,
			Summary:     "Run buf build in the workspace root",
			Args:        []string{"build"},
			ErrorPrefix: "Error building buf",
		},
		&ToolCommand{
			CommandName: Format,
			Summary:     "Rewrite .proto files in place with buf format",
			Args:        []string{"format", "-w"},
			ErrorPrefix: "Error formatting buf",
		},
		&ToolCommand{
			CommandName: DepUpdate,
			Summary:     "Update buf.lock with buf dep update",
			Args:        []string{"dep", "update"},
			ErrorPrefix: "Error updating buf dependencies",
			Busy:        true,
		},
	}
}
