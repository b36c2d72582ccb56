package logger

// Output categories control WHAT is shown at each verbosity level, independent
// of log severity. The CLI consults them before printing anything that is not
// a command result.

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults OutputCategory = iota // Command stdout
	OutputErrors                        // Errors with hints

	// Level 1 (-v)
	OutputServerStatus // Language server status transitions
	OutputToolInfo     // Detected buf path and version

	// Level 2 (-vv)
	OutputInvocations // argv and working directory of each buf call
	OutputTiming      // Invocation durations
	OutputConfig      // Config values loaded/applied

	// Level 3 (-vvv)
	OutputServerLog // Language server stderr forwarding
	OutputLSP       // LSP requests and notifications
)

var categoryLevels = map[OutputCategory]int{
	OutputResults: VerbosityUser,
	OutputErrors:  VerbosityUser,

	OutputServerStatus: VerbosityInfo,
	OutputToolInfo:     VerbosityInfo,

	OutputInvocations: VerbosityDebug,
	OutputTiming:      VerbosityDebug,
	OutputConfig:      VerbosityDebug,

	OutputServerLog: VerbosityTrace,
	OutputLSP:       VerbosityTrace,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityTrace
	}
	return verbosity >= minLevel
}

var categoryNames = map[OutputCategory]string{
	OutputResults:      "results",
	OutputErrors:       "errors",
	OutputServerStatus: "server-status",
	OutputToolInfo:     "tool-info",
	OutputInvocations:  "invocations",
	OutputTiming:       "timing",
	OutputConfig:       "config",
	OutputServerLog:    "server-log",
	OutputLSP:          "lsp",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}
