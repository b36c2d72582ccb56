package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/bufkit/display"
	"github.com/teranos/bufkit/status"
)

// StatusCmd reports the detected buf installation, workspace and commands
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show buf detection, workspace modules and available commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), AppOptions{}, func(app *App) error {
			return printStatus(cmd, app)
		})
	},
}

func init() {
	StatusCmd.Flags().BoolP("json", "j", false, "Output status as JSON")
}

// statusReport is the JSON form of bufkit status
type statusReport struct {
	Indicator status.Snapshot `json:"indicator"`
	Root      string          `json:"root"`
	Modules   []moduleReport  `json:"modules"`
	Enabled   []string        `json:"enabled_commands"`
}

type moduleReport struct {
	Dir  string `json:"dir"`
	Name string `json:"name,omitempty"`
}

func printStatus(cmd *cobra.Command, app *App) error {
	lc := app.Lifecycle
	snap := status.Compute(lc.Status(), lc.Busy(), lc.Tool())

	report := statusReport{
		Indicator: snap,
		Root:      app.Root,
		Enabled:   app.Dispatcher.EnabledCommands(),
	}
	for _, m := range app.Workspace.Modules {
		report.Modules = append(report.Modules, moduleReport{Dir: m.Dir, Name: m.Name})
	}

	out := cmd.OutOrStdout()
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(out, report)
	}

	status.Render(out, snap)
	fmt.Fprintf(out, "Workspace: %s\n", report.Root)
	if len(report.Modules) == 0 {
		fmt.Fprintln(out, "Modules:   (none)")
	}
	for _, m := range report.Modules {
		if m.Name != "" {
			fmt.Fprintf(out, "Module:    %s (%s)\n", m.Dir, m.Name)
		} else {
			fmt.Fprintf(out, "Module:    %s\n", m.Dir)
		}
	}
	fmt.Fprintln(out, "Commands:")
	printCommandList(out, app.Dispatcher)
	return nil
}
