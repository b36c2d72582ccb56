package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/bufkit/am"
	"github.com/teranos/bufkit/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage bufkit configuration",
	Long: `am — Manage bufkit configuration ("I am")

Configuration sources (later overrides earlier):
1. Built-in defaults
2. System config (/etc/bufkit/config.toml)
3. User config (~/.bufkit/am.toml)
4. Managed config (~/.bufkit/am_managed.toml, written by 'bufkit am set')
5. Project config (bufkit.toml, searched upward from the working directory)
6. Environment variables (BUFKIT_* prefix, plus BUF_BINARY for buf.path)

Examples:
  bufkit am show                    # Show current configuration
  bufkit am show --format json      # Show configuration in JSON format
  bufkit am get buf.version_range   # Get specific config value
  bufkit am set server.enabled false
  bufkit am where                   # Show where each value comes from`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., buf.path, server.args)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value to ~/.bufkit/am_managed.toml",
	Long: `Persist a value using dot notation. Booleans and integers are stored
typed; everything else as a string. The previous file is kept as .back1.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each configuration value is loaded from",
	Args:  cobra.NoArgs,
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	return writeConfig(cmd.OutOrStdout(), cfg, configFormat)
}

// configView mirrors am.Config with serialization tags for display
type configView struct {
	Buf struct {
		Path         string `json:"path" yaml:"path" toml:"path"`
		VersionRange string `json:"version_range" yaml:"version_range" toml:"version_range"`
		CommandsFile string `json:"commands_file" yaml:"commands_file" toml:"commands_file"`
	} `json:"buf" yaml:"buf" toml:"buf"`
	Server struct {
		Enabled              bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
		Args                 []string `json:"args" yaml:"args" toml:"args"`
		MaxRestartsPerMinute int      `json:"max_restarts_per_minute" yaml:"max_restarts_per_minute" toml:"max_restarts_per_minute"`
	} `json:"server" yaml:"server" toml:"server"`
	Workspace struct {
		Root string `json:"root" yaml:"root" toml:"root"`
	} `json:"workspace" yaml:"workspace" toml:"workspace"`
	Log struct {
		JSON          bool   `json:"json" yaml:"json" toml:"json"`
		ServerLogPath string `json:"server_log_path" yaml:"server_log_path" toml:"server_log_path"`
		Theme         string `json:"theme" yaml:"theme" toml:"theme"`
	} `json:"log" yaml:"log" toml:"log"`
}

func newConfigView(cfg *am.Config) configView {
	var v configView
	v.Buf.Path = cfg.Buf.Path
	v.Buf.VersionRange = cfg.Buf.VersionRange
	v.Buf.CommandsFile = cfg.Buf.CommandsFile
	v.Server.Enabled = cfg.Server.Enabled
	v.Server.Args = cfg.Server.Args
	v.Server.MaxRestartsPerMinute = cfg.Server.MaxRestartsPerMinute
	v.Workspace.Root = cfg.Workspace.Root
	v.Log.JSON = cfg.Log.JSON
	v.Log.ServerLogPath = cfg.Log.ServerLogPath
	v.Log.Theme = cfg.Log.Theme
	return v
}

func writeConfig(w io.Writer, cfg *am.Config, format string) error {
	view := newConfigView(cfg)

	switch format {
	case "json":
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(w, string(data))

	case "yaml":
		data, err := yaml.Marshal(view)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(w, "# bufkit configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(view)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(w, "# bufkit configuration\n%s", string(data))

	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json, yaml)", format)
	}

	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !am.IsSet(key) {
		return errors.NewNotFoundError("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	if err := am.SetValue(key, parseValue(raw)); err != nil {
		return err
	}

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to reload config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.WithHint(
			errors.Wrap(err, "the new value was saved but the configuration is now invalid"),
			"restore the previous file from "+am.GetManagedConfigPath()+".back1",
		)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %v (%s)\n", key, am.Get(key), am.GetManagedConfigPath())
	return nil
}

// parseValue keeps booleans and integers typed in the managed TOML file
func parseValue(raw string) interface{} {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	writeWhere(cmd.OutOrStdout(), am.GetConfigIntrospection())
	return nil
}

func writeWhere(w io.Writer, intro *am.ConfigIntrospection) {
	fmt.Fprintln(w, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(w, "  1. [DEFAULT]  Built-in defaults")
	fmt.Fprintln(w, "  2. [SYSTEM]   "+am.SystemConfigPath)
	fmt.Fprintln(w, "  3. [USER]     ~/.bufkit/"+am.UserConfigName)
	fmt.Fprintln(w, "  4. [MANAGED]  ~/.bufkit/"+am.ManagedConfigName)
	fmt.Fprintln(w, "  5. [PROJECT]  ./"+am.ProjectConfigName+" (searches up directories)")
	fmt.Fprintln(w, "  6. [ENV]      "+am.EnvPrefix+"_* environment variables")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Active configuration:")
	for _, s := range intro.Settings {
		source := string(s.Source)
		if s.SourcePath != "" && s.Source != am.SourceDefault {
			source += ": " + s.SourcePath
		}
		fmt.Fprintf(w, "  %-32s = %-24v [%s]\n", s.Key, s.Value, source)
	}
}
