package am

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Buf binary
	v.SetDefault("buf.path", "")
	v.SetDefault("buf.version_range", ">=1.40.0")
	v.SetDefault("buf.commands_file", "")

	// Language server
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.args", []string{"lsp", "serve"})
	v.SetDefault("server.max_restarts_per_minute", 3)

	v.SetDefault("workspace.root", ".")

	v.SetDefault("log.json", false)
	v.SetDefault("log.server_log_path", defaultServerLogPath())
	v.SetDefault("log.theme", "everforest")
}

// BindEnvVars binds settings whose environment names do not follow the
// BUFKIT_<SECTION>_<KEY> convention, or that are commonly set by other tools
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("buf.path", "BUFKIT_BUF_PATH", "BUF_BINARY")
	v.BindEnv("server.args", "BUFKIT_SERVER_ARGS")
	v.BindEnv("log.theme", "BUFKIT_LOG_THEME")
}

// UserDir returns ~/.bufkit, or "" when the home directory is unknown
func UserDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bufkit")
}

func defaultServerLogPath() string {
	dir := UserDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "server.log")
}
