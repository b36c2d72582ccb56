package am

// Config represents the bufkit configuration
type Config struct {
	Buf       BufConfig       `mapstructure:"buf"`
	Server    ServerConfig    `mapstructure:"server"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Log       LogConfig       `mapstructure:"log"`
}

// BufConfig configures how the buf binary is located and which commands exist
type BufConfig struct {
	Path         string `mapstructure:"path"`          // Explicit binary; empty = search PATH and common locations
	VersionRange string `mapstructure:"version_range"` // Semver constraint the binary must satisfy (default: >=1.40.0)
	CommandsFile string `mapstructure:"commands_file"` // Optional TOML file with [[command]] entries
}

// ServerConfig configures the buf language server
type ServerConfig struct {
	Enabled              bool     `mapstructure:"enabled"`                 // false keeps the server Disabled
	Args                 []string `mapstructure:"args"`                    // Arguments after the buf binary (default: lsp serve)
	MaxRestartsPerMinute int      `mapstructure:"max_restarts_per_minute"` // 0 = never restart after a crash
}

// WorkspaceConfig configures the workspace root
type WorkspaceConfig struct {
	Root string `mapstructure:"root"`
}

// LogConfig configures logging output
type LogConfig struct {
	JSON          bool   `mapstructure:"json"`
	ServerLogPath string `mapstructure:"server_log_path"` // Language server output; empty = discard
	Theme         string `mapstructure:"theme"`           // Color theme: gruvbox, everforest
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// Config file names
const (
	ProjectConfigName = "bufkit.toml"
	UserConfigName    = "am.toml"
	SystemConfigPath  = "/etc/bufkit/config.toml"
	EnvPrefix         = "BUFKIT"
)
