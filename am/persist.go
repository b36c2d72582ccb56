package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/bufkit/errors"
	"github.com/teranos/bufkit/logger"
)

// ManagedConfigName is the file bufkit writes when settings are changed from
// the command line, so hand-edited am.toml files are never rewritten.
const ManagedConfigName = "am_managed.toml"

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	// .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old config backup",
			logger.FieldPath, back3,
			logger.FieldError, err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// GetManagedConfigPath returns ~/.bufkit/am_managed.toml
func GetManagedConfigPath() string {
	dir := UserDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, ManagedConfigName)
}

// loadOrInitializeManagedConfig loads the managed config file, or an empty map if it doesn't exist
func loadOrInitializeManagedConfig() (map[string]interface{}, string, error) {
	configPath := GetManagedConfigPath()
	if configPath == "" {
		return nil, "", errors.New("could not determine home directory")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return nil, "", errors.Wrap(err, "failed to create .bufkit directory")
	}

	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, "", errors.Wrapf(err, "failed to parse %s", configPath)
		}
	case !os.IsNotExist(err):
		return nil, "", errors.Wrapf(err, "failed to read %s", configPath)
	}

	return config, configPath, nil
}

// saveManagedConfig writes the config to the managed config file with backup
func saveManagedConfig(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write managed config")
	}

	return nil
}

// SetValue persists a dotted key (e.g. "server.enabled") to the managed config
func SetValue(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return errors.NewInvalidRequestError("invalid config key %q", key)
		}
	}

	config, configPath, err := loadOrInitializeManagedConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load managed config")
	}

	section := config
	for _, p := range parts[:len(parts)-1] {
		next, ok := section[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			section[p] = next
		}
		section = next
	}
	section[parts[len(parts)-1]] = value

	if err := saveManagedConfig(config, configPath); err != nil {
		return err
	}

	Reset()
	return nil
}

// UpdateBufPath persists buf.path
func UpdateBufPath(path string) error {
	return SetValue("buf.path", path)
}

// UpdateServerEnabled persists server.enabled
func UpdateServerEnabled(enabled bool) error {
	return SetValue("server.enabled", enabled)
}

// UpdateWorkspaceRoot persists workspace.root
func UpdateWorkspaceRoot(root string) error {
	return SetValue("workspace.root", root)
}
