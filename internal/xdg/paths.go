// Package xdg centralizes the global paths grove touches on disk,
// following the XDG Base Directory conventions.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const appName = "grove"

// ConfigHome returns $XDG_CONFIG_HOME or ~/.config.
func ConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".config")
	}

	return filepath.Join(home, ".config")
}

// StateHome returns $XDG_STATE_HOME or ~/.local/state.
func StateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".local", "state")
	}

	return filepath.Join(home, ".local", "state")
}

// ConfigDir returns ConfigHome()/grove.
func ConfigDir() string {
	return filepath.Join(ConfigHome(), appName)
}

// StateDir returns StateHome()/grove.
func StateDir() string {
	return filepath.Join(StateHome(), appName)
}

// GlobalConfigFile returns ConfigDir()/config.toml.
func GlobalConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// UpdateStateFile returns the file caching the notifier's last
// update check: StateDir()/update_check.json.
func UpdateStateFile() string {
	return filepath.Join(StateDir(), "update_check.json")
}

// LogFile returns the log file path.
// Respects GROVE_LOG_FILE env var, otherwise StateDir()/grove.log.
func LogFile() string {
	if v := os.Getenv("GROVE_LOG_FILE"); v != "" {
		return v
	}

	return filepath.Join(StateDir(), "grove.log")
}

// EnsureDir creates a directory with 0700 permissions if it doesn't exist,
// and fixes permissions on existing directories if they're too open.
func EnsureDir(path string) error {
	const dirMode = 0o700

	if err := os.MkdirAll(path, dirMode); err != nil {
		return errors.Wrapf(err, "creating directory %s", path)
	}

	// MkdirAll only sets perms on new dirs. Fix existing ones if too open.
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "stat directory %s", path)
	}

	if info.Mode().Perm() != dirMode {
		if err := os.Chmod(path, dirMode); err != nil {
			return errors.Wrapf(err, "setting permissions on %s", path)
		}
	}

	return nil
}
