package config

// Config is the root configuration for grove.
type Config struct {
	Updates *UpdatesConfig `koanf:"updates" toml:"updates,omitempty"`
	GitHub  *GitHubConfig  `koanf:"github"  toml:"github,omitempty"`
	Log     *LogConfig     `koanf:"log"     toml:"log,omitempty"`
}

// UpdatesConfig controls the background update check and the update
// command defaults.
type UpdatesConfig struct {
	// Check enables the advisory update notification after commands.
	Check *bool `koanf:"check" toml:"check,omitempty"`

	// Interval is the minimum time between registry queries made by
	// the notifier.
	Interval Duration `koanf:"interval" toml:"interval,omitempty"`

	// Timeout bounds a single notifier registry query.
	Timeout Duration `koanf:"timeout" toml:"timeout,omitempty"`
}

// GitHubConfig holds release registry settings.
type GitHubConfig struct {
	// Token authenticates registry requests. Environment variables
	// (GH_TOKEN, GITHUB_TOKEN) take precedence over this value.
	Token string `koanf:"token" toml:"token,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Debug enables debug-level log lines.
	Debug *bool `koanf:"debug" toml:"debug,omitempty"`

	// File overrides the default log file location.
	File string `koanf:"file" toml:"file,omitempty"`
}

// UpdatesEnabled reports whether the advisory update check is on.
// Defaults to true when unset.
func (c *Config) UpdatesEnabled() bool {
	if c == nil || c.Updates == nil || c.Updates.Check == nil {
		return true
	}

	return *c.Updates.Check
}

// DebugEnabled reports whether debug logging is on.
func (c *Config) DebugEnabled() bool {
	if c == nil || c.Log == nil || c.Log.Debug == nil {
		return false
	}

	return *c.Log.Debug
}
