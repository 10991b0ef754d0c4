// Package config provides internal configuration loading and writing.
package config

import (
	"time"

	"github.com/grove-sh/grove/pkg/config"
)

const (
	// DefaultCheckInterval is the default minimum time between notifier
	// registry queries.
	DefaultCheckInterval = 24 * time.Hour

	// DefaultCheckTimeout is the default bound on a notifier query.
	DefaultCheckTimeout = 3 * time.Second
)

// String forms of the defaults for the koanf confmap provider.
const (
	defaultCheckIntervalStr = "24h"
	defaultCheckTimeoutStr  = "3s"
)

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *config.Config {
	check := true
	debug := false

	return &config.Config{
		Updates: &config.UpdatesConfig{
			Check:    &check,
			Interval: config.Duration(DefaultCheckInterval),
			Timeout:  config.Duration(DefaultCheckTimeout),
		},
		GitHub: &config.GitHubConfig{},
		Log: &config.LogConfig{
			Debug: &debug,
		},
	}
}

// defaultsToMap converts the defaults to a map for koanf loading.
func defaultsToMap() map[string]any {
	return map[string]any{
		"updates": map[string]any{
			"check":    true,
			"interval": defaultCheckIntervalStr,
			"timeout":  defaultCheckTimeoutStr,
		},
		"github": map[string]any{
			"token": "",
		},
		"log": map[string]any{
			"debug": false,
			"file":  "",
		},
	}
}
