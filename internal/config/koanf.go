package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/grove-sh/grove/internal/xdg"
	"github.com/grove-sh/grove/pkg/config"
)

var (
	// ErrInvalidTOML is returned when the TOML file cannot be parsed.
	ErrInvalidTOML = errors.New("invalid TOML")

	// ErrInvalidPermissions is returned when the config file has
	// insecure permissions.
	ErrInvalidPermissions = errors.New("config file has insecure permissions")
)

// envPrefix namespaces grove's environment variables.
const envPrefix = "GROVE_"

// Loader loads configuration from multiple sources using koanf.
// Precedence order (highest to lowest):
// 1. Environment variables (GROVE_*)
// 2. Global config (XDG config dir, config.toml)
// 3. Defaults
type Loader struct {
	configPath string
}

// NewLoader creates a Loader reading the default global config path.
func NewLoader() *Loader {
	return &Loader{configPath: xdg.GlobalConfigFile()}
}

// NewLoaderWithPath creates a Loader reading an explicit config path
// (for testing).
func NewLoaderWithPath(path string) *Loader {
	return &Loader{configPath: path}
}

// Load loads configuration from all sources with precedence.
// Defaults -> Global TOML -> Env vars.
func (l *Loader) Load() (*config.Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsToMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "loading defaults")
	}

	if err := l.loadTOMLFile(k, l.configPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "loading global config")
	}

	envOpt := env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envTransform,
	}

	if err := k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "loading env vars")
	}

	var cfg config.Config

	unmarshalConf := koanf.UnmarshalConf{Tag: "koanf", FlatPaths: false}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	return &cfg, nil
}

// ConfigPath returns the global config file path this loader reads.
func (l *Loader) ConfigPath() string {
	return l.configPath
}

// HasConfig checks whether the global config file exists.
func (l *Loader) HasConfig() bool {
	info, err := os.Stat(l.configPath)

	return err == nil && !info.IsDir()
}

// loadTOMLFile loads a TOML configuration file with security checks.
func (*Loader) loadTOMLFile(k *koanf.Koanf, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// Reject world-writable files: they may hold a registry token.
	if info.Mode().Perm()&0o002 != 0 {
		return errors.Wrapf(
			ErrInvalidPermissions,
			"%s is world-writable (mode: %s)",
			path,
			info.Mode().Perm(),
		)
	}

	if err := k.Load(file.Provider(path), tomlparser.Parser()); err != nil {
		return errors.Wrapf(ErrInvalidTOML, "%s: %v", path, err)
	}

	return nil
}

// envTransform maps environment variable names to config paths.
// GROVE_UPDATES_CHECK -> updates.check
func envTransform(key, value string) (string, any) {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", ".")

	return key, value
}
