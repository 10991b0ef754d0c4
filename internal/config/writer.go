package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/grove-sh/grove/internal/xdg"
	"github.com/grove-sh/grove/pkg/config"
)

// ErrInvalidConfig is returned when a nil config is written.
var ErrInvalidConfig = errors.New("invalid config")

// configFileMode keeps the config user read/write only; it may hold a
// registry token.
const configFileMode = 0o600

// Writer writes configuration to TOML files.
type Writer struct {
	path string
}

// NewWriter creates a Writer targeting the default global config path.
func NewWriter() *Writer {
	return &Writer{path: xdg.GlobalConfigFile()}
}

// NewWriterWithPath creates a Writer targeting an explicit path
// (for testing).
func NewWriterWithPath(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the file the writer targets.
func (w *Writer) Path() string {
	return w.path
}

// Write serializes cfg to TOML at the writer's path, creating parent
// directories as needed.
func (w *Writer) Write(cfg *config.Config) error {
	if cfg == nil {
		return errors.Wrap(ErrInvalidConfig, "config is nil")
	}

	if err := xdg.EnsureDir(filepath.Dir(w.path)); err != nil {
		return err
	}

	var buf bytes.Buffer

	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(true)

	if err := encoder.Encode(cfg); err != nil {
		return errors.Wrap(err, "encoding config to TOML")
	}

	if err := os.WriteFile(w.path, buf.Bytes(), configFileMode); err != nil {
		return errors.Wrapf(err, "writing config file %s", w.path)
	}

	return nil
}
