package am

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/smrt/errors"
)

// Write persists cfg as TOML at configPath, keeping one rotating backup.
// Secrets are never written; the API key stays in the environment.
func Write(configPath string, cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", configPath)
	}
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	redacted := *cfg
	redacted.OpenRouter.APIKey = ""

	data, err := toml.Marshal(redacted)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	return nil
}

// Defaults returns a Config populated only from SetDefaults
func Defaults() (*Config, error) {
	v := newDefaultsViper()
	return LoadWithViper(v)
}

// createBackup copies an existing config to <path>.back before it is overwritten
func createBackup(configPath string) error {
	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(configPath+".back", content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write backup")
	}
	return nil
}
