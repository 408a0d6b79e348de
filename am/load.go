package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teranos/smrt/errors"
)

// ConfigFileName is the project config file searched for up the directory tree
const ConfigFileName = "smrt.toml"

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the smrt configuration using Viper.
// A .env file in the working directory is applied to the environment first.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path on top of defaults
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	return LoadWithViper(v)
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	// Missing .env is the normal case
	_ = godotenv.Load()

	v := viper.New()

	v.SetEnvPrefix("SMRT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)
	SetDefaults(v)

	// system -> user -> project, env vars win over all files
	mergeConfigFiles(v, configPaths())

	viperInstance = v
	return v
}

// configPaths lists candidate config files, lowest precedence first
func configPaths() []string {
	paths := []string{"/etc/smrt/" + ConfigFileName}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".smrt", ConfigFileName))
	}
	if wd, err := os.Getwd(); err == nil {
		if project := findProjectConfig(wd); project != "" {
			paths = append(paths, project)
		}
	}
	return paths
}

// findProjectConfig walks up from dir looking for smrt.toml.
// Returns the first path found, or "" if none exists.
func findProjectConfig(dir string) string {
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles merges existing config files into v in the given order
func mergeConfigFiles(v *viper.Viper, paths []string) {
	for _, configPath := range paths {
		if _, err := os.Stat(configPath); err != nil {
			continue
		}
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		_ = v.MergeInConfig()
	}
}

// ProjectConfigPath returns the project smrt.toml path, or ConfigFileName in the
// working directory when none exists yet.
func ProjectConfigPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return ConfigFileName
	}
	if p := findProjectConfig(wd); p != "" {
		return p
	}
	return filepath.Join(wd, ConfigFileName)
}

// GetViper returns the Viper instance Load reads from
func GetViper() *viper.Viper {
	return initViper()
}

// ConfigCascade lists the config files Load considers, lowest precedence first.
// Files that do not exist are included.
func ConfigCascade() []string {
	return configPaths()
}
