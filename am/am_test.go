package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, SourceDir, cfg.Data.Source)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, 30, cfg.Cache.TTLMinutes)
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, 100, cfg.Query.DefaultPageSize)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	require.NotNil(t, cfg.OpenRouter.Temperature)
	assert.InDelta(t, 0.1, *cfg.OpenRouter.Temperature, 1e-9)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 30*time.Second, cfg.ClassifierTimeout())
	assert.NoError(t, cfg.Validate())
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 30*time.Second, cfg.ClassifierTimeout())
	assert.Equal(t, time.Minute, cfg.FetchTimeout())
	assert.Equal(t, DefaultServerPort, cfg.GetServerPort())

	cfg.Cache.TTLMinutes = 5
	cfg.Data.FetchTimeoutSeconds = 10
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Data:       DataConfig{Source: SourceDir, Dir: "data"},
			Classifier: ClassifierConfig{Provider: ProviderNone},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid dir source", func(c *Config) {}, false},
		{"empty dir", func(c *Config) { c.Data.Dir = "" }, true},
		{"unknown source", func(c *Config) { c.Data.Source = "ftp" }, true},
		{"remote without url", func(c *Config) { c.Data.Source = SourceRemote }, true},
		{"remote with url", func(c *Config) {
			c.Data.Source = SourceRemote
			c.Data.RemoteURL = "https://example.com/data.zip"
		}, false},
		{"sql with bad driver", func(c *Config) {
			c.Data.Source = SourceSQL
			c.Data.SQLDriver = "mysql"
			c.Data.SQLDSN = "x"
		}, true},
		{"sql without dsn", func(c *Config) {
			c.Data.Source = SourceSQL
			c.Data.SQLDriver = "postgres"
		}, true},
		{"negative ttl", func(c *Config) { c.Cache.TTLMinutes = -1 }, true},
		{"negative cap", func(c *Config) { c.Cache.MaxEntries = -1 }, true},
		{"negative page size", func(c *Config) { c.Query.DefaultPageSize = -5 }, true},
		{"unknown provider", func(c *Config) { c.Classifier.Provider = "gemini" }, true},
		{"local without url", func(c *Config) {
			c.Classifier.Provider = ProviderLocal
			c.LocalInference.Model = "llama"
		}, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"kafka without topic", func(c *Config) { c.Kafka.Brokers = []string{"localhost:9092"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := `
[data]
dir = "/srv/smrt"

[cache]
ttl_minutes = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/smrt", cfg.Data.Dir)
	assert.Equal(t, 5, cfg.Cache.TTLMinutes)
	assert.Equal(t, 1000, cfg.Cache.MaxEntries, "unset keys keep defaults")
}

func TestWriteRoundTripAndBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", ConfigFileName)

	cfg, err := Defaults()
	require.NoError(t, err)
	cfg.OpenRouter.APIKey = "sk-secret"
	cfg.Cache.TTLMinutes = 12

	require.NoError(t, Write(path, cfg))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-secret")

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Cache.TTLMinutes)
	assert.Equal(t, "sk-secret", cfg.OpenRouter.APIKey, "caller config is not mutated")

	require.NoError(t, Write(path, cfg))
	_, err = os.Stat(path + ".back")
	assert.NoError(t, err)
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, "", findProjectConfig(nested))

	path := filepath.Join(root, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[data]\n"), 0644))
	assert.Equal(t, path, findProjectConfig(nested))
}

func TestEnvOverride(t *testing.T) {
	Reset()
	defer Reset()
	t.Setenv("SMRT_CACHE_TTL_MINUTES", "7")
	t.Setenv("OPENROUTER_API_KEY", "sk-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Cache.TTLMinutes)
	assert.Equal(t, "sk-env", cfg.OpenRouter.APIKey)
}
