package am

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Data source defaults
	v.SetDefault("data.source", SourceDir)
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.sql_driver", "sqlite3")
	v.SetDefault("data.fetch_timeout_seconds", 60)
	v.SetDefault("data.watch", false)

	// Cache defaults
	v.SetDefault("cache.ttl_minutes", 30)
	v.SetDefault("cache.max_entries", 1000)

	// Query defaults
	v.SetDefault("query.default_page_size", 100)

	// Classifier defaults
	v.SetDefault("classifier.provider", ProviderOpenRouter)
	v.SetDefault("classifier.timeout_seconds", 30)
	v.SetDefault("classifier.requests_per_minute", 60)
	v.SetDefault("classifier.synthesize", true)

	// OpenRouter defaults
	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.temperature", 0.1) // classification wants determinism
	v.SetDefault("openrouter.max_tokens", 1000)

	// Local inference (Ollama) defaults
	v.SetDefault("local_inference.base_url", "http://localhost:11434")
	v.SetDefault("local_inference.model", "llama3.2:3b")
	v.SetDefault("local_inference.timeout_seconds", 120)

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"http://localhost:3000",
		"http://127.0.0.1",
	})

	// Kafka defaults (disabled without brokers)
	v.SetDefault("kafka.topic", "smrt.refresh")
	v.SetDefault("kafka.group_id", "smrt")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("openrouter.api_key", "SMRT_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("data.sql_dsn", "SMRT_DATA_SQL_DSN", "DATABASE_URL")
}

// CacheTTL returns the cache TTL, falling back to 30 minutes
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// ClassifierTimeout returns the per-call classifier deadline
func (c *Config) ClassifierTimeout() time.Duration {
	if c.Classifier.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

// FetchTimeout returns the per-refresh ingestion deadline
func (c *Config) FetchTimeout() time.Duration {
	if c.Data.FetchTimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Data.FetchTimeoutSeconds) * time.Second
}

// GetServerPort returns the configured port or DefaultServerPort
func (c *Config) GetServerPort() int {
	if c.Server.Port == 0 {
		return DefaultServerPort
	}
	return c.Server.Port
}

func newDefaultsViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}
