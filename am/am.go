// Package am loads and persists smrt configuration.
package am

// Config represents the smrt configuration
type Config struct {
	Data           DataConfig           `mapstructure:"data" toml:"data"`
	Cache          CacheConfig          `mapstructure:"cache" toml:"cache"`
	Query          QueryConfig          `mapstructure:"query" toml:"query"`
	Classifier     ClassifierConfig     `mapstructure:"classifier" toml:"classifier"`
	OpenRouter     OpenRouterConfig     `mapstructure:"openrouter" toml:"openrouter"`
	LocalInference LocalInferenceConfig `mapstructure:"local_inference" toml:"local_inference"`
	Server         ServerConfig         `mapstructure:"server" toml:"server"`
	Kafka          KafkaConfig          `mapstructure:"kafka" toml:"kafka"`
}

// Data source kinds
const (
	SourceDir    = "dir"    // CSV files in a local directory
	SourceRemote = "remote" // go-getter URL downloaded then parsed as a directory
	SourceSQL    = "sql"    // database/sql tables
)

// DataConfig configures where tables are loaded from
type DataConfig struct {
	Source              string `mapstructure:"source" toml:"source"`                               // dir, remote, sql
	Dir                 string `mapstructure:"dir" toml:"dir"`                                     // CSV directory for source=dir
	RemoteURL           string `mapstructure:"remote_url" toml:"remote_url"`                       // go-getter URL for source=remote
	SQLDriver           string `mapstructure:"sql_driver" toml:"sql_driver"`                       // sqlite3 or postgres
	SQLDSN              string `mapstructure:"sql_dsn" toml:"sql_dsn"`                             // driver DSN
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds" toml:"fetch_timeout_seconds"` // bound on one fetch
	Watch               bool   `mapstructure:"watch" toml:"watch"`                                 // refresh on data dir changes
}

// CacheConfig configures the query cache
type CacheConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes" toml:"ttl_minutes"` // whole-cache validity after a load
	MaxEntries int `mapstructure:"max_entries" toml:"max_entries"` // LRU cap
}

// QueryConfig configures the query engine
type QueryConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size" toml:"default_page_size"`
}

// Classifier providers
const (
	ProviderOpenRouter = "openrouter"
	ProviderLocal      = "local"
	ProviderNone       = "none"
)

// ClassifierConfig configures intent classification and response synthesis
type ClassifierConfig struct {
	Provider          string `mapstructure:"provider" toml:"provider"` // openrouter, local, none
	TimeoutSeconds    int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" toml:"requests_per_minute"` // 0 = unlimited
	Synthesize        bool   `mapstructure:"synthesize" toml:"synthesize"`                   // LLM-written replies
}

// OpenRouterConfig configures OpenRouter.ai API access
type OpenRouterConfig struct {
	APIKey      string   `mapstructure:"api_key" toml:"api_key"`
	Model       string   `mapstructure:"model" toml:"model"`
	Temperature *float64 `mapstructure:"temperature" toml:"temperature"` // nil = default 0.1
	MaxTokens   *int     `mapstructure:"max_tokens" toml:"max_tokens"`   // nil = default 1000
}

// LocalInferenceConfig configures local model inference (Ollama, LocalAI, etc.)
type LocalInferenceConfig struct {
	BaseURL        string `mapstructure:"base_url" toml:"base_url"` // e.g., "http://localhost:11434" for Ollama
	Model          string `mapstructure:"model" toml:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port           int      `mapstructure:"port" toml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
}

// KafkaConfig configures the refresh trigger topic. Empty brokers disables it.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" toml:"brokers"`
	Topic   string   `mapstructure:"topic" toml:"topic"`
	GroupID string   `mapstructure:"group_id" toml:"group_id"`
}

// DefaultServerPort is the HTTP port used when server.port is unset
const DefaultServerPort = 8000

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
