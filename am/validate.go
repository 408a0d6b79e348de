package am

import "github.com/teranos/smrt/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Data.Source {
	case SourceDir:
		if c.Data.Dir == "" {
			return errors.WithHint(errors.New("data.dir cannot be empty when data.source = \"dir\""),
				"point data.dir at a directory of customer/order/detail/product CSV files")
		}
	case SourceRemote:
		if c.Data.RemoteURL == "" {
			return errors.New("data.remote_url cannot be empty when data.source = \"remote\"")
		}
	case SourceSQL:
		if c.Data.SQLDriver != "sqlite3" && c.Data.SQLDriver != "postgres" {
			return errors.Newf("data.sql_driver must be sqlite3 or postgres, got %q", c.Data.SQLDriver)
		}
		if c.Data.SQLDSN == "" {
			return errors.New("data.sql_dsn cannot be empty when data.source = \"sql\"")
		}
	default:
		return errors.Newf("data.source must be dir, remote or sql, got %q", c.Data.Source)
	}

	if c.Data.FetchTimeoutSeconds < 0 {
		return errors.Newf("data.fetch_timeout_seconds must be >= 0, got %d", c.Data.FetchTimeoutSeconds)
	}

	// Cache: 0 = use default, negative = invalid
	if c.Cache.TTLMinutes < 0 {
		return errors.Newf("cache.ttl_minutes must be >= 0, got %d", c.Cache.TTLMinutes)
	}
	if c.Cache.MaxEntries < 0 {
		return errors.Newf("cache.max_entries must be >= 0, got %d", c.Cache.MaxEntries)
	}
	if c.Query.DefaultPageSize < 0 {
		return errors.Newf("query.default_page_size must be >= 0, got %d", c.Query.DefaultPageSize)
	}

	switch c.Classifier.Provider {
	case ProviderOpenRouter, ProviderNone, "":
	case ProviderLocal:
		if c.LocalInference.BaseURL == "" {
			return errors.New("local_inference.base_url cannot be empty when classifier.provider = \"local\"")
		}
		if c.LocalInference.Model == "" {
			return errors.New("local_inference.model cannot be empty when classifier.provider = \"local\"")
		}
	default:
		return errors.Newf("classifier.provider must be openrouter, local or none, got %q", c.Classifier.Provider)
	}
	if c.Classifier.RequestsPerMinute < 0 {
		return errors.Newf("classifier.requests_per_minute must be >= 0, got %d", c.Classifier.RequestsPerMinute)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic cannot be empty when kafka.brokers is set")
	}

	return nil
}
