// Package config provides the module's configuration surface: defaults,
// a YAML file loader, and environment variable overrides. Configuration is
// loaded once at startup; there is no dynamic reload.
package config

import (
	"fmt"
	"time"
)

// Config is the complete configuration.
type Config struct {
	// Server is the HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Cache configures the answer cache.
	Cache CacheConfig `yaml:"cache"`

	// Normalizer configures query normalization.
	Normalizer NormalizerConfig `yaml:"normalizer"`

	// Persistence configures the write-behind pipeline.
	Persistence PersistenceConfig `yaml:"persistence"`

	// Assistants is the ordered namespace -> trigger keyword table.
	Assistants []AssistantConfig `yaml:"assistants"`

	// LLM configures the upstream generation endpoint.
	LLM LLMConfig `yaml:"llm"`

	// Database configures the durable store.
	Database DatabaseConfig `yaml:"database"`

	// Redis configures the optional exact-match layer.
	Redis RedisConfig `yaml:"redis"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// ServerConfig is the HTTP server configuration.
type ServerConfig struct {
	// Port to listen on.
	Port int `yaml:"port"`
	// ReadTimeout for request headers and bodies.
	ReadTimeout Duration `yaml:"read_timeout"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// CacheConfig configures the answer cache.
type CacheConfig struct {
	// SimilarityThreshold is the minimum match ratio for a fuzzy hit.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// TTL is the entry lifetime, enforced lazily at read time.
	TTL Duration `yaml:"ttl"`
	// CrossNamespaceFallback widens a missed lookup to the user's other
	// namespaces, unless the request itself pinned a namespace keyword.
	CrossNamespaceFallback bool `yaml:"cross_namespace_fallback"`
}

// NormalizerConfig configures query normalization.
type NormalizerConfig struct {
	// CorrectionThreshold is the minimum token similarity for a fuzzy
	// vocabulary correction.
	CorrectionThreshold float64 `yaml:"correction_threshold"`
	// Vocabulary is the fixed set of domain terms. Terms with a space are
	// compound terms. Defaults to the assistant trigger keywords plus the
	// trim-level terms when empty.
	Vocabulary []string `yaml:"vocabulary"`
}

// PersistenceConfig configures the write-behind pipeline.
type PersistenceConfig struct {
	// PollTimeout bounds each writer wait for the next record.
	PollTimeout Duration `yaml:"poll_timeout"`
	// RetryBackoff is the fixed delay between failed append attempts.
	RetryBackoff Duration `yaml:"retry_backoff"`
	// ShutdownTimeout bounds the join on the writer at shutdown.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	// BufferSize is the queue capacity.
	BufferSize int `yaml:"buffer_size"`
}

// AssistantConfig binds a namespace to its trigger keywords.
type AssistantConfig struct {
	NamespaceID     string   `yaml:"namespace_id"`
	TriggerKeywords []string `yaml:"trigger_keywords"`
}

// LLMConfig configures the upstream generation endpoint.
type LLMConfig struct {
	// BaseURL is the generation endpoint.
	BaseURL string `yaml:"base_url"`
	// Timeout bounds one generation request end to end.
	Timeout Duration `yaml:"timeout"`
}

// DatabaseConfig configures the durable store.
type DatabaseConfig struct {
	// Driver is one of sqlite, mysql, postgres, memory.
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the optional exact-match layer.
type RedisConfig struct {
	// Enabled turns the exact-match layer on.
	Enabled bool `yaml:"enabled"`
	// Addr is the redis host:port.
	Addr string `yaml:"addr"`
	// Password is optional.
	Password string `yaml:"password"`
	// DB is the redis database number.
	DB int `yaml:"db"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Development switches to the human-readable console encoder.
	Development bool `yaml:"development"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Cache: CacheConfig{
			SimilarityThreshold:    0.8,
			TTL:                    Duration(time.Hour),
			CrossNamespaceFallback: true,
		},
		Normalizer: NormalizerConfig{
			CorrectionThreshold: 0.7,
		},
		Persistence: PersistenceConfig{
			PollTimeout:     Duration(5 * time.Second),
			RetryBackoff:    Duration(2 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
			BufferSize:      1024,
		},
		Assistants: []AssistantConfig{
			{NamespaceID: "kamiq", TriggerKeywords: []string{"kamiq"}},
			{NamespaceID: "fabia", TriggerKeywords: []string{"fabia"}},
			{NamespaceID: "scala", TriggerKeywords: []string{"scala"}},
		},
		LLM: LLMConfig{
			BaseURL: "http://localhost:9000/generate",
			Timeout: Duration(60 * time.Second),
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "assistcache.db",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Vocabulary returns the normalizer vocabulary, deriving it from the
// assistant trigger keywords plus the trim-level terms when not set
// explicitly.
func (c *Config) Vocabulary() []string {
	if len(c.Normalizer.Vocabulary) > 0 {
		return c.Normalizer.Vocabulary
	}

	vocab := make([]string, 0, len(c.Assistants)+3)
	for _, a := range c.Assistants {
		vocab = append(vocab, a.TriggerKeywords...)
	}
	return append(vocab, "premium", "elite", "monte carlo")
}

// BrandKeywords returns the brand tokens shared by the router and the
// consistency guard, in table order.
func (c *Config) BrandKeywords() []string {
	var brands []string
	for _, a := range c.Assistants {
		brands = append(brands, a.TriggerKeywords...)
	}
	return brands
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Cache.SimilarityThreshold <= 0 || c.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("cache.similarity_threshold must be in (0,1], got %v", c.Cache.SimilarityThreshold)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
	}
	if len(c.Assistants) == 0 {
		return fmt.Errorf("at least one assistant must be configured")
	}
	for i, a := range c.Assistants {
		if a.NamespaceID == "" {
			return fmt.Errorf("assistants[%d]: namespace_id is required", i)
		}
		if len(a.TriggerKeywords) == 0 {
			return fmt.Errorf("assistants[%d]: trigger_keywords are required", i)
		}
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	return nil
}
