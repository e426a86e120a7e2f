package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "ASSISTCACHE"

// Load builds the configuration: defaults, then the YAML file (optional),
// then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides the deployment-variable settings from the environment.
// Only settings that differ between environments are overridable; the
// assistant table and thresholds stay in the file.
func applyEnv(cfg *Config) error {
	if v, ok := lookup("SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s_SERVER_PORT: %w", EnvPrefix, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("DATABASE_DRIVER"); ok {
		cfg.Database.Driver = v
	}
	if v, ok := lookup("DATABASE_DSN"); ok {
		cfg.Database.DSN = v
	}
	if v, ok := lookup("LLM_BASE_URL"); ok {
		cfg.LLM.BaseURL = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v, ok := lookup("REDIS_PASSWORD"); ok {
		cfg.Redis.Password = v
	}
	if v, ok := lookup("CACHE_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s_CACHE_TTL: %w", EnvPrefix, err)
		}
		cfg.Cache.TTL = Duration(ttl)
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + "_" + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
