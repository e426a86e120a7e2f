package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Cache.SimilarityThreshold)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Std())
	assert.True(t, cfg.Cache.CrossNamespaceFallback)
	assert.Equal(t, 5*time.Second, cfg.Persistence.PollTimeout.Std())
	assert.Equal(t, 2*time.Second, cfg.Persistence.RetryBackoff.Std())
	assert.Equal(t, 5*time.Second, cfg.Persistence.ShutdownTimeout.Std())
	assert.Len(t, cfg.Assistants, 3)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache:
  similarity_threshold: 0.9
  ttl: 30m
  cross_namespace_fallback: false
assistants:
  - namespace_id: kamiq
    trigger_keywords: [kamiq]
database:
  driver: memory
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Cache.SimilarityThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL.Std())
	assert.False(t, cfg.Cache.CrossNamespaceFallback)
	assert.Len(t, cfg.Assistants, 1)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ASSISTCACHE_SERVER_PORT", "9090")
	t.Setenv("ASSISTCACHE_DATABASE_DRIVER", "memory")
	t.Setenv("ASSISTCACHE_CACHE_TTL", "10m")
	t.Setenv("ASSISTCACHE_REDIS_ADDR", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL.Std())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"bad threshold", "cache:\n  similarity_threshold: 1.5\n"},
		{"no assistants", "assistants: []\n"},
		{"bad driver", "database:\n  driver: oracle\n"},
		{"assistant without keywords", "assistants:\n  - namespace_id: kamiq\n    trigger_keywords: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestVocabularyDerivation(t *testing.T) {
	cfg := Default()
	vocab := cfg.Vocabulary()

	assert.Contains(t, vocab, "kamiq")
	assert.Contains(t, vocab, "monte carlo")

	cfg.Normalizer.Vocabulary = []string{"custom"}
	assert.Equal(t, []string{"custom"}, cfg.Vocabulary())
}
