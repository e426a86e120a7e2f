package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const exactKeyPrefix = "assistcache:exact:"

// ExactCache is an optional redis-backed exact-match layer consulted before
// the in-memory fuzzy scan. Keys are derived from the normalized question, so
// only byte-identical repeats hit here. Redis failures degrade to a miss; the
// fuzzy scan still runs.
type ExactCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewExactCache creates an ExactCache sharing the fuzzy store's TTL.
func NewExactCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *ExactCache {
	return &ExactCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "exact_cache")),
	}
}

// Get returns the answer cached for this exact normalized question, if any.
func (c *ExactCache) Get(ctx context.Context, userID, namespaceID, question string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, exactKey(userID, namespaceID, question)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("redis get failed, treating as miss", zap.Error(err))
		return nil, false
	}
	return data, true
}

// Set caches an answer under the exact normalized question.
func (c *ExactCache) Set(ctx context.Context, userID, namespaceID, question string, answer []byte) {
	if err := c.rdb.Set(ctx, exactKey(userID, namespaceID, question), answer, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.Error(err))
	}
}

func exactKey(userID, namespaceID, question string) string {
	h := sha256.Sum256([]byte(userID + "|" + namespaceID + "|" + question))
	return exactKeyPrefix + hex.EncodeToString(h[:16])
}
