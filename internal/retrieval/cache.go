package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheKeyPrefix = "baristabot:embedding:"

// EmbeddingCache stores query embeddings. Implementations must treat every
// failure as a miss.
type EmbeddingCache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Set(ctx context.Context, text string, v []float32)
}

// RedisEmbeddingCache keeps query embeddings in Redis under a hash of the
// embedding model and query text.
type RedisEmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

// NewRedisEmbeddingCache creates a cache over client. Entries are namespaced
// by model so that switching models never serves stale vectors.
func NewRedisEmbeddingCache(client *redis.Client, model string, ttl time.Duration, log *slog.Logger) *RedisEmbeddingCache {
	if log == nil {
		log = slog.Default()
	}
	return &RedisEmbeddingCache{
		client: client,
		ttl:    ttl,
		prefix: defaultCacheKeyPrefix + model + ":",
		log:    log.With("component", "embedding_cache"),
	}
}

// Key returns the Redis key for text.
func (c *RedisEmbeddingCache) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:16])
}

func (c *RedisEmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool) {
	key := c.Key(text)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "Embedding cache get failed", "key", key, "error", err)
		}
		return nil, false
	}

	v, err := DecodeEmbedding(data)
	if err != nil || len(v) == 0 {
		c.log.WarnContext(ctx, "Discarding corrupt cached embedding", "key", key, "error", err)
		return nil, false
	}
	return v, true
}

func (c *RedisEmbeddingCache) Set(ctx context.Context, text string, v []float32) {
	key := c.Key(text)
	if err := c.client.Set(ctx, key, EncodeEmbedding(v), c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "Embedding cache set failed", "key", key, "error", err)
	}
}
