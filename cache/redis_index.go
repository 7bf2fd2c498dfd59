package cache

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "peppo:prompt_cache:"

// RedisIndex keeps the prompt mapping in Redis for deployments where the
// videos directory is shared but the process is replicated. Hit semantics
// match FileIndex: the artifact file must still exist on disk.
type RedisIndex struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisIndex creates a Redis-backed index.
func NewRedisIndex(client *redis.Client, logger *zap.Logger) *RedisIndex {
	return &RedisIndex{
		client: client,
		logger: logger.With(zap.String("component", "cache_index")),
	}
}

func (idx *RedisIndex) Get(ctx context.Context, key string) (string, bool) {
	path, err := idx.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			idx.logger.Warn("redis get failed", zap.Error(err))
		}
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		idx.logger.Debug("cache entry points at missing file",
			zap.String("key", key),
			zap.String("path", path))
		return "", false
	}
	return path, true
}

func (idx *RedisIndex) Put(ctx context.Context, key, path string) error {
	if err := idx.client.Set(ctx, redisKeyPrefix+key, path, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
