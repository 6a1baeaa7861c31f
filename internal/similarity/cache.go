package similarity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RedisCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache keeps embeddings in redis so repeated essays and key points
// skip the model call.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ EmbeddingCache = (*RedisCache)(nil)

func NewRedisCache(ctx context.Context, cfg RedisCacheConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, model, text string) ([]float32, bool) {
	val, err := c.client.Get(ctx, cacheKey(model, text)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Debug().Err(err).Msg("Embedding cache read failed")
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(val, &vec); err != nil {
		c.logger.Debug().Err(err).Msg("Embedding cache entry is corrupt")
		return nil, false
	}
	return vec, true
}

func (c *RedisCache) Set(ctx context.Context, model, text string, embedding []float32) {
	val, err := json.Marshal(embedding)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(model, text), val, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Embedding cache write failed")
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}
