package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/config"
	"github.com/lumashape/insert-pricing/internal/pricing"
)

const (
	quoteKeyPrefix  = "quote:"
	defaultCacheTTL = 10 * time.Minute
)

// RedisQuoteCache stores computed quotes in Redis.
type RedisQuoteCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisQuoteCache creates a Redis-backed quote cache.
func NewRedisQuoteCache(cfg config.RedisConfig, logger *zap.Logger) *RedisQuoteCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisQuoteCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached quote for key, or nil on a miss.
func (c *RedisQuoteCache) Get(ctx context.Context, key string) (*pricing.OrderPricing, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("quote cache miss", zap.String("key", key))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var quote pricing.OrderPricing
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, fmt.Errorf("decode cached quote: %w", err)
	}

	c.logger.Debug("quote cache hit", zap.String("key", key))
	return &quote, nil
}

// Set stores quote under key with the configured TTL.
func (c *RedisQuoteCache) Set(ctx context.Context, key string, quote pricing.OrderPricing) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisQuoteCache) Close() error {
	return c.client.Close()
}

// Key derives a cache key from everything that affects a quote.
func Key(items []pricing.CartItem, params pricing.Parameters) (string, error) {
	payload, err := json.Marshal(struct {
		Items      []pricing.CartItem `json:"items"`
		Parameters pricing.Parameters `json:"parameters"`
	}{items, params})
	if err != nil {
		return "", fmt.Errorf("encode quote key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return quoteKeyPrefix + hex.EncodeToString(sum[:]), nil
}
