package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultConfirmationKeyPrefix = "ds160:confirm:"

// RedisConfirmationCounter implements ConfirmationCounter using Redis.
// Counts are shared by every server instance.
type RedisConfirmationCounter struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisConfirmationCounter connects to Redis and creates a counter
func NewRedisConfirmationCounter(cfg RedisConfig) (*RedisConfirmationCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisConfirmationCounter{
		client:    client,
		keyPrefix: defaultConfirmationKeyPrefix,
	}, nil
}

// NewRedisConfirmationCounterWithClient creates a counter with an existing client
func NewRedisConfirmationCounterWithClient(client redis.UniversalClient, keyPrefix string) *RedisConfirmationCounter {
	if keyPrefix == "" {
		keyPrefix = defaultConfirmationKeyPrefix
	}
	return &RedisConfirmationCounter{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Incr increments the counter in a MULTI block. SET NX PX creates the key with
// its window on the first click only, and INCR keeps an existing TTL, so the
// window stays fixed. Unlike EXPIRE NX this works before Redis 7.
func (c *RedisConfirmationCounter) Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	fullKey := c.keyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, fullKey, 0, window)
		incr = pipe.Incr(ctx, fullKey)
		ttl = pipe.PTTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment confirmation counter: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = 0
	}
	return int(incr.Val()), remaining, nil
}

// Reset deletes the counter
func (c *RedisConfirmationCounter) Reset(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset confirmation counter: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *RedisConfirmationCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisConfirmationCounter) Close() error {
	return c.client.Close()
}
