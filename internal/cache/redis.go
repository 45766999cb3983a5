package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pricecalc/pkg/contracts/domain"
)

// RedisCache stores answers as JSON strings with a TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions configures the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache connects and pings the server
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: opts.TTL}, nil
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get implements StdevCache
func (c *RedisCache) Get(ctx context.Context, key Key) (*domain.RollingStdev, error) {
	data, err := c.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get stdev from redis: %w", err)
	}

	var v domain.RollingStdev
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stdev: %w", err)
	}
	return &v, nil
}

// Set implements StdevCache
func (c *RedisCache) Set(ctx context.Context, key Key, value domain.RollingStdev) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal stdev: %w", err)
	}
	if err := c.client.Set(ctx, key.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set stdev in redis: %w", err)
	}
	return nil
}

// Close implements StdevCache
func (c *RedisCache) Close() error {
	return c.client.Close()
}
