package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"github.com/relabs-tech/vitrine/core/logger"
)

// Redis is a Cache shared between service instances
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis connects to the redis server at url, e.g. "redis://localhost:6379/0".
// All keys get prefix prepended.
func NewRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err = client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cannot reach redis: %w", err)
	}
	logger.Default().Infoln("connected to redis at", options.Addr)
	return NewRedisWithClient(client, prefix), nil
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Get implements Cache
func (r *Redis) Get(ctx context.Context, key string, value interface{}) (bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, value)
}

// Set implements Cache. A ttl of zero means the value does not expire.
func (r *Redis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, data, ttl).Err()
}

// Delete implements Cache
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.prefix + key
	}
	return r.client.Del(ctx, prefixed...).Err()
}

// Close closes the connection
func (r *Redis) Close() error {
	return r.client.Close()
}
