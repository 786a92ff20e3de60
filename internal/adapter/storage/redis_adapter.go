package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/rocketshoes-cart/internal/port"
)

// RedisAdapter is a PersistentStore backed by plain Redis strings.
// Values are written without expiry.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
