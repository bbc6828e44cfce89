package storage

import (
	"context"
	"errors"
	"fmt"

	pkgredis "github.com/angelmondragon/storefront-sync/pkg/redis"
)

var _ KV = (*Redis)(nil)

// redisCommands is the pkg/redis surface this store needs; narrowed for tests.
type redisCommands interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any) error
	Del(ctx context.Context, keys ...string) error
}

// Redis keeps guest records in a shared Redis, which kiosk deployments use so
// a device swap keeps the visitor's cart.
type Redis struct {
	client redisCommands
}

// NewRedis wraps an established redis client.
func NewRedis(client *pkgredis.Client) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, pkgredis.RecordKey(key))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, pkgredis.RecordKey(key), string(value))
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, pkgredis.RecordKey(key))
}

// Close releases the connection pool when the wrapped client owns one.
func (r *Redis) Close() error {
	if closer, ok := r.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
