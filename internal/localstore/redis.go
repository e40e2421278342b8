package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps collections as plain string keys in a Redis instance
// local to the kiosk.
type RedisStorage struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStorage stores collection name under prefix+name.
func NewRedisStorage(client redis.Cmdable, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

func (r *RedisStorage) GetCollection(ctx context.Context, name string) ([]byte, error) {
	if err := checkCollection(name); err != nil {
		return nil, err
	}
	b, err := r.client.Get(ctx, r.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", name, err)
	}
	return b, nil
}

func (r *RedisStorage) SetCollection(ctx context.Context, name string, data []byte) error {
	if err := checkCollection(name); err != nil {
		return err
	}
	if data == nil {
		if err := r.client.Del(ctx, r.prefix+name).Err(); err != nil {
			return fmt.Errorf("redis del %s: %w", name, err)
		}
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+name, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}
