package localstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/database"
)

// Redis keeps the buffer under a per-user key prefix. Useful when the agent
// runs as a service next to a shared Redis.
type Redis struct {
	client *redis.Client
	prefix string
}

func OpenRedis(redisURI, userName string) (*Redis, error) {
	client, err := database.OpenRedis(redisURI)
	if err != nil {
		return nil, err
	}
	return NewRedis(client, userName), nil
}

func NewRedis(client *redis.Client, userName string) *Redis {
	prefix := "kanjou:local:"
	if userName != "" {
		prefix += userName + ":"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
