package repo

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a small string cache. A nil *Redis is a cache that always misses.
type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	if addr == "" {
		return nil
	}
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.C.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	return r.C.Close()
}

// Get returns "", false on a miss or any cache failure.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, err := r.C.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (r *Redis) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	if r == nil {
		return nil
	}
	return r.C.Set(ctx, key, val, ttl).Err()
}

func (r *Redis) Del(ctx context.Context, key string) error {
	if r == nil {
		return nil
	}
	if err := r.C.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
