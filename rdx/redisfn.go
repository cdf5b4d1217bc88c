package rdx

import (
	"context"
	"os"
	"time"

	"tourmart/globals"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

func init() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	Conn = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}

func RdxSet(key, value string, ttl time.Duration) error {
	return Conn.Set(globals.Ctx, key, value, ttl).Err()
}

func RdxGet(key string) (string, error) {
	return Conn.Get(globals.Ctx, key).Result()
}

func RdxDel(key string) (int64, error) {
	return Conn.Del(globals.Ctx, key).Result()
}

// Locker is a minimal mutual-exclusion primitive keyed by string. The redis
// implementation backs the per-buyer payment lock; tests swap in a no-op.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string)
}

type RedisLocker struct{}

func (RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return Conn.SetNX(ctx, key, "1", ttl).Result()
}

func (RedisLocker) Release(ctx context.Context, key string) {
	_ = Conn.Del(ctx, key).Err()
}
