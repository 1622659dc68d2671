package savestore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// redisKV RedisBackend 用到的命令子集
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisBackend 以字符串键保存信封
type RedisBackend struct {
	client redisKV
	ttl    time.Duration
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend 创建 Redis 后端
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "redis: addrs is required")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return newRedisBackend(client, cfg.TTL), nil
}

func newRedisBackend(client redisKV, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func (b *RedisBackend) Put(ctx context.Context, key string, blob []byte) error {
	if err := b.client.Set(ctx, key, blob, b.ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(ErrNotFound, "redis key %s", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", key)
	}
	return blob, nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	n, err := b.client.Del(ctx, key).Result()
	if err != nil {
		return errors.Wrapf(err, "redis del %s", key)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "redis key %s", key)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
